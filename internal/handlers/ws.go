// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/dmaloney-io/parlor/internal/lobby"
	"github.com/dmaloney-io/parlor/internal/middleware"
)

// Subprotocol clients must speak on /ws.
const Subprotocol = "parlor"

// BadSubprotocolError closes connections that negotiated the wrong
// websocket subprotocol.
const BadSubprotocolError = 3000

// WSHandler accepts a websocket connection and runs its session until the
// peer disconnects.
func WSHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			s.log.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != Subprotocol {
			c.Close(BadSubprotocolError, "client must speak the parlor subprotocol")
			return
		}

		middleware.LogWebSocketConnect(s.log, r.RemoteAddr, r.URL.Path)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sub := lobby.NewSubscriber(uuid.New())
		cl := &client{id: sub.ConnID, sub: sub}
		s.addClient(cl)

		go s.writePump(ctx, c, cl)
		s.readPump(ctx, c, cl)

		s.disconnect(cl)
		middleware.LogWebSocketDisconnect(s.log, r.RemoteAddr, r.URL.Path, nil)
	}
}

// readPump consumes inbound frames until the connection closes. Frames are
// rate limited per connection; malformed JSON gets an error event and the
// connection stays open.
func (s *Server) readPump(ctx context.Context, c *websocket.Conn, cl *client) {
	limiter := rate.NewLimiter(rate.Every(100*time.Millisecond), 10)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		typ, data, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus != websocket.StatusNormalClosure &&
				closeStatus != websocket.StatusGoingAway &&
				!strings.Contains(err.Error(), "context canceled") {
				s.log.WithField("conn", cl.id).Warnf("read error: %v", err)
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.log.WithField("conn", cl.id).Warnf("invalid json: %v", err)
			s.send(cl, newErrorEvent("invalid JSON"))
			continue
		}

		s.dispatch(cl, frame)
	}
}

// writePump drains the connection's outbound queue and keeps the peer
// alive with periodic pings.
func (s *Server) writePump(ctx context.Context, c *websocket.Conn, cl *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-cl.sub.Out:
			data, err := json.Marshal(ev)
			if err != nil {
				s.log.WithField("conn", cl.id).Warnf("marshal outbound event: %v", err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (s *Server) dispatch(cl *client, frame inboundFrame) {
	switch frame.Type {
	case "get_lobbies":
		s.send(cl, newListEvent(s.store.List()))
	case "create_lobby":
		s.handleCreate(cl, frame)
	case "join_lobby":
		s.handleJoin(cl, frame)
	case "leave_lobby":
		s.handleLeave(cl, frame)
	case "chat_message":
		s.handleChat(cl, frame)
	default:
		s.respond(cl, frame, ackEvent{Error: fmt.Sprintf("unknown event type: %s", frame.Type)})
	}
}

func (s *Server) handleCreate(cl *client, frame inboundFrame) {
	l := s.store.Create(frame.Name, frame.IsPrivate, frame.MaxHumans, frame.MaxBots)
	s.respond(cl, frame, ackEvent{Success: true, ID: l.ID.String()})
	s.BroadcastLobbyList()
}

func (s *Server) handleJoin(cl *client, frame inboundFrame) {
	l, ok := s.lookupLobby(frame.LobbyID)
	if !ok {
		s.respond(cl, frame, ackEvent{Error: "Lobby not found"})
		return
	}

	// A connection is in at most one lobby; joining another leaves the
	// current one first.
	if prev := cl.currentLobby(); prev != uuid.Nil && prev != l.ID {
		s.leaveLobby(cl, prev)
	}

	snap, err := l.Join(cl.sub, frame.Username)
	if err != nil {
		msg := "Lobby not found"
		if err == lobby.ErrLobbyFull {
			msg = "Lobby full"
		}
		s.respond(cl, frame, ackEvent{Error: msg})
		return
	}
	cl.setLobby(l.ID)
	s.respond(cl, frame, ackEvent{Success: true, Lobby: &snap})
}

func (s *Server) handleLeave(cl *client, frame inboundFrame) {
	l, ok := s.lookupLobby(frame.LobbyID)
	if !ok {
		s.respond(cl, frame, ackEvent{Error: "Lobby not found"})
		return
	}
	s.leaveLobby(cl, l.ID)
	s.respond(cl, frame, ackEvent{Success: true})
}

func (s *Server) handleChat(cl *client, frame inboundFrame) {
	l, ok := s.lookupLobby(frame.LobbyID)
	if !ok {
		s.respond(cl, frame, ackEvent{Error: "Lobby not found"})
		return
	}

	res := l.PostMessage(frame.Username, frame.Message)
	if !res.OK {
		s.respond(cl, frame, ackEvent{Error: "Lobby not found"})
		return
	}

	// The message is recorded; trivia and bot follow-ups are
	// fire-and-forget and never delay or fail the ack.
	s.respond(cl, frame, ackEvent{Success: true})
	go s.store.RunChatSideEffects(l, res)
}

// leaveLobby removes the client from a lobby it may be in and arms
// reclamation if it left the lobby empty. The tracked lobby is cleared
// only when this leave concerned it: a benign non-member leave of some
// other lobby must not orphan the membership the connection still holds.
func (s *Server) leaveLobby(cl *client, lobbyID uuid.UUID) {
	l, ok := s.store.Get(lobbyID)
	if !ok {
		if cl.currentLobby() == lobbyID {
			cl.setLobby(uuid.Nil)
		}
		return
	}

	wasMember, nowEmpty := l.Leave(cl.id)
	if wasMember || cl.currentLobby() == lobbyID {
		cl.setLobby(uuid.Nil)
	}
	if nowEmpty {
		s.store.ScheduleCleanup(l)
	}
}

// disconnect tears down a closed connection: membership is removed from
// whichever lobby held it, and the public listing is re-broadcast.
func (s *Server) disconnect(cl *client) {
	s.removeClient(cl)

	if l, found := s.store.DropConnection(cl.id); found {
		s.log.WithFields(logrus.Fields{"conn": cl.id, "lobby": l.ID}).Info("connection dropped from lobby")
	}
	cl.setLobby(uuid.Nil)

	s.BroadcastLobbyList()
}

func (s *Server) lookupLobby(id string) (*lobby.Lobby, bool) {
	lobbyID, err := uuid.Parse(id)
	if err != nil {
		return nil, false
	}
	return s.store.Get(lobbyID)
}
