// internal/handlers/server.go
package handlers

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dmaloney-io/parlor/internal/lobby"
)

// Server is the session gateway: it owns every live connection, translates
// inbound events into registry and lobby operations, and fans outbound
// events back to subscribers. It holds no lobby state beyond each
// connection's record of which lobby it is in.
type Server struct {
	log   *logrus.Logger
	store *lobby.Store

	mu      sync.Mutex
	clients map[uuid.UUID]*client
}

// NewServer wires a gateway to the lobby registry. Reclamation of idle
// lobbies re-broadcasts the public listing through the registry hook.
func NewServer(store *lobby.Store, log *logrus.Logger) *Server {
	s := &Server{
		log:     log,
		store:   store,
		clients: make(map[uuid.UUID]*client),
	}
	store.OnListChanged(s.BroadcastLobbyList)
	return s
}

// client is one live websocket connection.
type client struct {
	id  uuid.UUID
	sub *lobby.Subscriber

	mu      sync.Mutex
	lobbyID uuid.UUID // uuid.Nil when not in a lobby
}

func (c *client) currentLobby() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lobbyID
}

func (c *client) setLobby(id uuid.UUID) {
	c.mu.Lock()
	c.lobbyID = id
	c.mu.Unlock()
}

func (s *Server) addClient(c *client) {
	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()
}

// send queues an event for one connection.
func (s *Server) send(c *client, ev any) {
	if !c.sub.Send(ev) {
		s.log.WithField("conn", c.id).Warn("outbound queue full, event dropped")
	}
}

// BroadcastLobbyList pushes the current public listing to every connected
// client, joined to a lobby or not.
func (s *Server) BroadcastLobbyList() {
	ev := newListEvent(s.store.List())

	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		s.send(c, ev)
	}
}

// respond answers an inbound event. Events without an ack id get no
// success response; their failures surface as error events so the client
// is never left guessing.
func (s *Server) respond(c *client, frame inboundFrame, ev ackEvent) {
	if frame.Ack == nil {
		if !ev.Success && ev.Error != "" {
			s.send(c, newErrorEvent(ev.Error))
		}
		return
	}
	ev.Type = "ack"
	ev.Ack = *frame.Ack
	s.send(c, ev)
}
