// internal/handlers/events.go
package handlers

import "github.com/dmaloney-io/parlor/internal/lobby"

// inboundFrame is the envelope for every client -> server event. The
// optional ack id asks the server to answer with an ackEvent carrying the
// same id.
type inboundFrame struct {
	Type string `json:"type"`
	Ack  *int64 `json:"ack,omitempty"`

	// create_lobby
	Name      string `json:"name,omitempty"`
	IsPrivate bool   `json:"isPrivate,omitempty"`
	MaxHumans int    `json:"maxHumans,omitempty"`
	MaxBots   int    `json:"maxBots,omitempty"`

	// join_lobby, leave_lobby, chat_message
	LobbyID  string `json:"lobbyId,omitempty"`
	Username string `json:"username,omitempty"`
	Message  string `json:"message,omitempty"`
}

// ackEvent answers an inbound event that carried an ack id.
type ackEvent struct {
	Type    string          `json:"type"`
	Ack     int64           `json:"ack"`
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	ID      string          `json:"id,omitempty"`    // create_lobby
	Lobby   *lobby.Snapshot `json:"lobby,omitempty"` // join_lobby
}

// errorEvent surfaces a failure for events sent without an ack id.
type errorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func newErrorEvent(msg string) errorEvent {
	return errorEvent{Type: "error", Error: msg}
}

// listEvent carries the public lobby listing, either to one requester or
// as a global broadcast.
type listEvent struct {
	Type    string          `json:"type"`
	Lobbies []lobby.Summary `json:"lobbies"`
}

func newListEvent(lobbies []lobby.Summary) listEvent {
	return listEvent{Type: "lobby_list", Lobbies: lobbies}
}
