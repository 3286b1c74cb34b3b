// internal/lobby/subscriber.go
package lobby

import "github.com/google/uuid"

// Subscriber is one connection's membership in a lobby's broadcast group.
// Events are pushed onto Out and drained by the connection's write pump;
// Send never blocks the lobby lock on a slow consumer.
type Subscriber struct {
	ConnID uuid.UUID
	Out    chan any
}

// NewSubscriber builds a subscriber with a buffered outbound queue.
func NewSubscriber(connID uuid.UUID) *Subscriber {
	return &Subscriber{
		ConnID: connID,
		Out:    make(chan any, 32),
	}
}

// Send enqueues an event, reporting false if the queue is full or closed
// for writes. Callers decide whether a drop is worth logging.
func (s *Subscriber) Send(ev any) bool {
	select {
	case s.Out <- ev:
		return true
	default:
		return false
	}
}

// ChatEvent carries one appended message to lobby subscribers.
type ChatEvent struct {
	Type    string  `json:"type"`
	Message Message `json:"message"`
}

func newChatEvent(m Message) ChatEvent {
	return ChatEvent{Type: "chat_message", Message: m}
}

// UpdateEvent carries a full lobby snapshot on roster changes.
type UpdateEvent struct {
	Type  string   `json:"type"`
	Lobby Snapshot `json:"lobby"`
}

func newUpdateEvent(s Snapshot) UpdateEvent {
	return UpdateEvent{Type: "lobby_update", Lobby: s}
}
