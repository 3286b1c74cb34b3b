// internal/lobby/message.go
package lobby

import "time"

// SenderKind tags who produced a message. The wire keeps the historical
// display names ("ChatBot", "Game") but logic always branches on the kind,
// never on the display string.
type SenderKind string

const (
	SenderHuman  SenderKind = "human"
	SenderBot    SenderKind = "bot"
	SenderSystem SenderKind = "system"
)

// Reserved display names for non-human senders.
const (
	BotSenderName    = "ChatBot"
	SystemSenderName = "Game"
)

// Message is a single chat-log entry. Timestamps are unix milliseconds;
// messages are only ever appended in arrival order.
type Message struct {
	Sender    string     `json:"sender"`
	Kind      SenderKind `json:"senderKind"`
	Body      string     `json:"message"`
	Timestamp int64      `json:"timestamp"`
}

func newHumanMessage(username, body string) Message {
	return Message{Sender: username, Kind: SenderHuman, Body: body, Timestamp: nowMillis()}
}

func newBotMessage(body string) Message {
	return Message{Sender: BotSenderName, Kind: SenderBot, Body: body, Timestamp: nowMillis()}
}

func newSystemMessage(body string) Message {
	return Message{Sender: SystemSenderName, Kind: SenderSystem, Body: body, Timestamp: nowMillis()}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
