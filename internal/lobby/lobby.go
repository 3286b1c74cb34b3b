// internal/lobby/lobby.go
package lobby

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/dmaloney-io/parlor/internal/genai"
)

var (
	// ErrLobbyNotFound is returned when an operation references a lobby id
	// with no live entry in the registry.
	ErrLobbyNotFound = errors.New("lobby not found")
	// ErrLobbyFull is returned when a join would exceed the human capacity.
	ErrLobbyFull = errors.New("lobby full")
)

// Capacity defaults applied when a creator supplies non-positive values.
const (
	DefaultMaxHumans = 10
	DefaultMaxBots   = 1
)

// botContextWindow bounds how much of the message log the text generation
// service ever sees.
const botContextWindow = 10

// triviaMessageGate triggers a trivia round attempt every Nth counted
// human message.
const triviaMessageGate = 5

// Participant is one human member of a lobby, unique by connection id.
type Participant struct {
	ConnID   uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

// Bot is one bot slot, fixed at lobby creation.
type Bot struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// triviaState is the per-lobby trivia round. active implies question and
// answer are both set; pending guards a generation call in flight so two
// triggers can never race into overlapping rounds.
type triviaState struct {
	active   bool
	pending  bool
	question string
	answer   string
}

// Lobby is one ephemeral chat room. All mutable state below mu is
// serialized through it; methods never hold mu across a text generation
// call.
type Lobby struct {
	ID        uuid.UUID
	Name      string
	IsPrivate bool
	MaxHumans int
	MaxBots   int

	log *logrus.Entry

	mu           sync.Mutex
	participants []Participant
	bots         []Bot
	messages     []Message
	messageCount int
	trivia       triviaState
	subs         map[uuid.UUID]*Subscriber
	cleanupTimer *time.Timer
	removed      bool
	done         chan struct{}
}

func newLobby(name string, isPrivate bool, maxHumans, maxBots int, log *logrus.Logger) *Lobby {
	if maxHumans <= 0 {
		maxHumans = DefaultMaxHumans
	}
	if maxBots <= 0 {
		maxBots = DefaultMaxBots
	}

	id := uuid.New()
	bots := make([]Bot, maxBots)
	for i := range bots {
		bots[i] = Bot{ID: fmt.Sprintf("bot_%d", i+1), Name: BotSenderName}
	}

	return &Lobby{
		ID:        id,
		Name:      name,
		IsPrivate: isPrivate,
		MaxHumans: maxHumans,
		MaxBots:   maxBots,
		log:       log.WithField("lobby", id.String()),
		bots:      bots,
		subs:      make(map[uuid.UUID]*Subscriber),
		done:      make(chan struct{}),
	}
}

// Snapshot is the full lobby view broadcast on roster changes and returned
// from joins.
type Snapshot struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	IsPrivate    bool          `json:"isPrivate"`
	MaxHumans    int           `json:"maxHumans"`
	MaxBots      int           `json:"maxBots"`
	Participants []Participant `json:"participants"`
	Bots         []Bot         `json:"bots"`
	Messages     []Message     `json:"messages"`
	TriviaActive bool          `json:"triviaActive"`
}

// Join adds a participant and subscribes its connection to the broadcast
// group. A pending cleanup timer is cancelled under the same lock as the
// membership update, so a join can never lose to an in-flight reclamation.
func (l *Lobby) Join(sub *Subscriber, username string) (Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.removed {
		return Snapshot{}, ErrLobbyNotFound
	}

	// Re-joining a lobby this connection is already in is idempotent:
	// the roster keeps one entry per connection id.
	if lo.ContainsBy(l.participants, func(p Participant) bool {
		return p.ConnID == sub.ConnID
	}) {
		l.subs[sub.ConnID] = sub
		return l.snapshotLocked(), nil
	}

	if len(l.participants) >= l.MaxHumans {
		return Snapshot{}, ErrLobbyFull
	}

	if l.cleanupTimer != nil {
		l.cleanupTimer.Stop()
		l.cleanupTimer = nil
	}

	l.participants = append(l.participants, Participant{ConnID: sub.ConnID, Username: username})
	l.subs[sub.ConnID] = sub

	snap := l.snapshotLocked()
	l.broadcastLocked(newUpdateEvent(snap))
	l.log.WithFields(logrus.Fields{"username": username, "conn": sub.ConnID}).Info("participant joined")
	return snap, nil
}

// Leave removes the participant owning connID, if present, and unsubscribes
// the connection. It reports whether the participant was a member and
// whether the lobby just became empty.
func (l *Lobby) Leave(connID uuid.UUID) (wasMember, nowEmpty bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.subs, connID)

	before := len(l.participants)
	l.participants = lo.Reject(l.participants, func(p Participant, _ int) bool {
		return p.ConnID == connID
	})
	if len(l.participants) == before {
		return false, false
	}

	l.broadcastLocked(newUpdateEvent(l.snapshotLocked()))
	l.log.WithField("conn", connID).Info("participant left")
	return true, len(l.participants) == 0
}

// PostResult reports what a chat message did, so the gateway can decide
// which fire-and-forget side effects to kick off.
type PostResult struct {
	OK             bool // lobby still existed when the message arrived
	AnsweredTrivia bool // message closed the active trivia round
	TriviaGate     bool // counted message hit the trivia frequency gate
	HasBots        bool
}

// PostMessage handles one inbound human chat message. A correct trivia
// answer wins the round and is not recorded as a chat message; anything
// else is appended, broadcast, and counted.
func (l *Lobby) PostMessage(username, body string) PostResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.removed {
		return PostResult{}
	}

	if l.trivia.active && strings.EqualFold(strings.TrimSpace(body), l.trivia.answer) {
		win := fmt.Sprintf("%s is correct! The answer was: %s", username, l.trivia.answer)
		l.appendLocked(newSystemMessage(win))
		l.trivia = triviaState{}
		l.log.WithField("winner", username).Info("trivia round won")
		return PostResult{OK: true, AnsweredTrivia: true}
	}

	l.appendLocked(newHumanMessage(username, body))
	l.messageCount++

	return PostResult{
		OK:         true,
		TriviaGate: l.messageCount%triviaMessageGate == 0,
		HasBots:    len(l.bots) > 0,
	}
}

// Snapshot returns a copy of the lobby's full state.
func (l *Lobby) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// MessageCount returns the number of counted human chat messages.
func (l *Lobby) MessageCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.messageCount
}

// TriviaActive reports whether a trivia round is in progress.
func (l *Lobby) TriviaActive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.trivia.active
}

func (l *Lobby) snapshotLocked() Snapshot {
	return Snapshot{
		ID:           l.ID.String(),
		Name:         l.Name,
		IsPrivate:    l.IsPrivate,
		MaxHumans:    l.MaxHumans,
		MaxBots:      l.MaxBots,
		Participants: append([]Participant(nil), l.participants...),
		Bots:         append([]Bot(nil), l.bots...),
		Messages:     append([]Message(nil), l.messages...),
		TriviaActive: l.trivia.active,
	}
}

// appendLocked adds a message to the log and fans it out to every
// subscriber. Sends happen in append order under the lobby lock, so each
// subscriber's queue preserves server-side ordering.
func (l *Lobby) appendLocked(msg Message) {
	l.messages = append(l.messages, msg)
	l.broadcastLocked(newChatEvent(msg))
}

func (l *Lobby) broadcastLocked(ev any) {
	for connID, sub := range l.subs {
		if !sub.Send(ev) {
			l.log.WithField("conn", connID).Warn("subscriber queue full, event dropped")
		}
	}
}

// recentTurnsLocked maps the tail of the message log into generation
// context: bot messages become assistant turns, everything else user turns.
func (l *Lobby) recentTurnsLocked() []genai.Turn {
	msgs := l.messages
	if len(msgs) > botContextWindow {
		msgs = msgs[len(msgs)-botContextWindow:]
	}
	return lo.Map(msgs, func(m Message, _ int) genai.Turn {
		return genai.Turn{FromBot: m.Kind == SenderBot, Text: m.Body}
	})
}

// shutdownLocked marks the lobby removed and cancels the timers it owns.
// Idempotent; callers hold l.mu.
func (l *Lobby) shutdownLocked() {
	if l.removed {
		return
	}
	l.removed = true
	if l.cleanupTimer != nil {
		l.cleanupTimer.Stop()
		l.cleanupTimer = nil
	}
	close(l.done)
}

func (l *Lobby) hasMember(connID uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return lo.ContainsBy(l.participants, func(p Participant) bool {
		return p.ConnID == connID
	})
}
