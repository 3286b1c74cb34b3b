// internal/lobby/store.go
package lobby

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/dmaloney-io/parlor/internal/genai"
)

// Generator is the text generation dependency: trivia pairs for the round
// scheduler and short replies for the bot responder. Both calls are
// fallible and latency-bearing; callers bound them with a context timeout
// and never hold a lobby lock across them.
type Generator interface {
	Trivia(ctx context.Context) (genai.TriviaPair, error)
	Reply(ctx context.Context, turns []genai.Turn) (string, error)
}

// Timings collects every scheduling knob the store owns.
type Timings struct {
	TriviaInterval time.Duration
	CleanupGrace   time.Duration
	BotReplyDelay  time.Duration
	GenTimeout     time.Duration
}

// DefaultTimings are the values the service has always shipped with.
func DefaultTimings() Timings {
	return Timings{
		TriviaInterval: 90 * time.Second,
		CleanupGrace:   5 * time.Minute,
		BotReplyDelay:  2 * time.Second,
		GenTimeout:     15 * time.Second,
	}
}

// Store is the lobby registry. It owns every Lobby instance and the timers
// attached to them. The store mutex guards only the id map and insertion
// order; it is never held together with a lobby's own lock.
type Store struct {
	log     *logrus.Logger
	gen     Generator
	timings Timings

	mu      sync.Mutex
	lobbies map[uuid.UUID]*Lobby
	order   []uuid.UUID

	// onListChanged, when set, is invoked after the public listing changes
	// from inside the store (currently only idle reclamation). The gateway
	// uses it to re-broadcast the global lobby list.
	onListChanged func()
}

// NewStore initializes an empty registry.
func NewStore(gen Generator, timings Timings, log *logrus.Logger) *Store {
	return &Store{
		log:     log,
		gen:     gen,
		timings: timings,
		lobbies: make(map[uuid.UUID]*Lobby),
	}
}

// OnListChanged registers the global listing change hook. Call before the
// store is shared across goroutines.
func (s *Store) OnListChanged(fn func()) {
	s.onListChanged = fn
}

// Create builds a lobby, registers it, and starts its periodic trivia
// trigger. Non-positive capacities are coerced to defaults rather than
// rejected, so Create never fails.
func (s *Store) Create(name string, isPrivate bool, maxHumans, maxBots int) *Lobby {
	l := newLobby(name, isPrivate, maxHumans, maxBots, s.log)

	s.mu.Lock()
	s.lobbies[l.ID] = l
	s.order = append(s.order, l.ID)
	s.mu.Unlock()

	go s.triviaLoop(l)

	l.log.WithFields(logrus.Fields{
		"name":      name,
		"private":   isPrivate,
		"maxHumans": l.MaxHumans,
		"maxBots":   l.MaxBots,
	}).Info("lobby created")
	return l
}

// Get retrieves a lobby by id.
func (s *Store) Get(id uuid.UUID) (*Lobby, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lobbies[id]
	return l, ok
}

// Remove deletes a lobby and cancels every timer it owns. Removing an
// unknown id is a no-op.
func (s *Store) Remove(id uuid.UUID) {
	s.mu.Lock()
	l, ok := s.lobbies[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.lobbies, id)
	s.order = lo.Without(s.order, id)
	s.mu.Unlock()

	l.mu.Lock()
	l.shutdownLocked()
	l.mu.Unlock()

	l.log.Info("lobby removed")
}

// Summary is one public listing entry.
type Summary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Participants int    `json:"participants"`
	Bots         int    `json:"bots"`
}

// List returns summaries for every non-private lobby in insertion order.
func (s *Store) List() []Summary {
	s.mu.Lock()
	ordered := make([]*Lobby, 0, len(s.order))
	for _, id := range s.order {
		if l, ok := s.lobbies[id]; ok {
			ordered = append(ordered, l)
		}
	}
	s.mu.Unlock()

	public := lo.Reject(ordered, func(l *Lobby, _ int) bool { return l.IsPrivate })
	return lo.Map(public, func(l *Lobby, _ int) Summary {
		snap := l.Snapshot()
		return Summary{
			ID:           snap.ID,
			Name:         snap.Name,
			Participants: len(snap.Participants),
			Bots:         len(snap.Bots),
		}
	})
}

// DropConnection removes connID's membership wherever it holds one. A
// connection belongs to at most one lobby, so the scan stops at the first
// match. Each lobby's lock is taken and released independently.
func (s *Store) DropConnection(connID uuid.UUID) (*Lobby, bool) {
	s.mu.Lock()
	ordered := make([]*Lobby, 0, len(s.order))
	for _, id := range s.order {
		if l, ok := s.lobbies[id]; ok {
			ordered = append(ordered, l)
		}
	}
	s.mu.Unlock()

	for _, l := range ordered {
		wasMember, nowEmpty := l.Leave(connID)
		if !wasMember {
			continue
		}
		if nowEmpty {
			s.ScheduleCleanup(l)
		}
		return l, true
	}
	return nil, false
}

func (s *Store) notifyListChanged() {
	if s.onListChanged != nil {
		s.onListChanged()
	}
}
