// internal/lobby/helpers_test.go
package lobby

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dmaloney-io/parlor/internal/genai"
)

// stubGenerator is a scriptable Generator for tests.
type stubGenerator struct {
	mu          sync.Mutex
	pair        genai.TriviaPair
	triviaErr   error
	reply       string
	replyErr    error
	triviaCalls int
	replyCalls  int
	lastTurns   []genai.Turn
}

func (g *stubGenerator) Trivia(_ context.Context) (genai.TriviaPair, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.triviaCalls++
	if g.triviaErr != nil {
		return genai.TriviaPair{}, g.triviaErr
	}
	return g.pair, nil
}

func (g *stubGenerator) Reply(_ context.Context, turns []genai.Turn) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.replyCalls++
	g.lastTurns = append([]genai.Turn(nil), turns...)
	if g.replyErr != nil {
		return "", g.replyErr
	}
	return g.reply, nil
}

func (g *stubGenerator) turns() []genai.Turn {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]genai.Turn(nil), g.lastTurns...)
}

func (g *stubGenerator) calls() (trivia, reply int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.triviaCalls, g.replyCalls
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// newTestStore returns a store with timers short enough for tests and the
// periodic trivia trigger effectively disabled.
func newTestStore(gen Generator) *Store {
	return NewStore(gen, Timings{
		TriviaInterval: time.Hour,
		CleanupGrace:   40 * time.Millisecond,
		BotReplyDelay:  10 * time.Millisecond,
		GenTimeout:     time.Second,
	}, quietLogger())
}

func newSub() *Subscriber {
	return NewSubscriber(uuid.New())
}

// drain empties a subscriber's queue without blocking.
func drain(sub *Subscriber) []any {
	var evs []any
	for {
		select {
		case ev := <-sub.Out:
			evs = append(evs, ev)
		default:
			return evs
		}
	}
}

// chatMessages filters a drained event slice down to chat payloads.
func chatMessages(evs []any) []Message {
	var msgs []Message
	for _, ev := range evs {
		if ce, ok := ev.(ChatEvent); ok {
			msgs = append(msgs, ce.Message)
		}
	}
	return msgs
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}
