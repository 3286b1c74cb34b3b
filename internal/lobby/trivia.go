// internal/lobby/trivia.go
package lobby

import (
	"context"
	"time"
)

// triviaLoop is the per-lobby periodic trigger. It runs from creation
// until the lobby is removed; Remove closes the done channel.
func (s *Store) triviaLoop(l *Lobby) {
	ticker := time.NewTicker(s.timings.TriviaInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			s.TriggerTrivia(context.Background(), l)
		}
	}
}

// TriggerTrivia attempts the Idle -> Active transition and reports whether
// a round actually started. The attempt is a no-op when the lobby is
// empty, a round is already active, or a generation call for this lobby is
// already in flight.
//
// The generation call runs without the lobby lock; the result is applied
// only after re-validating that the round is still startable, since state
// may have changed while the call was pending.
func (s *Store) TriggerTrivia(ctx context.Context, l *Lobby) bool {
	l.mu.Lock()
	if l.removed || l.trivia.active || l.trivia.pending || len(l.participants) == 0 {
		l.mu.Unlock()
		return false
	}
	l.trivia.pending = true
	l.mu.Unlock()

	genCtx, cancel := context.WithTimeout(ctx, s.timings.GenTimeout)
	pair, err := s.gen.Trivia(genCtx)
	cancel()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.trivia.pending = false

	if err != nil {
		l.log.WithError(err).Warn("trivia generation failed, staying idle")
		return false
	}
	if l.removed || l.trivia.active || len(l.participants) == 0 {
		return false
	}

	l.trivia = triviaState{active: true, question: pair.Question, answer: pair.Answer}
	l.appendLocked(newSystemMessage("TRIVIA TIME: " + pair.Question))
	l.log.WithField("question", pair.Question).Info("trivia round started")
	return true
}
