// internal/lobby/bot.go
package lobby

import (
	"context"
	"time"
)

// ScheduleBotReply arms a delayed bot reply using a context snapshot taken
// now, at schedule time. Multiple replies may be in flight for the same
// lobby; races between them only affect which messages each one saw.
func (s *Store) ScheduleBotReply(l *Lobby) {
	l.mu.Lock()
	if l.removed || len(l.bots) == 0 {
		l.mu.Unlock()
		return
	}
	turns := l.recentTurnsLocked()
	l.mu.Unlock()

	time.AfterFunc(s.timings.BotReplyDelay, func() {
		genCtx, cancel := context.WithTimeout(context.Background(), s.timings.GenTimeout)
		reply, err := s.gen.Reply(genCtx, turns)
		cancel()
		if err != nil {
			// A failed reply is dropped, never retried or surfaced to users.
			l.log.WithError(err).Warn("bot reply generation failed")
			return
		}

		l.mu.Lock()
		defer l.mu.Unlock()
		if l.removed {
			return
		}
		l.appendLocked(newBotMessage(reply))
	})
}

// RunChatSideEffects performs the fire-and-forget follow-ups of a counted
// chat message: a trivia round attempt when the frequency gate was hit, or
// otherwise a delayed bot reply. A round that starts pre-empts the bot for
// this turn. Intended to run off the caller's goroutine; the triggering
// message has already been acknowledged.
func (s *Store) RunChatSideEffects(l *Lobby, res PostResult) {
	if !res.OK || res.AnsweredTrivia {
		return
	}
	if res.TriviaGate && s.TriggerTrivia(context.Background(), l) {
		return
	}
	if res.HasBots {
		s.ScheduleBotReply(l)
	}
}
