// internal/lobby/cleanup.go
package lobby

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// ScheduleCleanup arms the one-shot reclamation timer for a lobby whose
// membership just reached zero. Re-arming replaces any previous timer, so
// at most one reclamation is ever pending per lobby. A join cancels the
// timer under the lobby lock; if the timer has already fired, reclaim's
// own emptiness re-check protects the joiner.
func (s *Store) ScheduleCleanup(l *Lobby) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.removed || len(l.participants) > 0 {
		return
	}
	if l.cleanupTimer != nil {
		l.cleanupTimer.Stop()
	}
	id := l.ID
	l.cleanupTimer = time.AfterFunc(s.timings.CleanupGrace, func() {
		s.reclaim(id)
	})
	l.log.WithField("grace", s.timings.CleanupGrace).Info("lobby empty, reclamation scheduled")
}

// reclaim removes the lobby if it is still empty when the grace period
// elapses. The membership re-check guards the window between the timer
// firing and a join cancelling it. The re-check and the removal decision
// happen in one critical section: once the removed flag is set no join can
// succeed, so an occupied lobby is never deleted out from under a member.
func (s *Store) reclaim(id uuid.UUID) {
	l, ok := s.Get(id)
	if !ok {
		return
	}

	l.mu.Lock()
	if l.removed || len(l.participants) > 0 {
		l.mu.Unlock()
		return
	}
	l.shutdownLocked()
	l.mu.Unlock()

	s.mu.Lock()
	delete(s.lobbies, id)
	s.order = lo.Without(s.order, id)
	s.mu.Unlock()

	l.log.Info("lobby reclaimed")
	s.notifyListChanged()
}
