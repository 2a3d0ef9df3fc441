package scanner

import (
	"sync/atomic"
	"time"
)

// State is the re-entrancy and cooldown gate. A scan may start only when
// none is running and at least cooldown has passed since the last start.
type State struct {
	cooldown   time.Duration
	now        func() time.Time
	inProgress atomic.Bool
	lastStart  atomic.Int64
}

func NewState(cooldown time.Duration, now func() time.Time) *State {
	if now == nil {
		now = time.Now
	}
	return &State{cooldown: cooldown, now: now}
}

// TryBegin moves IDLE to RUNNING and reports whether it did. Callers that
// get true must call End.
func (s *State) TryBegin() bool {
	if !s.inProgress.CompareAndSwap(false, true) {
		return false
	}
	now := s.now()
	if last := s.lastStart.Load(); last != 0 && now.Sub(time.Unix(0, last)) < s.cooldown {
		s.inProgress.Store(false)
		return false
	}
	s.lastStart.Store(now.UnixNano())
	return true
}

func (s *State) End() { s.inProgress.Store(false) }

func (s *State) Running() bool { return s.inProgress.Load() }

// LastStartedAt is zero until the first scan starts.
func (s *State) LastStartedAt() time.Time {
	if last := s.lastStart.Load(); last != 0 {
		return time.Unix(0, last)
	}
	return time.Time{}
}
