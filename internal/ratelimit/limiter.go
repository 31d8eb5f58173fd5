// Package ratelimit implements the persisted daily download counter that
// gates Spotify fetch volume.
package ratelimit

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the persisted counter: a calendar date key and how many
// downloads happened on that date.
type State struct {
	Date  string `json:"date"` // YYYY-MM-DD, server-local time
	Count int    `json:"count"`
}

// Store persists limiter state. Implementations are single-process:
// concurrent writers in separate processes can race and undercount, which
// is a known accepted limitation, not something stores try to fix.
type Store interface {
	Load() (State, error)
	Save(State) error
}

const dateLayout = "2006-01-02"

// Limiter is a capacity-per-day counter. State is loaded from the store on
// every check so an operator can reset it by deleting the backing file.
type Limiter struct {
	store    Store
	capacity int
	now      func() time.Time
	mu       sync.Mutex
	log      *zap.SugaredLogger
}

func New(store Store, capacity int) *Limiter {
	return &Limiter{
		store:    store,
		capacity: capacity,
		now:      time.Now,
		log:      zap.S().Named("ratelimit"),
	}
}

// WithClock overrides the time source; used by tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// CheckAndIncrement consumes one unit of today's quota. When the cap is
// already reached nothing is consumed and atLimit is true.
func (l *Limiter) CheckAndIncrement() (atLimit bool, remaining int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.load()
	if err != nil {
		return false, 0, err
	}
	if state.Count >= l.capacity {
		return true, 0, nil
	}
	state.Count++
	if err := l.store.Save(state); err != nil {
		return false, 0, err
	}
	remaining = l.capacity - state.Count
	return state.Count >= l.capacity, remaining, nil
}

// Status reports the counter without consuming anything.
func (l *Limiter) Status() (atLimit bool, remaining int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.load()
	if err != nil {
		return false, 0, err
	}
	remaining = l.capacity - state.Count
	if remaining < 0 {
		remaining = 0
	}
	return state.Count >= l.capacity, remaining, nil
}

// ResetAt is the next local midnight.
func (l *Limiter) ResetAt() time.Time {
	now := l.now()
	year, month, day := now.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
}

// load reads the persisted state, resetting the counter when the stored
// date key is not today.
func (l *Limiter) load() (State, error) {
	today := l.now().Format(dateLayout)
	state, err := l.store.Load()
	if err != nil {
		return State{}, err
	}
	if state.Date != today {
		if state.Date != "" {
			l.log.Infow("daily counter rolled over", "from", state.Date, "to", today)
		}
		state = State{Date: today, Count: 0}
	}
	return state, nil
}
