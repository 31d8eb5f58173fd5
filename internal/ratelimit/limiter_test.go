package ratelimit

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"
)

type memStore struct {
	state     State
	loadErr   error
	saveErr   error
	saveCalls int
}

func (s *memStore) Load() (State, error) {
	if s.loadErr != nil {
		return State{}, s.loadErr
	}
	return s.state, nil
}

func (s *memStore) Save(state State) error {
	s.saveCalls++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.state = state
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCheckAndIncrementCountsDownToZero(t *testing.T) {
	assert := assert_.New(t)

	store := &memStore{}
	l := New(store, 20).WithClock(fixedClock(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)))

	for i := 1; i <= 19; i++ {
		atLimit, remaining, err := l.CheckAndIncrement()
		assert.NoError(err)
		assert.False(atLimit, "call %d", i)
		assert.Equal(20-i, remaining)
	}

	// The 20th consumes the last unit and reports the limit reached.
	atLimit, remaining, err := l.CheckAndIncrement()
	assert.NoError(err)
	assert.True(atLimit)
	assert.Equal(0, remaining)

	// The 21st consumes nothing.
	saves := store.saveCalls
	atLimit, remaining, err = l.CheckAndIncrement()
	assert.NoError(err)
	assert.True(atLimit)
	assert.Equal(0, remaining)
	assert.Equal(saves, store.saveCalls)
	assert.Equal(20, store.state.Count)
}

func TestDateRolloverResetsCounter(t *testing.T) {
	assert := assert_.New(t)

	store := &memStore{state: State{Date: "2024-03-15", Count: 20}}
	l := New(store, 20).WithClock(fixedClock(time.Date(2024, 3, 16, 0, 5, 0, 0, time.UTC)))

	atLimit, remaining, err := l.CheckAndIncrement()
	assert.NoError(err)
	assert.False(atLimit)
	assert.Equal(19, remaining)
	assert.Equal(State{Date: "2024-03-16", Count: 1}, store.state)
}

func TestStatusDoesNotConsume(t *testing.T) {
	assert := assert_.New(t)

	store := &memStore{state: State{Date: "2024-03-15", Count: 5}}
	l := New(store, 20).WithClock(fixedClock(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)))

	atLimit, remaining, err := l.Status()
	assert.NoError(err)
	assert.False(atLimit)
	assert.Equal(15, remaining)
	assert.Equal(0, store.saveCalls)
	assert.Equal(5, store.state.Count)
}

func TestStatusClampsOverCap(t *testing.T) {
	assert := assert_.New(t)

	// A cap lowered below an existing count must not report negative
	// remaining.
	store := &memStore{state: State{Date: "2024-03-15", Count: 25}}
	l := New(store, 20).WithClock(fixedClock(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)))

	atLimit, remaining, err := l.Status()
	assert.NoError(err)
	assert.True(atLimit)
	assert.Equal(0, remaining)
}

func TestStoreErrorsSurface(t *testing.T) {
	assert := assert_.New(t)

	store := &memStore{loadErr: os.ErrPermission}
	l := New(store, 20)
	_, _, err := l.CheckAndIncrement()
	assert.Error(err)
}

func TestResetAtIsNextMidnight(t *testing.T) {
	assert := assert_.New(t)

	now := time.Date(2024, 3, 15, 23, 59, 0, 0, time.UTC)
	l := New(&memStore{}, 20).WithClock(fixedClock(now))
	assert.Equal(time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), l.ResetAt())
}

func TestFileStoreRoundTrip(t *testing.T) {
	assert := assert_.New(t)

	path := filepath.Join(t.TempDir(), "quota.json")
	store := NewFileStore(path)

	// Missing file is a fresh counter.
	state, err := store.Load()
	assert.NoError(err)
	assert.Equal(State{}, state)

	assert.NoError(store.Save(State{Date: "2024-03-15", Count: 7}))
	state, err = store.Load()
	assert.NoError(err)
	assert.Equal(State{Date: "2024-03-15", Count: 7}, state)
}

func TestFileStoreCorruptFileResets(t *testing.T) {
	assert := assert_.New(t)

	path := filepath.Join(t.TempDir(), "quota.json")
	assert.NoError(os.WriteFile(path, []byte("{not json"), 0o644))

	state, err := NewFileStore(path).Load()
	assert.NoError(err)
	assert.Equal(State{}, state)
}

func TestLimiterPersistsAcrossInstances(t *testing.T) {
	assert := assert_.New(t)

	path := filepath.Join(t.TempDir(), "quota.json")
	clock := fixedClock(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))

	first := New(NewFileStore(path), 20).WithClock(clock)
	for i := 0; i < 3; i++ {
		_, _, err := first.CheckAndIncrement()
		assert.NoError(err)
	}

	second := New(NewFileStore(path), 20).WithClock(clock)
	_, remaining, err := second.Status()
	assert.NoError(err)
	assert.Equal(17, remaining)
}
