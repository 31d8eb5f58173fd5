package ratelimit

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
)

// FileStore persists limiter state as a small JSON file. A missing file is
// a fresh counter, not an error.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() (State, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		// A corrupt state file resets the counter rather than wedging
		// every future download.
		return State{}, nil
	}
	return state, nil
}

func (s *FileStore) Save(state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}
