package ratelimit

import (
	"encoding/json"
	"time"

	bolt "go.etcd.io/bbolt"
)

var quotaBucket = []byte("quota")
var quotaKey = []byte("spotify")

// BoltStore persists limiter state in a bbolt database, for deployments
// that already keep one around.
type BoltStore struct {
	db *bolt.DB
}

func NewBoltStore(db *bolt.DB) (*BoltStore, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(quotaBucket)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Load() (State, error) {
	var state State
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(quotaBucket).Get(quotaKey)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &state)
	})
	if err != nil {
		return State{}, err
	}
	return state, nil
}

// OpenStore picks the persistence backend for the counter: a bbolt database
// when boltPath is set, otherwise a JSON file at filePath. The returned
// close func releases the bbolt handle and is a no-op for the file backend.
func OpenStore(filePath, boltPath string) (Store, func(), error) {
	if boltPath == "" {
		return NewFileStore(filePath), func() {}, nil
	}
	db, err := bolt.Open(boltPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, nil, err
	}
	store, err := NewBoltStore(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, func() { db.Close() }, nil
}

func (s *BoltStore) Save(state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(quotaBucket).Put(quotaKey, data)
	})
}
