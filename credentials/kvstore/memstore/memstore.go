package memstore

import (
	"fmt"
	"sync"

	"github.com/Tanveersultana125/co-teacher/credentials/kvstore"
)

var _ kvstore.Store = (*Store)(nil)

// Store is an in-memory implementation of kvstore.Store
type Store struct {
	values map[string]string
	lock   sync.RWMutex

	// FailSet makes writes to the named key return an error, for exercising failure paths
	FailSet map[string]error
	// FailDelete makes deletes of the named key return an error
	FailDelete map[string]error
}

// New creates an empty in-memory store
func New() *Store {
	return &Store{
		values:     make(map[string]string),
		FailSet:    make(map[string]error),
		FailDelete: make(map[string]error),
	}
}

func (s *Store) Get(key string) (string, bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	v, ok := s.values[key]
	return v, ok, nil
}

func (s *Store) Set(key, value string) error {
	return s.Update(map[string]string{key: value}, nil)
}

func (s *Store) Delete(key string) error {
	return s.Update(nil, []string{key})
}

// Update checks every write and delete before applying any of them.
func (s *Store) Update(set map[string]string, del []string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	for key := range set {
		if key == "" {
			return fmt.Errorf("key is required")
		}
		if err, ok := s.FailSet[key]; ok {
			return err
		}
	}
	for _, key := range del {
		if err, ok := s.FailDelete[key]; ok {
			return err
		}
	}

	for key, value := range set {
		s.values[key] = value
	}
	for _, key := range del {
		delete(s.values, key)
	}
	return nil
}

// Len returns the number of stored keys
func (s *Store) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.values)
}
