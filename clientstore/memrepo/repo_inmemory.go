package memrepo

import (
	"errors"
	"sync"

	"github.com/abase/abase-manager/clientstore"
	apperrors "github.com/abase/abase-manager/internal/errors"
)

var _ clientstore.Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a thread-safe in-memory implementation of clientstore.Repo
type InMemoryRepo struct {
	mu     sync.RWMutex
	values map[string]string
}

// New creates an empty in-memory store
func New() *InMemoryRepo {
	return &InMemoryRepo{
		values: make(map[string]string),
	}
}

func (r *InMemoryRepo) Get(key string) (string, error) {
	if key == "" {
		return "", errors.New("key cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.values[key]
	if !ok {
		return "", apperrors.ErrNotFound
	}
	return v, nil
}

func (r *InMemoryRepo) Set(key, value string) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.values[key] = value
	return nil
}

func (r *InMemoryRepo) Delete(key string) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.values, key)
	return nil
}

// Len is the number of stored keys.
func (r *InMemoryRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.values)
}
