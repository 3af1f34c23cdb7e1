// Package store persists the association between a pull request and the Jira
// issue it is linked to. A stored empty key is a valid "unlinked" state and is
// distinct from a pull request that has never been reconciled.
package store

import (
	"context"
	"sync"

	"github.com/murrayju/jira-workflow-gitbot/pkg/types"
)

// Store reads and writes associations
type Store interface {
	Get(ctx context.Context, ref types.PullRequestRef) (issueKey string, ok bool, err error)
	Set(ctx context.Context, ref types.PullRequestRef, issueKey string) error
}

// MemoryStore keeps associations in process memory
type MemoryStore struct {
	mu   sync.RWMutex
	keys map[types.PullRequestRef]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[types.PullRequestRef]string)}
}

// Get returns the association of a pull request
func (s *MemoryStore) Get(_ context.Context, ref types.PullRequestRef) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.keys[ref]
	return key, ok, nil
}

// Set records the association of a pull request
func (s *MemoryStore) Set(_ context.Context, ref types.PullRequestRef, issueKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[ref] = issueKey
	return nil
}
