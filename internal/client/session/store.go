// Package session holds the client's access token and coordinates its
// renewal so that concurrent callers share a single refresh exchange.
package session

import "sync"

// TokenStore caches the current access token.
type TokenStore interface {
	Get() (string, bool)
	Set(token string)
	Clear()
}

// MemoryStore is a process-local TokenStore. The token is never written
// to disk.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// Set replaces the token; an empty token clears it.
func (s *MemoryStore) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *MemoryStore) Clear() {
	s.Set("")
}
