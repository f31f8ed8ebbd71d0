package store

import (
	"context"
	"sync"
	"time"

	"github.com/angelcm/crm-leads-dashboard/internal/models"
)

// Cache guarda listas normalizadas por fuente/finalidad durante un TTL corto.
type Cache interface {
	Get(ctx context.Context, key string) ([]models.Lead, bool)
	Set(ctx context.Context, key string, leads []models.Lead)
}

type entry struct {
	leads   []models.Lead
	expires time.Time
}

type MemoryStore struct {
	mu  sync.RWMutex
	ttl time.Duration
	now func() time.Time
	m   map[string]entry
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, m: make(map[string]entry)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]models.Lead, bool) {
	s.mu.RLock()
	e, ok := s.m[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !s.now().Before(e.expires) {
		s.mu.Lock()
		delete(s.m, key)
		s.mu.Unlock()
		return nil, false
	}
	return clone(e.leads), true
}

func (s *MemoryStore) Set(_ context.Context, key string, leads []models.Lead) {
	if s.ttl <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = entry{leads: clone(leads), expires: s.now().Add(s.ttl)}
}

// Len cuenta entradas, vencidas incluidas.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

func clone(in []models.Lead) []models.Lead {
	out := make([]models.Lead, len(in))
	copy(out, in)
	return out
}
