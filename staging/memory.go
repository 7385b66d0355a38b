package staging

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local fallback used in tests and when no redis
// address is configured. Same contract, no cross-instance sharing.
type MemoryStore struct {
	mu    sync.Mutex
	slots map[string]memorySlot
}

type memorySlot struct {
	pending *PendingOrder
	expires time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string]memorySlot)}
}

func (s *MemoryStore) Put(_ context.Context, pending *PendingOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[pending.UserID] = memorySlot{pending: pending, expires: time.Now().Add(SlotTTL)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, userID string) (*PendingOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[userID]
	if !ok || time.Now().After(slot.expires) {
		delete(s.slots, userID)
		return nil, ErrNoPendingOrder
	}
	return slot.pending, nil
}

func (s *MemoryStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, userID)
	return nil
}

// MemoryReplayGuard is the in-process ReplayGuard counterpart.
type MemoryReplayGuard struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryReplayGuard() *MemoryReplayGuard {
	return &MemoryReplayGuard{seen: make(map[string]struct{})}
}

func (g *MemoryReplayGuard) Seen(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.seen[key]
	return ok, nil
}

func (g *MemoryReplayGuard) Mark(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seen[key] = struct{}{}
	return nil
}
