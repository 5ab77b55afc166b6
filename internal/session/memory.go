package session

import (
	"context"
	"time"

	"github.com/yourorg/catalogconsole/internal/cache"
)

// MemoryStore keeps browser sessions in process memory. Idle sessions
// expire after ttl; every read extends the deadline.
type MemoryStore struct {
	items *cache.Cache[Session]
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	cleanup := ttl / 4
	if cleanup < time.Second {
		cleanup = time.Second
	}
	return &MemoryStore{items: cache.New[Session](ttl, cleanup)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (Session, error) {
	s, _ := m.items.Touch(id)
	return s, nil
}

func (m *MemoryStore) Put(_ context.Context, id string, s Session) error {
	m.items.Set(id, s)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.items.Delete(id)
	return nil
}

// Stats reports the number of live and expired entries.
func (m *MemoryStore) Stats() cache.Stats { return m.items.GetStats() }

// Close stops the background cleanup.
func (m *MemoryStore) Close() error {
	m.items.Stop()
	return nil
}
