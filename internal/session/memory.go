package session

import (
	"context"
	"sync"
	"time"

	"salonbot/internal/conversation"

	"go.uber.org/zap"
)

type memoryEntry struct {
	raw     []byte
	expires time.Time
}

// MemoryStore keeps sessions in process memory, serialized so callers never share state.
// Sessions idle for longer than ttl are forgotten; a zero ttl keeps them for the life of the process.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]memoryEntry
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewMemoryStore creates an empty store
func NewMemoryStore(ttl time.Duration, logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[int64]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

func (m *MemoryStore) Load(ctx context.Context, chatID int64) (*conversation.Session, bool, error) {
	m.mu.RLock()
	entry, ok := m.sessions[chatID]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if m.expired(entry) {
		m.logger.Debug("Session expired", zap.Int64("chat_id", chatID))
		return nil, false, m.Delete(ctx, chatID)
	}

	s, err := decode(entry.raw)
	if err != nil {
		m.logger.Warn("Dropping unreadable session", zap.Int64("chat_id", chatID), zap.Error(err))
		return nil, false, m.Delete(ctx, chatID)
	}
	return s, true, nil
}

func (m *MemoryStore) Save(ctx context.Context, chatID int64, s *conversation.Session) error {
	raw, err := encode(s)
	if err != nil {
		return err
	}

	entry := memoryEntry{raw: raw}
	if m.ttl > 0 {
		entry.expires = m.now().Add(m.ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// abandoned chats are never loaded again, so sweep them here
	for id, e := range m.sessions {
		if m.expired(e) {
			delete(m.sessions, id)
		}
	}
	m.sessions[chatID] = entry
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
	return nil
}

// Close closes the store (no-op for memory)
func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) expired(e memoryEntry) bool {
	return !e.expires.IsZero() && !m.now().Before(e.expires)
}
