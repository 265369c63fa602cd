package session

import (
	"context"
	"encoding/json"
	"fmt"

	"salonbot/internal/conversation"
)

// Store persists the active conversation of each chat
type Store interface {
	// Load returns false when the chat has no resumable conversation
	Load(ctx context.Context, chatID int64) (*conversation.Session, bool, error)
	Save(ctx context.Context, chatID int64, s *conversation.Session) error
	Delete(ctx context.Context, chatID int64) error
	Close() error
}

func encode(s *conversation.Session) ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}
	return raw, nil
}

func decode(raw []byte) (*conversation.Session, error) {
	var s conversation.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
