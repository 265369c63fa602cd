package conversation_test

import (
	"context"
	"testing"
	"time"

	"salonbot/internal/conversation"
	"salonbot/internal/conversation/stubs"
	storagestubs "salonbot/internal/storage/stubs"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	chatID      = int64(456)
	userID      = int64(123)
	auditChatID = int64(-100)
	messageDate = int64(1700000000)
)

type harness struct {
	engine    *conversation.Engine
	transport *stubs.Transport
	files     *stubs.Files
	ocr       *stubs.OCR
	orders    *stubs.Orders
	documents *stubs.Documents
	clients   *storagestubs.MockRepository
	salons    *storagestubs.MockRepository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		transport: stubs.NewTransport(),
		files:     &stubs.Files{},
		ocr:       &stubs.OCR{},
		orders:    &stubs.Orders{Total: "90.00", UpdateTotal: "77.50"},
		documents: &stubs.Documents{},
		clients:   storagestubs.NewMockRepository(),
		salons:    storagestubs.NewMockRepository(),
	}

	engine, err := conversation.NewEngine(conversation.Deps{
		Transport: h.transport,
		Files:     h.files,
		OCR:       h.ocr,
		Orders:    h.orders,
		Documents: h.documents,
		Clients:   h.clients,
		Salons:    h.salons,
		Logger:    zap.NewNop(),
	}, conversation.Settings{
		AuditChatID:    auditChatID,
		SalonImagesDir: "/images",
		Timeout:        time.Second,
		Now:            func() time.Time { return time.Unix(messageDate+60, 0) },
	})
	require.NoError(t, err)
	h.engine = engine
	return h
}

func (h *harness) start(t *testing.T, flow conversation.Flow) *conversation.Session {
	t.Helper()
	s, err := h.engine.Start(context.Background(), flow, text("/start"))
	require.NoError(t, err)
	return s
}

func (h *harness) reply(t *testing.T, s *conversation.Session, msgs ...conversation.Message) {
	t.Helper()
	for _, msg := range msgs {
		require.NoError(t, h.engine.Handle(context.Background(), s, msg))
	}
}

func (h *harness) lastText(t *testing.T) string {
	t.Helper()
	last, ok := h.transport.Last(chatID)
	require.True(t, ok, "no message was sent")
	return last.Text
}

func sender() conversation.User {
	return conversation.User{ID: userID, Username: "manager", FirstName: "Anna"}
}

func text(s string) conversation.Message {
	return conversation.Message{
		ChatID: chatID,
		Kind:   conversation.KindText,
		Text:   s,
		Date:   messageDate,
		From:   sender(),
	}
}

func texts(values ...string) []conversation.Message {
	msgs := make([]conversation.Message, 0, len(values))
	for _, v := range values {
		msgs = append(msgs, text(v))
	}
	return msgs
}

func photo(fileID string) conversation.Message {
	return conversation.Message{
		ChatID: chatID,
		Kind:   conversation.KindPhoto,
		Photos: []conversation.Photo{
			{FileID: fileID + "_small", Width: 90, Height: 90},
			{FileID: fileID, Width: 1280, Height: 1280},
		},
		Date: messageDate,
		From: sender(),
	}
}

func location(lat, lng float64) conversation.Message {
	return conversation.Message{
		ChatID:   chatID,
		Kind:     conversation.KindLocation,
		Location: &conversation.Location{Latitude: lat, Longitude: lng},
		Date:     messageDate,
		From:     sender(),
	}
}

// storedRecord unwraps the single {id: record} entry at index i
func storedRecord(t *testing.T, repo *storagestubs.MockRepository, i int) map[string]any {
	t.Helper()
	records, err := repo.ReadAll(context.Background())
	require.NoError(t, err)
	require.Greater(t, len(records), i)
	require.Len(t, records[i], 1)
	for _, v := range records[i] {
		record, ok := v.(map[string]any)
		require.True(t, ok)
		return record
	}
	return nil
}
