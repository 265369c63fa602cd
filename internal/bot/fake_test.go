package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"salonbot/internal/conversation"
	"salonbot/internal/conversation/stubs"
	"salonbot/internal/session"
	storagestubs "salonbot/internal/storage/stubs"
)

const (
	chatID      = int64(456)
	userID      = int64(123)
	auditChatID = int64(-100)
)

// fakeAPI records everything sent to Telegram
type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	groups   []tgbotapi.MediaGroupConfig
	requests []tgbotapi.Chattable
	nextID   int
	fileURL  string
	updates  chan tgbotapi.Update
	stopped  bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 16)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) SendMediaGroup(config tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups = append(f.groups, config)
	return nil, nil
}

func (f *fakeAPI) GetFileDirectURL(fileID string) (string, error) {
	return f.fileURL + "/" + fileID + ".jpg", nil
}

func (f *fakeAPI) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeAPI) GetWebhookInfo() (tgbotapi.WebhookInfo, error) {
	return tgbotapi.WebhookInfo{URL: "https://bot.example/telegram-webhook"}, nil
}

// texts returns the text of every plain message sent to chat, skipping keyboard removals
func (f *fakeAPI) texts(chat int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		msg, ok := c.(tgbotapi.MessageConfig)
		if !ok || msg.ChatID != chat {
			continue
		}
		if _, remove := msg.ReplyMarkup.(tgbotapi.ReplyKeyboardRemove); remove {
			continue
		}
		out = append(out, msg.Text)
	}
	return out
}

func (f *fakeAPI) lastText(chat int64) string {
	texts := f.texts(chat)
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

type panickingOCR struct{}

func (panickingOCR) ExtractText(ctx context.Context, imageURL string) (string, error) {
	panic("vision exploded")
}

type testBot struct {
	bot      *Bot
	api      *fakeAPI
	sessions *session.MemoryStore
	clients  *storagestubs.MockRepository
}

func newTestBot(t *testing.T, ocr conversation.TextExtractor) *testBot {
	t.Helper()
	api := newFakeAPI()
	if ocr == nil {
		ocr = &stubs.OCR{Text: "Réf. 12345"}
	}
	clients := storagestubs.NewMockRepository()

	engine, err := conversation.NewEngine(conversation.Deps{
		Transport: NewTransport(api, time.Second, zap.NewNop()),
		Files:     &stubs.Files{},
		OCR:       ocr,
		Orders:    &stubs.Orders{Total: "90.00"},
		Documents: &stubs.Documents{},
		Clients:   clients,
		Salons:    storagestubs.NewMockRepository(),
		Logger:    zap.NewNop(),
	}, conversation.Settings{AuditChatID: auditChatID, SalonImagesDir: t.TempDir(), Timeout: time.Second})
	require.NoError(t, err)

	sessions := session.NewMemoryStore(time.Hour, zap.NewNop())
	return &testBot{
		bot:      NewBot(api, engine, sessions, []int64{userID}, zap.NewNop()),
		api:      api,
		sessions: sessions,
		clients:  clients,
	}
}

func textUpdate(from int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		From: &tgbotapi.User{ID: from, UserName: "manager", FirstName: "Anna"},
		Chat: &tgbotapi.Chat{ID: chatID},
		Date: 1700000000,
		Text: text,
	}
	if strings.HasPrefix(text, "/") {
		length := len(text)
		if i := strings.IndexByte(text, ' '); i > 0 {
			length = i
		}
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}}
	}
	return tgbotapi.Update{Message: msg}
}

func photoUpdate(from int64, fileID string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:  &tgbotapi.User{ID: from, UserName: "manager"},
		Chat:  &tgbotapi.Chat{ID: chatID},
		Date:  1700000000,
		Photo: []tgbotapi.PhotoSize{{FileID: fileID + "_s", Width: 90, Height: 90}, {FileID: fileID, Width: 1280, Height: 960}},
	}}
}

func (tb *testBot) send(t *testing.T, updates ...tgbotapi.Update) {
	t.Helper()
	for _, u := range updates {
		tb.bot.HandleUpdate(u)
	}
}

func (tb *testBot) session(t *testing.T) (*conversation.Session, bool) {
	t.Helper()
	s, ok, err := tb.sessions.Load(context.Background(), chatID)
	require.NoError(t, err)
	return s, ok
}
