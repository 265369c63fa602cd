package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonbot/internal/conversation"
)

func TestBot_RejectsStrangers(t *testing.T) {
	tb := newTestBot(t, nil)

	tb.send(t, textUpdate(999, "/add_client"))

	assert.Equal(t, []string{textStranger}, tb.api.texts(chatID))
	_, ok := tb.session(t)
	assert.False(t, ok)
}

func TestBot_StartGreetsWithMenu(t *testing.T) {
	tb := newTestBot(t, nil)

	tb.send(t, textUpdate(userID, "/start"))

	assert.Equal(t, []string{"Привет, manager!", conversation.TextChooseMenu}, tb.api.texts(chatID))
}

func TestBot_ClientConversationThroughUpdates(t *testing.T) {
	tb := newTestBot(t, nil)

	tb.send(t, textUpdate(userID, "/add_client"))
	s, ok := tb.session(t)
	require.True(t, ok)
	assert.Equal(t, conversation.StepClientFullName, s.Step)

	tb.send(t,
		textUpdate(userID, "Ivanov Ivan"),
		textUpdate(userID, "ivan@example.com"),
		textUpdate(userID, "5551234"),
	)
	s, ok = tb.session(t)
	require.True(t, ok)
	assert.Equal(t, conversation.StepClientNoteChoice, s.Step)

	tb.send(t, textUpdate(userID, "Нет"))
	_, ok = tb.session(t)
	assert.False(t, ok, "finished conversation must be forgotten")
	assert.Equal(t, 1, tb.clients.Appends())
	assert.Equal(t, conversation.TextClosing, tb.api.lastText(chatID))
}

func TestBot_MenuTextStartsFlow(t *testing.T) {
	tb := newTestBot(t, nil)

	tb.send(t, textUpdate(userID, conversation.MenuAddSalon))

	s, ok := tb.session(t)
	require.True(t, ok)
	assert.Equal(t, conversation.FlowSalon, s.Flow)
}

func TestBot_CommandInterruptsConversation(t *testing.T) {
	tb := newTestBot(t, nil)

	tb.send(t, textUpdate(userID, "/add_client"), textUpdate(userID, "Ivanov Ivan"))
	tb.send(t, textUpdate(userID, "/create_order"))

	s, ok := tb.session(t)
	require.True(t, ok)
	assert.Equal(t, conversation.FlowOrder, s.Flow)
	assert.Equal(t, conversation.StepOrderPhoto, s.Step)
}

func TestBot_EndCancelsConversation(t *testing.T) {
	tb := newTestBot(t, nil)

	tb.send(t, textUpdate(userID, "/add_client"), textUpdate(userID, "/end"))

	_, ok := tb.session(t)
	assert.False(t, ok)
	assert.Equal(t, conversation.TextClosing, tb.api.lastText(chatID))
	assert.Len(t, tb.api.requests, 1)
	_, isDelete := tb.api.requests[0].(tgbotapi.DeleteMessageConfig)
	assert.True(t, isDelete)

	before := len(tb.api.texts(chatID))
	tb.send(t, textUpdate(userID, "Ivanov Ivan"))
	assert.Len(t, tb.api.texts(chatID), before, "input outside a conversation is ignored")
}

func TestBot_UnknownCommand(t *testing.T) {
	tb := newTestBot(t, nil)

	tb.send(t, textUpdate(userID, "/add_client"), textUpdate(userID, "/refund"))

	assert.Equal(t, textUnknownCommand, tb.api.lastText(chatID))
	_, ok := tb.session(t)
	assert.False(t, ok)
}

func TestBot_RecoversFromPanic(t *testing.T) {
	tb := newTestBot(t, panickingOCR{})

	tb.send(t, textUpdate(userID, "/create_order"))
	require.NotPanics(t, func() {
		tb.send(t, photoUpdate(userID, "label"))
	})

	assert.Contains(t, tb.api.texts(chatID), textPanic+conversation.TextRetry)
	audit := tb.api.texts(auditChatID)
	require.Len(t, audit, 1)
	assert.True(t, strings.HasPrefix(audit[0], "❗️ Ошибка:\npanic: vision exploded"))

	_, ok := tb.session(t)
	assert.False(t, ok)
}

func TestBot_PollingStopsOnCancel(t *testing.T) {
	tb := newTestBot(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- tb.bot.Start(ctx) }()

	tb.api.updates <- textUpdate(userID, "/start")
	require.Eventually(t, func() bool {
		return len(tb.api.texts(chatID)) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("polling did not stop")
	}
	assert.True(t, tb.api.stopped)
}

func TestBot_StartWebhook(t *testing.T) {
	tb := newTestBot(t, nil)

	require.NoError(t, tb.bot.StartWebhook("https://bot.example"))
	require.Len(t, tb.api.requests, 1)
	cfg, ok := tb.api.requests[0].(tgbotapi.WebhookConfig)
	require.True(t, ok)
	assert.Equal(t, "https://bot.example/telegram-webhook", cfg.URL.String())
	assert.Equal(t, 40, cfg.MaxConnections)
}

func TestWebhookHandler(t *testing.T) {
	tb := newTestBot(t, nil)
	handler := tb.bot.WebhookHandler()

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, WebhookPath, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := `{"update_id":1,"message":{"message_id":1,"date":1700000000,"text":"/start",` +
		`"from":{"id":123,"username":"manager"},"chat":{"id":456,"type":"private"},` +
		`"entities":[{"type":"bot_command","offset":0,"length":6}]}}`
	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, rec.Code)

	require.Eventually(t, func() bool {
		return len(tb.api.texts(chatID)) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestChatLocks_SerializeSameChat(t *testing.T) {
	locks := newChatLocks()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock(chatID)
			mu.Lock()
			active++
			maxSeen = max(maxSeen, active)
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Empty(t, locks.locks)
}

func TestChatLocks_IndependentChats(t *testing.T) {
	locks := newChatLocks()
	unlockA := locks.lock(1)
	defer unlockA()

	acquired := make(chan struct{})
	go func() {
		unlock := locks.lock(2)
		unlock()
		close(acquired)
	}()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock on another chat blocked")
	}
}

func TestChatQueues_KeepArrivalOrder(t *testing.T) {
	var (
		mu   sync.Mutex
		seen = make(map[int64][]int)
	)
	queues := newChatQueues(func(u tgbotapi.Update) {
		time.Sleep(time.Millisecond)
		mu.Lock()
		defer mu.Unlock()
		seen[u.Message.Chat.ID] = append(seen[u.Message.Chat.ID], u.UpdateID)
	})

	want := make([]int, 0, 20)
	for i := 0; i < 20; i++ {
		for _, id := range []int64{1, 2} {
			u := tgbotapi.Update{UpdateID: i, Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: id}}}
			queues.push(updateChatID(u), u)
		}
		want = append(want, i)
	}

	require.Eventually(t, func() bool {
		queues.mu.Lock()
		defer queues.mu.Unlock()
		return len(queues.pending) == 0
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, want, seen[1])
	assert.Equal(t, want, seen[2])
}

func TestWebhookHandler_ConversationInOrder(t *testing.T) {
	tb := newTestBot(t, nil)
	handler := tb.bot.WebhookHandler()

	for i, text := range []string{"/add_client", "Ivanov Ivan", "ivan@example.com", "5551234"} {
		u := textUpdate(userID, text)
		u.UpdateID = i + 1
		body, err := json.Marshal(u)
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodPost, WebhookPath, bytes.NewReader(body)))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	require.Eventually(t, func() bool {
		s, ok := tb.session(t)
		return ok && s.Step == conversation.StepClientNoteChoice
	}, time.Second, 10*time.Millisecond)

	s, _ := tb.session(t)
	assert.Equal(t, "Ivanov Ivan", s.Client.FullName)
	assert.Equal(t, "ivan@example.com", s.Client.Email)
	assert.Equal(t, "5551234", s.Client.Phone)
}

func TestToMessage(t *testing.T) {
	photo := photoUpdate(userID, "front").Message
	photo.Caption = "фасад"
	in := toMessage(photo)
	assert.Equal(t, conversation.KindPhoto, in.Kind)
	assert.Equal(t, "фасад", in.Text)
	largest, ok := in.LargestPhoto()
	require.True(t, ok)
	assert.Equal(t, conversation.Photo{FileID: "front", Width: 1280, Height: 960}, largest)

	loc := &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID},
		Location: &tgbotapi.Location{Latitude: 48.85, Longitude: 2.35},
	}
	in = toMessage(loc)
	assert.Equal(t, conversation.KindLocation, in.Kind)
	assert.Equal(t, &conversation.Location{Latitude: 48.85, Longitude: 2.35}, in.Location)
	assert.Zero(t, in.From.ID)

	in = toMessage(textUpdate(userID, "hello").Message)
	assert.Equal(t, conversation.Message{
		ChatID: chatID,
		Kind:   conversation.KindText,
		Text:   "hello",
		Date:   1700000000,
		From:   conversation.User{ID: userID, Username: "manager", FirstName: "Anna"},
	}, in)
}
