package bot

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"salonbot/internal/conversation"
	"salonbot/internal/session"
)

// API is the part of tgbotapi.BotAPI the bot uses
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	SendMediaGroup(config tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	GetWebhookInfo() (tgbotapi.WebhookInfo, error)
}

// Bot represents the Telegram bot wrapper
type Bot struct {
	api          API
	engine       *conversation.Engine
	sessions     session.Store
	allowedUsers map[int64]bool
	locks        *chatLocks
	queues       *chatQueues
	logger       *zap.Logger
}

// chatLocks serializes updates per chat; entries live only while someone holds or waits on them
type chatLocks struct {
	mu    sync.Mutex
	locks map[int64]*chatLock
}

type chatLock struct {
	mu   sync.Mutex
	refs int
}

func newChatLocks() *chatLocks {
	return &chatLocks{locks: make(map[int64]*chatLock)}
}

// lock blocks until chatID is free and returns the unlock function
func (c *chatLocks) lock(chatID int64) func() {
	c.mu.Lock()
	l, ok := c.locks[chatID]
	if !ok {
		l = &chatLock{}
		c.locks[chatID] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, chatID)
		}
		c.mu.Unlock()
	}
}

// chatQueues runs updates of one chat in arrival order on a single goroutine.
// A chat has an entry in pending exactly while its drain goroutine is running.
type chatQueues struct {
	mu      sync.Mutex
	pending map[int64][]tgbotapi.Update
	handle  func(tgbotapi.Update)
}

func newChatQueues(handle func(tgbotapi.Update)) *chatQueues {
	return &chatQueues{pending: make(map[int64][]tgbotapi.Update), handle: handle}
}

// push queues update behind the earlier updates of chatID and returns immediately
func (q *chatQueues) push(chatID int64, update tgbotapi.Update) {
	q.mu.Lock()
	backlog, running := q.pending[chatID]
	q.pending[chatID] = append(backlog, update)
	q.mu.Unlock()

	if !running {
		go q.drain(chatID)
	}
}

func (q *chatQueues) drain(chatID int64) {
	for {
		q.mu.Lock()
		backlog := q.pending[chatID]
		if len(backlog) == 0 {
			delete(q.pending, chatID)
			q.mu.Unlock()
			return
		}
		update := backlog[0]
		q.pending[chatID] = backlog[1:]
		q.mu.Unlock()

		q.handle(update)
	}
}

func updateChatID(update tgbotapi.Update) int64 {
	if chat := update.FromChat(); chat != nil {
		return chat.ID
	}
	return 0
}
