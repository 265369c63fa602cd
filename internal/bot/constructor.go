package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"salonbot/internal/conversation"
	"salonbot/internal/session"
)

// Connect authorizes token against the Bot API
func Connect(token string, logger *zap.Logger) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Error("Failed to create bot API", zap.Error(err))
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info("Bot authorized", zap.String("bot_username", api.Self.UserName))
	return api, nil
}

// NewBot creates a new Telegram bot
func NewBot(api API, engine *conversation.Engine, sessions session.Store, allowedUserIDs []int64, logger *zap.Logger) *Bot {
	allowedUsers := make(map[int64]bool)
	for _, id := range allowedUserIDs {
		allowedUsers[id] = true
	}

	b := &Bot{
		api:          api,
		engine:       engine,
		sessions:     sessions,
		allowedUsers: allowedUsers,
		locks:        newChatLocks(),
		logger:       logger,
	}
	b.queues = newChatQueues(b.HandleUpdate)
	return b
}
