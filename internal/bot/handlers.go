package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"salonbot/internal/conversation"
)

// handleMessage processes a single message; updates of one chat never run concurrently
func (b *Bot) handleMessage(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	unlock := b.locks.lock(chatID)
	defer unlock()

	ctx := context.Background()
	in := toMessage(message)

	// Recover from panics to prevent bot crashes
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleMessage", zap.Any("panic", r), zap.Int64("chat_id", chatID))
			b.engine.Reporter().Report(ctx, in, "bot", fmt.Errorf("panic: %v", r), textPanic)
			b.dropSession(ctx, chatID)
		}
	}()

	act, flow := route(message)
	if act != actionNone {
		// Any command interrupts the ongoing conversation
		b.dropSession(ctx, chatID)
	}

	switch act {
	case actionStart:
		b.engine.Greet(ctx, in)
	case actionEnd:
		b.engine.Cancel(ctx, chatID)
	case actionFlow:
		b.startConversation(ctx, flow, in)
	case actionUnknown:
		b.sendText(chatID, textUnknownCommand)
	default:
		b.continueConversation(ctx, in)
	}
}

func (b *Bot) startConversation(ctx context.Context, flow conversation.Flow, in conversation.Message) {
	s, err := b.engine.Start(ctx, flow, in)
	if err != nil {
		b.logger.Error("Failed to start conversation", zap.Error(err), zap.String("flow", string(flow)))
		return
	}
	b.storeSession(ctx, in, s)
}

func (b *Bot) continueConversation(ctx context.Context, in conversation.Message) {
	s, ok, err := b.sessions.Load(ctx, in.ChatID)
	if err != nil {
		b.engine.Reporter().Report(ctx, in, "session", err, "Не удалось загрузить диалог")
		return
	}
	if !ok {
		b.logger.Debug("Message outside of a conversation", zap.Int64("chat_id", in.ChatID))
		return
	}

	if err := b.engine.Handle(ctx, s, in); err != nil {
		b.logger.Warn("Dropping broken conversation", zap.Error(err), zap.Int64("chat_id", in.ChatID))
		b.dropSession(ctx, in.ChatID)
		return
	}
	b.storeSession(ctx, in, s)
}

// storeSession keeps an unfinished conversation and forgets a finished one
func (b *Bot) storeSession(ctx context.Context, in conversation.Message, s *conversation.Session) {
	if s.Done() {
		b.dropSession(ctx, in.ChatID)
		return
	}
	if err := b.sessions.Save(ctx, in.ChatID, s); err != nil {
		b.engine.Reporter().Report(ctx, in, "session", err, "Не удалось сохранить диалог")
	}
}

func (b *Bot) dropSession(ctx context.Context, chatID int64) {
	if err := b.sessions.Delete(ctx, chatID); err != nil {
		b.logger.Warn("Failed to delete session", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendText(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Warn("Failed to send message", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

// toMessage reduces a Telegram message to what the intakes read
func toMessage(message *tgbotapi.Message) conversation.Message {
	in := conversation.Message{
		ChatID: message.Chat.ID,
		Kind:   conversation.KindText,
		Text:   message.Text,
		Date:   int64(message.Date),
	}
	if message.From != nil {
		in.From = conversation.User{
			ID:        message.From.ID,
			Username:  message.From.UserName,
			FirstName: message.From.FirstName,
		}
	}

	switch {
	case len(message.Photo) > 0:
		in.Kind = conversation.KindPhoto
		in.Text = message.Caption
		in.Photos = make([]conversation.Photo, 0, len(message.Photo))
		for _, p := range message.Photo {
			in.Photos = append(in.Photos, conversation.Photo{FileID: p.FileID, Width: p.Width, Height: p.Height})
		}
	case message.Location != nil:
		in.Kind = conversation.KindLocation
		in.Location = &conversation.Location{
			Latitude:  message.Location.Latitude,
			Longitude: message.Location.Longitude,
		}
	}
	return in
}
