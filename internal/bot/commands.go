package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"salonbot/internal/conversation"
)

const (
	textStranger       = "Извините, но мне запрещают разговаривать с незнакомцами."
	textUnknownCommand = "Неизвестная команда. Используйте /start, чтобы увидеть список действий."
	textPanic          = "Произошла ошибка"
)

type action int

const (
	actionNone action = iota
	actionStart
	actionEnd
	actionFlow
	actionUnknown
)

var commandFlows = map[string]conversation.Flow{
	"create_order": conversation.FlowOrder,
	"add_saloon":   conversation.FlowSalon,
	"add_client":   conversation.FlowClient,
}

var menuFlows = map[string]conversation.Flow{
	conversation.MenuCreateOrder: conversation.FlowOrder,
	conversation.MenuAddSalon:    conversation.FlowSalon,
	conversation.MenuAddClient:   conversation.FlowClient,
}

// route classifies a message as a command, a menu pick, or conversation input (actionNone)
func route(message *tgbotapi.Message) (action, conversation.Flow) {
	if message.IsCommand() {
		switch cmd := message.Command(); cmd {
		case "start":
			return actionStart, ""
		case "end":
			return actionEnd, ""
		default:
			if flow, ok := commandFlows[cmd]; ok {
				return actionFlow, flow
			}
			return actionUnknown, ""
		}
	}
	if flow, ok := menuFlows[message.Text]; ok {
		return actionFlow, flow
	}
	return actionNone, ""
}
