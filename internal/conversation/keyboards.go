package conversation

import "strings"

// Root menu entries, also accepted as plain-text triggers
const (
	MenuCreateOrder = "Создать заказ"
	MenuAddSalon    = "Добавить салон"
	MenuAddClient   = "Добавить клиента"
)

const (
	answerYes = "Да"
	answerNo  = "Нет"

	choiceAddProduct = "Добавить еще один продукт"
	choiceCheckout   = "Продолжить оформление заказа"

	shareLocation = "Поделиться местоположением"
)

// Texts shared by the intakes and the command handlers
const (
	TextClosing    = "Диалог завершен."
	TextChooseMenu = "Выберите необходимое действие из списка команд:"
	TextRetry      = ". Пожалуйста, попробуйте еще раз."
)

func row(texts ...string) []Button {
	buttons := make([]Button, 0, len(texts))
	for _, text := range texts {
		buttons = append(buttons, Button{Text: text})
	}
	return buttons
}

// MenuKeyboard lists the three intakes
func MenuKeyboard() Keyboard {
	return Keyboard{
		row(MenuCreateOrder),
		row(MenuAddSalon),
		row(MenuAddClient),
	}
}

func yesNoKeyboard() Keyboard {
	return Keyboard{row(answerYes, answerNo)}
}

func locationKeyboard() Keyboard {
	return Keyboard{{{Text: shareLocation, RequestLocation: true}}}
}

func countKeyboard() Keyboard {
	return Keyboard{
		row("1", "2", "3", "4", "5"),
		row("6", "7", "8", "9", "10"),
	}
}

func nextActionKeyboard() Keyboard {
	return Keyboard{
		row(choiceAddProduct),
		row(choiceCheckout),
	}
}

func percentKeyboard() Keyboard {
	return Keyboard{
		row(answerNo),
		row("5%", "10%", "15%", "20%"),
		row("25%", "30%", "35%", "40%"),
	}
}

func paymentKeyboard() Keyboard {
	return Keyboard{
		row("Revolut"),
		row("Credit card"),
		row("Cash"),
		row("Check"),
	}
}

var (
	yesAnswers = []string{"да", "yes"}
	noAnswers  = []string{"нет", "no", "none"}
)

func isYes(text string) bool {
	return matchesAny(text, yesAnswers)
}

func isNo(text string) bool {
	return matchesAny(text, noAnswers)
}

func matchesAny(text string, answers []string) bool {
	text = strings.TrimSpace(text)
	for _, a := range answers {
		if strings.EqualFold(text, a) {
			return true
		}
	}
	return false
}
