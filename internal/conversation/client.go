package conversation

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"salonbot/internal/models"
	"salonbot/internal/validation"
)

func (e *Engine) startClient(ctx context.Context, s *Session, msg Message) {
	e.askClientFullName(ctx, s, msg.ChatID)
}

func (e *Engine) askClientFullName(ctx context.Context, s *Session, chatID int64) {
	e.say(ctx, chatID, "Укажите Фамилию и Имя клиента")
	s.Step = StepClientFullName
}

func (e *Engine) handleClient(ctx context.Context, s *Session, msg Message) {
	chatID := msg.ChatID

	switch s.Step {
	case StepClientFullName:
		if strings.TrimSpace(msg.Text) == "" {
			e.rejected(s)
			e.askClientFullName(ctx, s, chatID)
			return
		}
		s.Client.FullName = msg.Text
		e.say(ctx, chatID, "Напишите емайл клиента")
		s.Step = StepClientEmail

	case StepClientEmail:
		if !validation.Email(msg.Text) {
			e.rejected(s)
			e.say(ctx, chatID, "Ошибка: некорректный емайл адрес, повторите попытку")
			return
		}
		s.Client.Email = msg.Text
		e.say(ctx, chatID, "Укажите телефон клиента")
		s.Step = StepClientPhone

	case StepClientPhone:
		if !validation.Phone(msg.Text) {
			e.rejected(s)
			e.say(ctx, chatID, "Ошибка: некорректный телефон, повторите попытку. Введите номер телефона клиента.")
			return
		}
		s.Client.Phone = msg.Text
		e.askYesNo(ctx, chatID, "Добавить заметку о клиенте?")
		s.Step = StepClientNoteChoice

	case StepClientNoteChoice:
		if isYes(msg.Text) {
			e.say(ctx, chatID, "Напишите заметку о клиенте")
			e.deleteKeyboard(ctx, chatID)
			s.Step = StepClientNote
			return
		}
		e.deleteKeyboard(ctx, chatID)
		e.finalizeClient(ctx, s, msg)

	case StepClientNote:
		if strings.TrimSpace(msg.Text) != "" {
			s.Client.Note = msg.Text
		}
		e.finalizeClient(ctx, s, msg)
	}
}

func (e *Engine) finalizeClient(ctx context.Context, s *Session, msg Message) {
	e.say(ctx, msg.ChatID, "Создаем клиента...")

	created := msg.Date
	if created == 0 {
		created = e.settings.Now().Unix()
	}
	s.Client.CreatedAt = created

	e.sayHTML(ctx, msg.ChatID, clientSummary(s.Client, msg.From))

	callCtx, cancel := e.withTimeout(ctx)
	err := e.clients.Append(callCtx, models.Entry(*s.Client))
	cancel()
	if err != nil {
		e.reporter.Report(ctx, msg, "storage", err, "Ошибка: не удалось сохранить клиента")
	} else {
		e.say(ctx, msg.ChatID, "Клиент успешно создан и сохранен!")
	}

	e.finish(ctx, s, msg.ChatID)
}

func clientSummary(c *models.ClientRecord, manager User) string {
	var b strings.Builder
	b.WriteString("<i>Информация о Клиенте:</i>\r\n")
	fmt.Fprintf(&b, "<b>Фамилия и  Имя клиента: </b>%s\r\n", html.EscapeString(c.FullName))
	fmt.Fprintf(&b, "<b>Емайл-адресс:</b> %s\r\n", html.EscapeString(c.Email))
	fmt.Fprintf(&b, "<b>Телефон:</b> %s\r\n", html.EscapeString(c.Phone))
	if c.Note != "" {
		fmt.Fprintf(&b, "<b>Заметка о клиенте: </b>%s\r\n", html.EscapeString(c.Note))
	}
	b.WriteString(managerLine(manager))
	fmt.Fprintf(&b, "<i>Дата создания клиента: </i>%s\r\n", time.Unix(c.CreatedAt, 0).Format("02.01.2006 15:04:05"))
	return b.String()
}
