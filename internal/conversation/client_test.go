package conversation_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"salonbot/internal/conversation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientIntake_Scenario(t *testing.T) {
	h := newHarness(t)
	s := h.start(t, conversation.FlowClient)
	assert.Equal(t, conversation.StepClientFullName, s.Step)
	assert.Equal(t, "Укажите Фамилию и Имя клиента", h.lastText(t))

	h.reply(t, s, texts("Ivanov Ivan", "ivan@example.com", "5551234", "no")...)

	assert.True(t, s.Done())
	assert.Equal(t, 1, h.clients.Appends())
	assert.Equal(t, 0, h.salons.Appends())

	record := storedRecord(t, h.clients, 0)
	assert.Equal(t, map[string]any{
		"fullName":    "Ivanov Ivan",
		"email":       "ivan@example.com",
		"phone":       "5551234",
		"note":        "",
		"dataCreated": float64(messageDate),
	}, record)

	sent := h.transport.Texts(chatID)
	assert.Contains(t, sent, "Клиент успешно создан и сохранен!")
	assert.Equal(t, conversation.TextClosing, sent[len(sent)-1])

	audit := h.transport.Texts(auditChatID)
	require.Len(t, audit, 1)
	assert.Contains(t, audit[0], "<b>Фамилия и  Имя клиента: </b>Ivanov Ivan")
	assert.Contains(t, audit[0], "<i>Менеджер NSlab: </i>Anna (@manager)")
	assert.NotContains(t, audit[0], "Заметка о клиенте")
}

func TestClientIntake_EmptyNameReprompts(t *testing.T) {
	h := newHarness(t)
	s := h.start(t, conversation.FlowClient)

	h.reply(t, s, text("   "))
	assert.Equal(t, conversation.StepClientFullName, s.Step)
	assert.Equal(t, "Укажите Фамилию и Имя клиента", h.lastText(t))
	assert.Empty(t, s.Client.FullName)
}

func TestClientIntake_InvalidEmailStays(t *testing.T) {
	h := newHarness(t)
	s := h.start(t, conversation.FlowClient)
	h.reply(t, s, text("Ivanov Ivan"))

	for _, bad := range []string{"ivan", "ivan@", "@example.com", "ivan example.com"} {
		h.reply(t, s, text(bad))
		assert.Equal(t, conversation.StepClientEmail, s.Step, bad)
		assert.Equal(t, "Ошибка: некорректный емайл адрес, повторите попытку", h.lastText(t))
	}
	assert.Empty(t, s.Client.Email)
}

func TestClientIntake_PhoneValidation(t *testing.T) {
	testCases := []struct {
		phone string
		ok    bool
	}{
		{phone: "5551234", ok: true},
		{phone: "0033612345678", ok: true},
		{phone: "+33612345678", ok: false},
		{phone: "555-1234", ok: false},
		{phone: "12.5", ok: false},
		{phone: "", ok: false},
	}

	for _, tc := range testCases {
		t.Run(tc.phone, func(t *testing.T) {
			h := newHarness(t)
			s := h.start(t, conversation.FlowClient)
			h.reply(t, s, texts("Ivanov Ivan", "ivan@example.com", tc.phone)...)

			if tc.ok {
				assert.Equal(t, conversation.StepClientNoteChoice, s.Step)
				assert.Equal(t, tc.phone, s.Client.Phone)
				last, _ := h.transport.Last(chatID)
				assert.Equal(t, "Добавить заметку о клиенте?", last.Text)
				assert.NotEmpty(t, last.Keyboard)
				return
			}
			assert.Equal(t, conversation.StepClientPhone, s.Step)
			assert.Empty(t, s.Client.Phone)
			assert.Equal(t, "Ошибка: некорректный телефон, повторите попытку. Введите номер телефона клиента.", h.lastText(t))
		})
	}
}

func TestClientIntake_WithNote(t *testing.T) {
	h := newHarness(t)
	s := h.start(t, conversation.FlowClient)
	h.reply(t, s, texts("Ivanov Ivan", "ivan@example.com", "5551234", "Да")...)
	assert.Equal(t, conversation.StepClientNote, s.Step)

	h.reply(t, s, text("VIP <client>"))
	require.True(t, s.Done())

	record := storedRecord(t, h.clients, 0)
	assert.Equal(t, "VIP <client>", record["note"])

	audit := h.transport.Texts(auditChatID)
	require.Len(t, audit, 1)
	assert.Contains(t, audit[0], "<b>Заметка о клиенте: </b>VIP &lt;client&gt;")
}

func TestClientIntake_EmptyNoteSkipped(t *testing.T) {
	h := newHarness(t)
	s := h.start(t, conversation.FlowClient)
	h.reply(t, s, texts("Ivanov Ivan", "ivan@example.com", "5551234", "да", "")...)

	require.True(t, s.Done())
	assert.Equal(t, "", storedRecord(t, h.clients, 0)["note"])
}

func TestClientIntake_CreatedAtFallsBackToNow(t *testing.T) {
	h := newHarness(t)
	s := h.start(t, conversation.FlowClient)
	h.reply(t, s, texts("Ivanov Ivan", "ivan@example.com", "5551234")...)

	last := text("Нет")
	last.Date = 0
	h.reply(t, s, last)

	assert.Equal(t, messageDate+60, s.Client.CreatedAt)
}

func TestClientIntake_PersistenceFailureSuppressesSuccess(t *testing.T) {
	h := newHarness(t)
	h.clients.FailWith(errors.New("disk full"))

	s := h.start(t, conversation.FlowClient)
	h.reply(t, s, texts("Ivanov Ivan", "ivan@example.com", "5551234", "Нет")...)

	assert.True(t, s.Done())
	assert.Equal(t, 1, h.clients.Appends())

	sent := h.transport.Texts(chatID)
	assert.NotContains(t, sent, "Клиент успешно создан и сохранен!")
	assert.Contains(t, sent, "Ошибка: не удалось сохранить клиента. Пожалуйста, попробуйте еще раз.")

	audit := h.transport.Texts(auditChatID)
	require.Len(t, audit, 2)
	assert.True(t, strings.HasPrefix(audit[1], "❗️ Ошибка:\ndisk full"))
	assert.Contains(t, audit[1], "User: 123 (manager)\nChat: 456")
	assert.Contains(t, audit[1], "client.go:")
}

func TestClientIntake_RepeatedAnswerGoesToCurrentStep(t *testing.T) {
	h := newHarness(t)
	s := h.start(t, conversation.FlowClient)
	h.reply(t, s, text("Ivanov Ivan"), text("ivan@example.com"))
	require.Equal(t, conversation.StepClientPhone, s.Step)

	h.reply(t, s, text("ivan@example.com"))
	assert.Equal(t, conversation.StepClientPhone, s.Step)
	assert.Equal(t, "ivan@example.com", s.Client.Email)
	assert.Empty(t, s.Client.Phone)
}

func TestClientIntake_ResumesFromSerializedSession(t *testing.T) {
	h := newHarness(t)
	s := h.start(t, conversation.FlowClient)
	h.reply(t, s, text("Ivanov Ivan"), text("ivan@example.com"))

	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var restored conversation.Session
	require.NoError(t, json.Unmarshal(raw, &restored))
	require.NoError(t, restored.Validate())
	assert.Equal(t, *s, restored)

	before := len(h.transport.Texts(chatID))
	h.reply(t, &restored, text("5551234"))
	assert.Equal(t, conversation.StepClientNoteChoice, restored.Step)
	assert.Len(t, h.transport.Texts(chatID), before+1)
}
