package conversation

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"

	"salonbot/internal/models"
	"salonbot/internal/validation"

	"go.uber.org/zap"
)

const mapsPlaceURL = "https://www.google.com/maps/place/%s,%s"

func (e *Engine) startSalon(ctx context.Context, s *Session, msg Message) {
	e.askSalonName(ctx, s, msg.ChatID)
}

func (e *Engine) askSalonName(ctx context.Context, s *Session, chatID int64) {
	e.say(ctx, chatID, "Укажите название салона")
	s.Step = StepSalonName
}

func (e *Engine) askSalonLocation(ctx context.Context, s *Session, chatID int64) {
	e.ask(ctx, chatID, "Нажмите кнопку \"поделиться местоположением\":", locationKeyboard())
	s.Step = StepSalonLocation
}

func (e *Engine) askSalonPromoName(ctx context.Context, s *Session, chatID int64) {
	e.say(ctx, chatID, "Укажите название для промокода на латинице (слитно, без пробелов, например: my-promocode или myPromocode)")
	s.Step = StepSalonPromoName
}

func (e *Engine) askSalonAdditionalPhoto(ctx context.Context, s *Session, chatID int64) {
	e.askYesNo(ctx, chatID, "Загрузить дополнительную фотографию?")
	s.Step = StepSalonAdditionalPhotoChoice
}

func (e *Engine) askSalonSocial(ctx context.Context, s *Session, chatID int64) {
	text := "Добавить ссылку на соц.сеть?"
	if len(s.Salon.SocLinks) > 0 {
		text = "Добавить ссылку на дополнительную соц.сеть?"
	}
	e.askYesNo(ctx, chatID, text)
	s.Step = StepSalonSocialChoice
}

func (e *Engine) askSalonNote(ctx context.Context, s *Session, chatID int64) {
	e.askYesNo(ctx, chatID, "Добавить заметку о салоне?")
	s.Step = StepSalonNoteChoice
}

func (e *Engine) handleSalon(ctx context.Context, s *Session, msg Message) {
	chatID := msg.ChatID

	switch s.Step {
	case StepSalonName:
		if strings.TrimSpace(msg.Text) == "" {
			e.rejected(s)
			e.askSalonName(ctx, s, chatID)
			return
		}
		s.Salon.Name = msg.Text
		e.askSalonLocation(ctx, s, chatID)

	case StepSalonLocation:
		if msg.Kind != KindLocation || msg.Location == nil {
			e.rejected(s)
			e.say(ctx, chatID, "Ошибка: проблема с определением местоположение, повторите попытку")
			e.askSalonLocation(ctx, s, chatID)
			return
		}
		s.Salon.Location = mapLink(*msg.Location)
		e.deleteKeyboard(ctx, chatID)
		e.say(ctx, chatID, "Загрузите фотографию салона")
		s.Step = StepSalonPhoto

	case StepSalonPhoto:
		if !e.saveSalonPhoto(ctx, s, msg) {
			e.say(ctx, chatID, "Загрузите фотографию салона")
			return
		}
		e.say(ctx, chatID, "Напишите емайл салона")
		s.Step = StepSalonEmail

	case StepSalonEmail:
		if msg.Kind == KindPhoto {
			e.saveSalonPhoto(ctx, s, msg)
			return
		}
		if !validation.Email(msg.Text) {
			e.rejected(s)
			e.say(ctx, chatID, "Ошибка: некорректный емайл адресс, повторите попытку")
			return
		}
		s.Salon.Email = msg.Text
		e.say(ctx, chatID, "Укажите телефон салона")
		s.Step = StepSalonPhone

	case StepSalonPhone:
		if !validation.Phone(msg.Text) {
			e.rejected(s)
			e.say(ctx, chatID, "Ошибка: некорректный телефон, повторите попытку. Введите номер телефона салона.")
			return
		}
		s.Salon.Phone = msg.Text
		e.say(ctx, chatID, "Укажите Фамилию и Имя контактного лица")
		s.Step = StepSalonPerson

	case StepSalonPerson:
		if strings.TrimSpace(msg.Text) == "" {
			e.rejected(s)
			e.say(ctx, chatID, "Укажите Фамилию и Имя контактного лица")
			return
		}
		s.Salon.Person = msg.Text
		e.askYesNo(ctx, chatID, "Создать промокод?")
		s.Step = StepSalonPromoChoice

	case StepSalonPromoChoice:
		e.deleteKeyboard(ctx, chatID)
		if isYes(msg.Text) {
			e.askSalonPromoName(ctx, s, chatID)
			return
		}
		e.askSalonAdditionalPhoto(ctx, s, chatID)

	case StepSalonPromoName:
		code := strings.TrimSpace(msg.Text)
		if code != "" && !isNo(code) {
			if !validation.Promocode(code) {
				e.rejected(s)
				e.say(ctx, chatID, "Ошибка: некорректный промокод, повторите попытку")
				e.askSalonPromoName(ctx, s, chatID)
				return
			}
			s.Salon.Promocode = code
		}
		e.askSalonAdditionalPhoto(ctx, s, chatID)

	case StepSalonAdditionalPhotoChoice:
		e.deleteKeyboard(ctx, chatID)
		if isYes(msg.Text) {
			e.say(ctx, chatID, "Загрузите фотографию")
			s.Step = StepSalonAdditionalPhoto
			return
		}
		e.askSalonSocial(ctx, s, chatID)

	case StepSalonAdditionalPhoto:
		if !e.saveSalonPhoto(ctx, s, msg) {
			e.say(ctx, chatID, "Загрузите фотографию")
			return
		}
		e.askSalonAdditionalPhoto(ctx, s, chatID)

	case StepSalonSocialChoice:
		if isYes(msg.Text) {
			e.say(ctx, chatID, "Отправьте ссылку на соц.сеть")
			s.Step = StepSalonSocialLink
			return
		}
		e.deleteKeyboard(ctx, chatID)
		e.askSalonNote(ctx, s, chatID)

	case StepSalonSocialLink:
		link := strings.TrimSpace(msg.Text)
		if link == "" {
			e.rejected(s)
			e.say(ctx, chatID, "Отправьте ссылку на соц.сеть")
			return
		}
		s.Salon.AddSocialLink(link)
		e.askSalonSocial(ctx, s, chatID)

	case StepSalonNoteChoice:
		if isYes(msg.Text) {
			e.say(ctx, chatID, "Напишите заметку о салоне")
			e.deleteKeyboard(ctx, chatID)
			s.Step = StepSalonNote
			return
		}
		e.deleteKeyboard(ctx, chatID)
		e.finalizeSalon(ctx, s, msg)

	case StepSalonNote:
		if strings.TrimSpace(msg.Text) != "" {
			s.Salon.Note = msg.Text
		}
		e.finalizeSalon(ctx, s, msg)
	}
}

// saveSalonPhoto stores the largest variant of a photo message
func (e *Engine) saveSalonPhoto(ctx context.Context, s *Session, msg Message) bool {
	photo, ok := msg.LargestPhoto()
	if !ok {
		e.rejected(s)
		return false
	}

	callCtx, cancel := e.withTimeout(ctx)
	path, err := e.files.SaveFile(callCtx, photo.FileID, e.settings.SalonImagesDir)
	cancel()
	if err != nil {
		e.reporter.Report(ctx, msg, "telegram", err, "Ошибка: не удалось сохранить фотографию")
		return false
	}

	s.Salon.AddPhoto(photo.FileID, path)
	return true
}

func (e *Engine) finalizeSalon(ctx context.Context, s *Session, msg Message) {
	chatID := msg.ChatID
	e.say(ctx, chatID, "Создаем салон...")

	e.sayHTML(ctx, chatID, salonSummary(s.Salon, msg.From))
	e.sendSalonPhotos(ctx, chatID, s.Salon)

	callCtx, cancel := e.withTimeout(ctx)
	err := e.salons.Append(callCtx, models.Entry(*s.Salon))
	cancel()
	if err != nil {
		e.reporter.Report(ctx, msg, "storage", err, "Ошибка: не удалось сохранить данные о салоне.")
	} else {
		e.say(ctx, chatID, "Салон успешно создан и сохранен!")
	}

	e.finish(ctx, s, chatID)
}

func (e *Engine) sendSalonPhotos(ctx context.Context, chatID int64, salon *models.SalonRecord) {
	if len(salon.Photos) == 0 {
		return
	}
	fileIDs := make([]string, 0, len(salon.Photos))
	for id := range salon.Photos {
		fileIDs = append(fileIDs, id)
	}
	sort.Strings(fileIDs)

	targets := []int64{chatID}
	if e.settings.AuditChatID != 0 {
		targets = append(targets, e.settings.AuditChatID)
	}
	for _, target := range targets {
		if err := e.transport.SendMediaGroup(ctx, target, fileIDs); err != nil {
			e.logger.Warn("Failed to send salon photos", zap.Error(err), zap.Int64("chat_id", target))
		}
	}
}

func mapLink(l Location) string {
	return fmt.Sprintf(mapsPlaceURL,
		strconv.FormatFloat(l.Latitude, 'f', -1, 64),
		strconv.FormatFloat(l.Longitude, 'f', -1, 64),
	)
}

func salonSummary(salon *models.SalonRecord, manager User) string {
	var b strings.Builder
	b.WriteString("<i>Информация о салоне:</i>\r\n")
	fmt.Fprintf(&b, "<b>Название салона: </b>%s\r\n", html.EscapeString(salon.Name))
	fmt.Fprintf(&b, "<b>Емайл-адресс:</b> %s\r\n", html.EscapeString(salon.Email))
	fmt.Fprintf(&b, "<b>Телефон:</b> %s\r\n", html.EscapeString(salon.Phone))
	fmt.Fprintf(&b, "<b>Контактное Лицо:</b> %s\r\n", html.EscapeString(salon.Person))
	if salon.Promocode != "" {
		fmt.Fprintf(&b, "<b>Промокод: </b>%s\r\n", html.EscapeString(salon.Promocode))
	}
	fmt.Fprintf(&b, "<b>Местоположение: </b><a href=\"%s\">Посмотреть на карте</a>\r\n", html.EscapeString(salon.Location))
	if len(salon.SocLinks) > 0 {
		b.WriteString("<b>Социальные сети:</b>\r\n")
		for i, link := range salon.SocLinks {
			fmt.Fprintf(&b, "%d ) %s \r\n\r\n", i+1, html.EscapeString(link))
		}
	}
	if salon.Note != "" {
		fmt.Fprintf(&b, "<b>Заметка о салоне: </b>%s\r\n", html.EscapeString(salon.Note))
	}
	b.WriteString(managerLine(manager))
	return b.String()
}
