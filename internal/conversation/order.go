package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"salonbot/internal/models"
	"salonbot/internal/validation"

	"go.uber.org/zap"
)

func (e *Engine) startOrder(ctx context.Context, s *Session, msg Message) {
	e.askProductPhoto(ctx, s, msg.ChatID)
}

func (e *Engine) askProductPhoto(ctx context.Context, s *Session, chatID int64) {
	e.deleteKeyboard(ctx, chatID)
	e.say(ctx, chatID, "Загрузите фото продукта")
	s.Step = StepOrderPhoto
}

func (e *Engine) askProductCount(ctx context.Context, s *Session, chatID int64) {
	e.ask(ctx, chatID, "Выберите количество товара:", countKeyboard())
	s.Step = StepOrderCount
}

func (e *Engine) askNextAction(ctx context.Context, s *Session, chatID int64) {
	e.ask(ctx, chatID, "Выберите дальнейшее действие:", nextActionKeyboard())
	s.Step = StepOrderChoice
}

func (e *Engine) askDiscountPercent(ctx context.Context, s *Session, chatID int64) {
	e.ask(ctx, chatID, "Применить скидку?", percentKeyboard())
	s.Step = StepOrderPromo
}

func (e *Engine) askPaymentMethod(ctx context.Context, s *Session, chatID int64) {
	e.ask(ctx, chatID, "Выберите способ оплаты:", paymentKeyboard())
	s.Step = StepOrderPayment
}

func (e *Engine) askPriceChange(ctx context.Context, s *Session, chatID int64) {
	e.askYesNo(ctx, chatID, "Хотите уменьшить стоимость заказа?")
	s.Step = StepOrderPriceChoice
}

func (e *Engine) handleOrder(ctx context.Context, s *Session, msg Message) {
	chatID := msg.ChatID
	text := strings.TrimSpace(msg.Text)

	switch s.Step {
	case StepOrderPhoto:
		sku, ok := e.recognizeSKU(ctx, s, msg)
		if !ok {
			e.askProductPhoto(ctx, s, chatID)
			return
		}
		s.Order.SetSKU(sku)
		e.askProductCount(ctx, s, chatID)

	case StepOrderCount:
		count, ok := validation.Quantity(text)
		if !ok {
			e.rejected(s)
			e.say(ctx, chatID, "Пожалуйста, введите число")
			e.askProductCount(ctx, s, chatID)
			return
		}
		if err := s.Order.SetCount(count); err != nil {
			e.logger.Warn("Count without a product", zap.Error(err), zap.Int64("chat_id", chatID))
			e.askProductPhoto(ctx, s, chatID)
			return
		}
		e.deleteKeyboard(ctx, chatID)
		e.say(ctx, chatID, "Продукт добавлен к заказу")
		e.askNextAction(ctx, s, chatID)

	case StepOrderChoice:
		e.deleteKeyboard(ctx, chatID)
		switch text {
		case choiceCheckout:
			e.askDiscountPercent(ctx, s, chatID)
		case choiceAddProduct:
			e.askProductPhoto(ctx, s, chatID)
		default:
			e.rejected(s)
			e.say(ctx, chatID, "Вы должны выбрать один из вариантов дальнейших действий")
			e.askNextAction(ctx, s, chatID)
		}

	case StepOrderPromo:
		e.deleteKeyboard(ctx, chatID)
		if isNo(text) {
			e.askPaymentMethod(ctx, s, chatID)
			return
		}
		percent, ok := validation.Percent(text)
		if !ok {
			e.rejected(s)
			e.askDiscountPercent(ctx, s, chatID)
			return
		}
		s.Order.SetDiscountPercent(percent)
		e.askPaymentMethod(ctx, s, chatID)

	case StepOrderPayment:
		e.deleteKeyboard(ctx, chatID)
		if text == "" {
			e.rejected(s)
			e.askPaymentMethod(ctx, s, chatID)
			return
		}
		s.Order.PaymentMethod = text
		e.createOrder(ctx, s, msg)

	case StepOrderPriceChoice:
		switch {
		case isNo(text):
			e.saveOrder(ctx, s, msg)
		case isYes(text):
			e.say(ctx, chatID, "Введите сумму скидки (число)")
			s.Step = StepOrderFixedDiscount
		default:
			e.rejected(s)
			e.say(ctx, chatID, "Вы должны ответить \"Да\" или \"Нет\"")
			e.askPriceChange(ctx, s, chatID)
		}

	case StepOrderFixedDiscount:
		e.deleteKeyboard(ctx, chatID)
		amount, ok := validation.Amount(text)
		if !ok {
			e.rejected(s)
			e.say(ctx, chatID, "Скидка должна быть числом. Введите сумму скидки")
			return
		}
		e.applyFixedDiscount(ctx, s, msg, amount)
	}
}

// recognizeSKU reads the product reference number off a label photo
func (e *Engine) recognizeSKU(ctx context.Context, s *Session, msg Message) (string, bool) {
	photo, ok := msg.LargestPhoto()
	if !ok {
		e.rejected(s)
		return "", false
	}

	callCtx, cancel := e.withTimeout(ctx)
	url, err := e.files.FileURL(callCtx, photo.FileID)
	cancel()
	if err != nil {
		e.reporter.Report(ctx, msg, "telegram", err, "Ошибка при получении фото")
		return "", false
	}

	callCtx, cancel = e.withTimeout(ctx)
	text, err := e.ocr.ExtractText(callCtx, url)
	cancel()
	if err != nil {
		e.reporter.Report(ctx, msg, "ocr", err, "Ошибка при получении текста с фото")
		return "", false
	}
	if strings.TrimSpace(text) == "" {
		e.say(ctx, msg.ChatID, "На фото отсутствует текст, загрузите фото с текстом")
		return "", false
	}

	sku, ok := e.settings.SKU.Extract(text)
	if !ok {
		e.say(ctx, msg.ChatID, "REF номер не найден, загрузите фото на котором есть Ref номер")
		return "", false
	}
	e.say(ctx, msg.ChatID, fmt.Sprintf("SKU номер продукта: %s", sku))
	return sku, true
}

func (e *Engine) createOrder(ctx context.Context, s *Session, msg Message) {
	chatID := msg.ChatID
	e.say(ctx, chatID, "Создаем заказ...")

	callCtx, cancel := e.withTimeout(ctx)
	remote, err := e.orders.CreateOrder(callCtx, *s.Order)
	cancel()
	if err != nil {
		e.reporter.Report(ctx, msg, "orders", err, "Ошибка при создании заказа.")
		s.Order = models.NewOrderRecord()
		s.Remote = nil
		e.askProductPhoto(ctx, s, chatID)
		return
	}

	s.Remote = remote
	e.say(ctx, chatID, fmt.Sprintf("Сумма для оплаты: €%s", remote.Total))
	e.say(ctx, chatID, "Заказ создан.")
	e.askPriceChange(ctx, s, chatID)
}

func (e *Engine) applyFixedDiscount(ctx context.Context, s *Session, msg Message, amount string) {
	chatID := msg.ChatID
	e.say(ctx, chatID, "Обновляем заказ...")

	callCtx, cancel := e.withTimeout(ctx)
	remote, err := e.orders.ApplyFixedCoupon(callCtx, s.Remote.ID, s.Remote.CouponLines, amount)
	cancel()
	if err != nil {
		e.reporter.Report(ctx, msg, "orders", err, "Ошибка при обновлении заказа.")
		e.say(ctx, chatID, "Введите сумму скидки (число)")
		return
	}

	s.Remote = remote
	if f, err := strconv.ParseFloat(amount, 64); err == nil {
		s.Order.SetDiscountFixed(int(f))
	}
	e.saveOrder(ctx, s, msg)
}

func (e *Engine) saveOrder(ctx context.Context, s *Session, msg Message) {
	chatID := msg.ChatID

	if e.settings.AuditChatID != 0 {
		payload, err := json.Marshal(s.Order)
		if err != nil {
			e.logger.Warn("Failed to encode order", zap.Error(err))
		} else {
			e.say(ctx, e.settings.AuditChatID, "Создан новый заказ:\r\n"+string(payload))
		}
	}

	e.say(ctx, chatID, "Заказ обновлен...")
	e.say(ctx, chatID, fmt.Sprintf("Сумма для оплаты: €%s", s.Remote.Total))
	e.say(ctx, chatID, fmt.Sprintf("Yonka - order %d", s.Remote.ID))

	for _, docType := range []models.DocumentType{models.DocumentInvoice, models.DocumentReceipt} {
		e.sendOrderDocument(ctx, msg, s.Remote.ID, docType)
	}

	e.finish(ctx, s, chatID)
	e.ShowMenu(ctx, chatID)
}

func (e *Engine) sendOrderDocument(ctx context.Context, msg Message, orderID int64, docType models.DocumentType) {
	callCtx, cancel := e.withTimeout(ctx)
	path, err := e.documents.DocumentPath(callCtx, docType, orderID)
	cancel()
	if err != nil {
		e.reporter.Report(ctx, msg, "documents", err, fmt.Sprintf("Не удалось получить URL  файла для документа - %s", docType))
		return
	}

	if err := e.transport.SendDocument(ctx, msg.ChatID, path); err != nil {
		e.reporter.Report(ctx, msg, "telegram", err, fmt.Sprintf("Не удалось отправить документ - %s", docType))
	}
}
