package conversation

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"

	"salonbot/internal/metrics"

	"go.uber.org/zap"
)

// Reporter handles failures of external calls: it logs them, apologizes to
// the operator and mirrors the error to the audit chat.
type Reporter struct {
	transport   Transport
	auditChatID int64
	logger      *zap.Logger
	metrics     metrics.IntakeMetrics
}

// NewReporter creates a reporter posting to auditChatID. A zero id disables mirroring.
func NewReporter(transport Transport, auditChatID int64, logger *zap.Logger, m metrics.IntakeMetrics) *Reporter {
	if m == nil {
		m = metrics.Nop{}
	}
	return &Reporter{
		transport:   transport,
		auditChatID: auditChatID,
		logger:      logger,
		metrics:     m,
	}
}

// Report is called at the failing call site; that site is recorded as the location
func (r *Reporter) Report(ctx context.Context, msg Message, service string, err error, userText string) {
	r.report(ctx, msg, service, err, userText, 2)
}

func (r *Reporter) report(ctx context.Context, msg Message, service string, err error, userText string, skip int) {
	location := "unknown"
	if _, file, line, ok := runtime.Caller(skip); ok {
		location = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}

	r.logger.Error(userText,
		zap.Error(err),
		zap.String("service", service),
		zap.Int64("chat_id", msg.ChatID),
		zap.Int64("user_id", msg.From.ID),
		zap.String("caller", location),
	)
	r.metrics.IncExternalError(service)

	if msg.ChatID != 0 {
		if _, sendErr := r.transport.Send(ctx, Outgoing{ChatID: msg.ChatID, Text: userText + TextRetry}); sendErr != nil {
			r.logger.Warn("Failed to send error message", zap.Error(sendErr), zap.Int64("chat_id", msg.ChatID))
		}
	}

	if r.auditChatID == 0 {
		return
	}

	userID := "user id hidden"
	if msg.From.ID != 0 {
		userID = strconv.FormatInt(msg.From.ID, 10)
	}
	username := msg.From.Username
	if username == "" {
		username = "Инкогнито"
	}
	chatID := "chat id hidden"
	if msg.ChatID != 0 {
		chatID = strconv.FormatInt(msg.ChatID, 10)
	}

	text := fmt.Sprintf("❗️ Ошибка:\n%v\n\nUser: %s (%s)\nChat: %s\n\n%s", err, userID, username, chatID, location)
	if _, sendErr := r.transport.Send(ctx, Outgoing{ChatID: r.auditChatID, Text: text}); sendErr != nil {
		r.logger.Warn("Failed to send error to audit chat", zap.Error(sendErr))
	}
}
