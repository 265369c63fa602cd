package conversation

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"salonbot/internal/metrics"
	"salonbot/internal/storage"
	"salonbot/internal/validation"

	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// Deps are the collaborators the intakes call
type Deps struct {
	Transport Transport
	Files     FileFetcher
	OCR       TextExtractor
	Orders    OrderService
	Documents DocumentService
	Clients   storage.Repository
	Salons    storage.Repository
	Logger    *zap.Logger
	Metrics   metrics.IntakeMetrics
}

// Settings are per-deployment values
type Settings struct {
	AuditChatID    int64
	SalonImagesDir string
	SKU            *validation.SKUExtractor
	Timeout        time.Duration // per external call
	Now            func() time.Time
}

// Engine runs the client, salon and order intakes.
// It holds no per-chat state: everything lives in the Session passed in.
type Engine struct {
	transport Transport
	files     FileFetcher
	ocr       TextExtractor
	orders    OrderService
	documents DocumentService
	clients   storage.Repository
	salons    storage.Repository
	logger    *zap.Logger
	metrics   metrics.IntakeMetrics
	reporter  *Reporter
	settings  Settings
}

// NewEngine validates deps and fills settings defaults
func NewEngine(deps Deps, settings Settings) (*Engine, error) {
	switch {
	case deps.Transport == nil:
		return nil, errors.New("transport is required")
	case deps.Files == nil:
		return nil, errors.New("file fetcher is required")
	case deps.OCR == nil:
		return nil, errors.New("text extractor is required")
	case deps.Orders == nil:
		return nil, errors.New("order service is required")
	case deps.Documents == nil:
		return nil, errors.New("document service is required")
	case deps.Clients == nil || deps.Salons == nil:
		return nil, errors.New("client and salon repositories are required")
	}

	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	if settings.SKU == nil {
		settings.SKU = validation.MustSKUExtractor(validation.DefaultSKUPattern)
	}
	if settings.Timeout <= 0 {
		settings.Timeout = defaultTimeout
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}

	return &Engine{
		transport: deps.Transport,
		files:     deps.Files,
		ocr:       deps.OCR,
		orders:    deps.Orders,
		documents: deps.Documents,
		clients:   deps.Clients,
		salons:    deps.Salons,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		reporter:  NewReporter(deps.Transport, settings.AuditChatID, deps.Logger, deps.Metrics),
		settings:  settings,
	}, nil
}

// Reporter returns the error reporter shared with the bot
func (e *Engine) Reporter() *Reporter {
	return e.reporter
}

// Start begins flow for the chat of msg and returns its session
func (e *Engine) Start(ctx context.Context, flow Flow, msg Message) (*Session, error) {
	s := newSession(flow)
	switch flow {
	case FlowClient:
		e.startClient(ctx, s, msg)
	case FlowSalon:
		e.startSalon(ctx, s, msg)
	case FlowOrder:
		e.startOrder(ctx, s, msg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFlow, flow)
	}

	e.metrics.IncStarted(string(flow))
	e.logger.Info("Conversation started",
		zap.String("flow", string(flow)),
		zap.Int64("chat_id", msg.ChatID),
		zap.Int64("user_id", msg.From.ID),
	)
	return s, nil
}

// Handle feeds msg to the step s is waiting on
func (e *Engine) Handle(ctx context.Context, s *Session, msg Message) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.Done() {
		return nil
	}

	from := s.Step
	switch s.Flow {
	case FlowClient:
		e.handleClient(ctx, s, msg)
	case FlowSalon:
		e.handleSalon(ctx, s, msg)
	case FlowOrder:
		e.handleOrder(ctx, s, msg)
	}

	e.logger.Debug("Step handled",
		zap.String("flow", string(s.Flow)),
		zap.String("from", string(from)),
		zap.String("to", string(s.Step)),
		zap.Int64("chat_id", msg.ChatID),
	)
	return nil
}

// Cancel removes the reply keyboard and tells the operator the dialog is over
func (e *Engine) Cancel(ctx context.Context, chatID int64) {
	e.deleteKeyboard(ctx, chatID)
	e.say(ctx, chatID, TextClosing)
}

// Greet welcomes the operator and shows the root menu
func (e *Engine) Greet(ctx context.Context, msg Message) {
	name := msg.From.Username
	if name == "" {
		name = "Пользователь"
	}
	e.say(ctx, msg.ChatID, fmt.Sprintf("Привет, %s!", name))
	e.ShowMenu(ctx, msg.ChatID)
}

// ShowMenu offers the three intakes
func (e *Engine) ShowMenu(ctx context.Context, chatID int64) {
	e.ask(ctx, chatID, TextChooseMenu, MenuKeyboard())
}

func (e *Engine) finish(ctx context.Context, s *Session, chatID int64) {
	s.Step = StepDone
	e.say(ctx, chatID, TextClosing)
	e.metrics.IncCompleted(string(s.Flow))
}

func (e *Engine) rejected(s *Session) {
	e.metrics.IncValidationFailed(string(s.Flow), string(s.Step))
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.settings.Timeout)
}

func (e *Engine) send(ctx context.Context, msg Outgoing) int {
	id, err := e.transport.Send(ctx, msg)
	if err != nil {
		e.logger.Warn("Failed to send message", zap.Error(err), zap.Int64("chat_id", msg.ChatID))
	}
	return id
}

func (e *Engine) say(ctx context.Context, chatID int64, text string) {
	e.send(ctx, Outgoing{ChatID: chatID, Text: text})
}

func (e *Engine) ask(ctx context.Context, chatID int64, text string, keyboard Keyboard) {
	e.send(ctx, Outgoing{ChatID: chatID, Text: text, Keyboard: keyboard})
}

func (e *Engine) askYesNo(ctx context.Context, chatID int64, text string) {
	e.ask(ctx, chatID, text, yesNoKeyboard())
}

// sayHTML sends text to the chat and mirrors it to the audit chat
func (e *Engine) sayHTML(ctx context.Context, chatID int64, text string) {
	e.send(ctx, Outgoing{ChatID: chatID, Text: text, HTML: true})
	if e.settings.AuditChatID != 0 {
		e.send(ctx, Outgoing{ChatID: e.settings.AuditChatID, Text: text, HTML: true})
	}
}

// deleteKeyboard hides the reply keyboard with a throwaway message
func (e *Engine) deleteKeyboard(ctx context.Context, chatID int64) {
	id := e.send(ctx, Outgoing{ChatID: chatID, Text: ".", RemoveKeyboard: true})
	if id == 0 {
		return
	}
	if err := e.transport.DeleteMessage(ctx, chatID, id); err != nil {
		e.logger.Warn("Failed to delete message", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

func managerLine(u User) string {
	name := u.FirstName
	if name == "" {
		name = "Пользователь"
	}
	username := u.Username
	if username == "" {
		username = "Инкогнито"
	}
	return fmt.Sprintf("\r\n<i>Менеджер NSlab: </i>%s (@%s)\r\n", html.EscapeString(name), html.EscapeString(username))
}
