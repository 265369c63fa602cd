package app

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"salonbot/internal/bot"
	"salonbot/internal/config"
	"salonbot/internal/conversation"
	"salonbot/internal/metrics"
	"salonbot/internal/services/documents"
	"salonbot/internal/services/vision"
	"salonbot/internal/services/woo"
	"salonbot/internal/session"
	"salonbot/internal/storage"
	"salonbot/internal/storage/ch"
	"salonbot/internal/storage/file"
	"salonbot/internal/storage/stubs"
	"salonbot/internal/validation"
)

// App represents the application
type App struct {
	config   *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	clients  storage.Repository
	salons   storage.Repository
	db       *ch.ClickHouseDB
	sessions session.Store
	bot      *bot.Bot
	server   *http.Server
}

// New creates and initializes a new application instance
func New() (*App, error) {
	// Load .env file if it exists
	envErr := godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cfg.LogDev)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	if envErr != nil {
		logger.Info("No .env file found, using system environment variables")
	}

	app := &App{
		config:   cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}

	logger.Info("Starting salon intake bot...")

	if err := app.initStorage(); err != nil {
		return nil, err
	}
	if err := app.initSessions(); err != nil {
		return nil, err
	}
	if err := app.initBot(); err != nil {
		return nil, err
	}
	app.initHTTPServer()

	return app, nil
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// initStorage opens the client and salon repositories
func (a *App) initStorage() error {
	switch a.config.StorageBackend {
	case config.StorageMemory:
		a.logger.Info("Using in-memory record storage")
		a.clients = stubs.NewMockRepository()
		a.salons = stubs.NewMockRepository()
	case config.StorageClickHouse:
		a.logger.Info("Connecting to ClickHouse",
			zap.String("host", a.config.ClickHouseHost),
			zap.Int("port", a.config.ClickHousePort),
			zap.String("database", a.config.ClickHouseDatabase),
			zap.String("user", a.config.ClickHouseUser),
			zap.Bool("tls", a.config.ClickHouseUseTLS),
		)
		db, err := ch.NewClickHouseDB(
			a.config.ClickHouseHost,
			a.config.ClickHousePort,
			a.config.ClickHouseDatabase,
			a.config.ClickHouseUser,
			a.config.ClickHousePassword,
			a.config.ClickHouseUseTLS,
		)
		if err != nil {
			return fmt.Errorf("failed to connect to ClickHouse: %w", err)
		}
		a.db = db
		a.clients = db.Collection(storage.CollectionClients)
		a.salons = db.Collection(storage.CollectionSalons)
	default:
		a.logger.Info("Using JSON lines storage",
			zap.String("clients", a.config.ClientStorageFile),
			zap.String("salons", a.config.SalonStorageFile),
		)
		a.clients = file.New(a.config.ClientStorageFile, a.logger)
		a.salons = file.New(a.config.SalonStorageFile, a.logger)
	}
	return nil
}

// initSessions opens the conversation store
func (a *App) initSessions() error {
	if a.config.SessionBackend != config.SessionRedis {
		a.sessions = session.NewMemoryStore(a.config.SessionTTL, a.logger)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := session.NewRedisClient(ctx, a.config.RedisAddr, a.config.RedisPassword, a.config.RedisDB)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	a.logger.Info("Using Redis sessions", zap.String("addr", a.config.RedisAddr), zap.Duration("ttl", a.config.SessionTTL))
	a.sessions = session.NewRedisStore(client, a.config.SessionTTL, a.logger)
	return nil
}

// initBot wires the external services, the intake engine and the Telegram bot
func (a *App) initBot() error {
	api, err := bot.Connect(a.config.TelegramToken, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	sku, err := validation.NewSKUExtractor(a.config.SKUPattern)
	if err != nil {
		return err
	}

	timeout := a.config.ExternalTimeout
	transport := bot.NewTransport(api, timeout, a.logger)
	engine, err := conversation.NewEngine(conversation.Deps{
		Transport: transport,
		Files:     transport,
		OCR:       vision.NewClient("", a.config.GoogleVisionAPIKey, timeout, a.logger),
		Orders:    woo.NewClient(a.config.WooStoreURL, a.config.WooConsumerKey, a.config.WooConsumerSecret, timeout, a.logger),
		Documents: documents.NewFetcher(a.config.OrderDocumentURL, a.config.OrderDocumentsDir, timeout, a.logger),
		Clients:   a.clients,
		Salons:    a.salons,
		Logger:    a.logger,
		Metrics:   metrics.NewIntakeMetrics(a.registry),
	}, conversation.Settings{
		AuditChatID:    a.config.AuditChatID,
		SalonImagesDir: a.config.SalonImagesDir,
		SKU:            sku,
		Timeout:        timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create intake engine: %w", err)
	}

	a.bot = bot.NewBot(api, engine, a.sessions, a.config.AllowedUserIDs, a.logger)
	a.logger.Info("Bot created successfully", zap.Int64s("allowed_users", a.config.AllowedUserIDs))
	return nil
}

// initHTTPServer initializes the HTTP server for health checks, metrics and webhook
func (a *App) initHTTPServer() {
	mode := "polling"
	if a.config.WebhookMode {
		mode = "webhook"
	}

	a.server = &http.Server{
		Addr:         ":" + a.config.Port,
		Handler:      newRouter(mode, a.bot.WebhookHandler(), a.registry),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		a.logger.Info("Starting HTTP server", zap.String("port", a.config.Port))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
}

// Run starts the application and blocks until shutdown
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.config.WebhookMode {
		a.logger.Info("Starting bot in WEBHOOK mode", zap.String("url", a.config.WebhookURL))
		if err := a.bot.StartWebhook(a.config.WebhookURL); err != nil {
			return fmt.Errorf("failed to setup webhook: %w", err)
		}
	} else {
		go func() {
			if err := a.bot.Start(ctx); err != nil {
				a.logger.Error("Polling stopped with error", zap.Error(err))
				stop()
			}
		}()
	}

	<-ctx.Done()

	a.logger.Info("Shutting down...")
	return a.Shutdown()
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("HTTP server shutdown error", zap.Error(err))
	}

	if err := a.sessions.Close(); err != nil {
		a.logger.Warn("Error closing sessions", zap.Error(err))
	}

	var closeErr error
	for _, repo := range []storage.Repository{a.clients, a.salons} {
		if err := repo.Close(); err != nil {
			a.logger.Warn("Error closing repository", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("Error closing database", zap.Error(err))
			closeErr = err
		}
	}

	a.logger.Info("Shutdown complete")
	_ = a.logger.Sync()
	return closeErr
}
