package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/testcontainers/testcontainers-go/modules/clickhouse"

	"salonbot/internal/app"
)

// schema mirrors migrations/00001_create_intake_records.sql
const schema = `
CREATE TABLE IF NOT EXISTS intake_records (
	collection String,
	id String,
	payload String,
	created_at DateTime64(6)
) ENGINE = MergeTree()
ORDER BY (collection, created_at)`

func main() {
	ctx := context.Background()

	log.Println("Starting ClickHouse testcontainer...")

	initScript := filepath.Join(os.TempDir(), "salonbot-init.sql")
	if err := os.WriteFile(initScript, []byte(schema), 0o644); err != nil {
		log.Fatalf("Failed to write init script: %v", err)
	}

	clickhouseContainer, err := clickhouse.Run(ctx,
		"clickhouse/clickhouse-server:latest",
		clickhouse.WithUsername("default"),
		clickhouse.WithPassword("devpassword"),
		clickhouse.WithDatabase("default"),
		clickhouse.WithInitScripts(initScript),
	)
	if err != nil {
		log.Fatalf("Failed to start ClickHouse container: %v", err)
	}

	// Ensure container cleanup on exit
	defer func() {
		log.Println("Stopping ClickHouse container...")
		if err := clickhouseContainer.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate container: %v", err)
		}
	}()

	host, err := clickhouseContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}

	port, err := clickhouseContainer.MappedPort(ctx, "9000/tcp")
	if err != nil {
		log.Fatalf("Failed to get container port: %v", err)
	}

	log.Printf("ClickHouse started at %s:%s", host, port.Port())

	os.Setenv("STORAGE_BACKEND", "clickhouse")
	os.Setenv("CLICKHOUSE_HOST", host)
	os.Setenv("CLICKHOUSE_PORT", port.Port())
	os.Setenv("CLICKHOUSE_DATABASE", "default")
	os.Setenv("CLICKHOUSE_USER", "default")
	os.Setenv("CLICKHOUSE_PASSWORD", "devpassword")
	os.Setenv("CLICKHOUSE_USE_TLS", "false")
	os.Setenv("WEBHOOK_MODE", "false")
	os.Setenv("LOG_DEV", "true")

	devDefaults := map[string]string{
		"PORT":                "8080",
		"SALON_IMAGES_DIR":    "data/salons",
		"ORDER_DOCUMENTS_DIR": "data/orders",
	}
	for key, value := range devDefaults {
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}

	for _, key := range []string{"TELEGRAM_BOT_TOKEN", "ALLOWED_USER_IDS", "AUDIT_CHAT_ID", "GOOGLE_VISION_API_KEY", "WOO_STORE_URL"} {
		if os.Getenv(key) == "" {
			log.Printf("⚠️  %s not set. Please set it in your .env file or environment.", key)
		}
	}

	log.Println("Starting application with ClickHouse backend...")
	fmt.Println()

	application, err := app.New()
	if err != nil {
		log.Printf("Failed to create application: %v", err)
		return
	}

	// Run blocks until SIGINT/SIGTERM
	if err := application.Run(); err != nil {
		log.Printf("Application error: %v", err)
	}
}
