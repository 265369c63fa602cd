package ch

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"
)

// ClickHouseDB owns the connection shared by all collections
type ClickHouseDB struct {
	conn clickhouse.Conn
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(host string, port int, database, user, password string, useTLS bool) (*ClickHouseDB, error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	options := &clickhouse.Options{
		Addr:     []string{addr},
		Protocol: clickhouse.Native,
		Auth: clickhouse.Auth{
			Database: database,
			Username: user,
			Password: password,
		},
	}

	if useTLS {
		options.TLS = &tls.Config{
			InsecureSkipVerify: false,
		}
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Collection returns a repository over one named collection.
// Tables are managed via migrations (see migrations/ directory).
func (db *ClickHouseDB) Collection(name string) *Collection {
	return &Collection{db: db, name: name}
}

// Close closes the database connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Collection stores records of one kind in the intake_records table
type Collection struct {
	db   *ClickHouseDB
	name string
}

// Append inserts a record. A record keyed by a single id keeps that id,
// anything else gets a fresh one.
func (c *Collection) Append(ctx context.Context, record map[string]any) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	id := uuid.NewString()
	if len(record) == 1 {
		for key := range record {
			id = key
		}
	}

	err = c.db.conn.Exec(ctx,
		`INSERT INTO intake_records (collection, id, payload, created_at) VALUES (?, ?, ?, ?)`,
		c.name, id, string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to append %s record: %w", c.name, err)
	}
	return nil
}

// ReadAll returns the collection in insertion order
func (c *Collection) ReadAll(ctx context.Context) ([]map[string]any, error) {
	rows, err := c.db.conn.Query(ctx,
		`SELECT payload FROM intake_records WHERE collection = ? ORDER BY created_at, id`, c.name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s records: %w", c.name, err)
	}
	defer rows.Close()

	records := make([]map[string]any, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		var record map[string]any
		if err := json.Unmarshal([]byte(payload), &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return records, nil
}

// Close is a no-op, the connection belongs to ClickHouseDB
func (c *Collection) Close() error {
	return nil
}
