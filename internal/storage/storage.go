package storage

import (
	"context"
)

// Collections of finalized records
const (
	CollectionClients = "clients"
	CollectionSalons  = "salons"
)

// Repository is an append-only store of finalized records.
// Each record is one JSON object; existing records are never modified.
type Repository interface {
	// Append persists a single record
	Append(ctx context.Context, record map[string]any) error

	// ReadAll returns every stored record in insertion order
	ReadAll(ctx context.Context) ([]map[string]any, error)

	// Lifecycle
	Close() error
}
