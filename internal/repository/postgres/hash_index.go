package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"kakdoma/internal/port"
)

type hashIndex struct {
	db *sqlx.DB
}

// NewHashIndex creates a PostgreSQL-backed DocumentHashIndex.
func NewHashIndex(db *sqlx.DB) port.DocumentHashIndex {
	return &hashIndex{db: db}
}

func (h *hashIndex) Seen(ctx context.Context, hash string) (bool, error) {
	var exists bool
	err := h.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM document_hashes WHERE hash = $1)`, hash)
	if err != nil {
		return false, fmt.Errorf("hashIndex.Seen: %w", err)
	}
	return exists, nil
}

func (h *hashIndex) Register(ctx context.Context, hash string) error {
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO document_hashes (hash) VALUES ($1) ON CONFLICT (hash) DO NOTHING`, hash)
	if err != nil {
		return fmt.Errorf("hashIndex.Register: %w", err)
	}
	return nil
}
