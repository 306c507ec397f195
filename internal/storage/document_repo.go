package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/HardikTIET/MUJ-RAGBOT/internal/models"
	"github.com/HardikTIET/MUJ-RAGBOT/internal/util"
)

// DocumentRepo is the ingestion ledger. A filename appears here only after
// its chunks have been persisted to the vector index.
type DocumentRepo struct {
	db *DB
}

func NewDocumentRepo(db *DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) IsProcessed(ctx context.Context, filename string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM processed_documents WHERE filename=$1)`,
		filename,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check document: %w", err)
	}
	return exists, nil
}

// RecordProcessed marks a filename as ingested. The unique constraint makes
// the ledger the arbiter under concurrent ingestion of the same file; the
// loser gets util.ErrDuplicateDocument.
func (r *DocumentRepo) RecordProcessed(ctx context.Context, filename string) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO processed_documents (filename) VALUES ($1)`,
		filename,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: %s", util.ErrDuplicateDocument, filename)
		}
		return fmt.Errorf("record document: %w", err)
	}
	return nil
}

func (r *DocumentRepo) ListProcessed(ctx context.Context) ([]models.DocumentRecord, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, filename, created_at FROM processed_documents ORDER BY filename`,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := make([]models.DocumentRecord, 0)
	for rows.Next() {
		var d models.DocumentRecord
		if err := rows.Scan(&d.ID, &d.Filename, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

// ClearAll empties the ledger. Used by the knowledge-base reset together
// with index removal.
func (r *DocumentRepo) ClearAll(ctx context.Context) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM processed_documents`); err != nil {
		return fmt.Errorf("clear documents: %w", err)
	}
	return nil
}
