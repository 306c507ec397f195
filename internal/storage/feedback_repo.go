package storage

import (
	"context"
	"fmt"

	"github.com/HardikTIET/MUJ-RAGBOT/internal/models"
)

type FeedbackRepo struct {
	db *DB
}

func NewFeedbackRepo(db *DB) *FeedbackRepo {
	return &FeedbackRepo{db: db}
}

func (r *FeedbackRepo) Record(ctx context.Context, username, query, response string, verdict int) error {
	if verdict != models.VerdictHelpful && verdict != models.VerdictNotHelpful {
		return fmt.Errorf("invalid verdict %d", verdict)
	}
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO feedback (ts, username, query, response, verdict) VALUES (NOW(), $1, $2, $3, $4)`,
		username, query, response, verdict,
	)
	if err != nil {
		return fmt.Errorf("record feedback: %w", err)
	}
	return nil
}

func (r *FeedbackRepo) List(ctx context.Context) ([]models.FeedbackRecord, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, ts, username, query, response, verdict FROM feedback ORDER BY ts DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	out := make([]models.FeedbackRecord, 0)
	for rows.Next() {
		var f models.FeedbackRecord
		if err := rows.Scan(&f.ID, &f.Timestamp, &f.Username, &f.Query, &f.Response, &f.Verdict); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback: %w", err)
	}
	return out, nil
}
