package postgres

import (
	"context"
	"log/slog"

	"github.com/AradIT/sipmask/internal/masking_service/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// rawResponseLimit keeps oversized switch responses out of the audit table.
const rawResponseLimit = 1000

type PgCommandLogRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

func NewPgCommandLogRepository(db *pgxpool.Pool, logger *slog.Logger) *PgCommandLogRepository {
	return &PgCommandLogRepository{db: db, logger: logger}
}

func (r *PgCommandLogRepository) Create(ctx context.Context, entry *domain.CommandLog) error {
	raw := entry.RawResponse
	if len(raw) > rawResponseLimit {
		raw = raw[:rawResponseLimit]
	}
	query := `
		INSERT INTO command_log (timestamp, command, actor, status, duration_ms, error_code, raw_response)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		entry.Timestamp, entry.Command, entry.Actor, entry.Status,
		entry.DurationMS, nullIfEmpty(entry.ErrorCode), nullIfEmpty(raw),
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error creating command log entry", "error", err, "command", entry.Command)
		return err
	}
	return nil
}
