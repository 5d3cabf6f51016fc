package database

import (
	"context"
	"database/sql"

	"go.opentelemetry.io/otel/attribute"

	"examprep/internal/models"
	"examprep/internal/observability"
	contextutils "examprep/internal/utils"
)

const createGenerationHistoryTable = `
CREATE TABLE IF NOT EXISTS generation_history (
	id SERIAL PRIMARY KEY,
	task_kind TEXT NOT NULL,
	client_ip TEXT NOT NULL,
	succeeded BOOLEAN NOT NULL,
	error_code TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// GenerationStore persists one row per generation attempt. A nil store is
// valid and drops every write, which is how the server runs when no
// DATABASE_URL is configured.
type GenerationStore struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewGenerationStore creates the store and ensures its schema exists.
func NewGenerationStore(ctx context.Context, db *sql.DB, logger *observability.Logger) (*GenerationStore, error) {
	if _, err := db.ExecContext(ctx, createGenerationHistoryTable); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to create generation_history table: %v", err)
	}
	return &GenerationStore{db: db, logger: logger}, nil
}

// Record stores one generation attempt. Failures are logged, not returned;
// history is best-effort and must never fail a client request.
func (s *GenerationStore) Record(ctx context.Context, rec models.GenerationRecord) {
	if s == nil {
		return
	}

	ctx, span := observability.TraceDatabaseFunction(ctx, "Record",
		attribute.String("generation.task_kind", rec.TaskKind),
		attribute.Bool("generation.succeeded", rec.Succeeded),
	)
	defer span.End()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generation_history (task_kind, client_ip, succeeded, error_code) VALUES ($1, $2, $3, $4)`,
		rec.TaskKind, rec.ClientIP, rec.Succeeded, nullIfEmpty(rec.ErrorCode),
	)
	if err != nil {
		s.logger.Warn(ctx, "Failed to record generation attempt", map[string]interface{}{
			"task_kind": rec.TaskKind,
			"error":     err.Error(),
		})
	}
}

// Recent returns the most recent generation attempts, newest first.
func (s *GenerationStore) Recent(ctx context.Context, limit int) (result0 []models.GenerationRecord, err error) {
	if s == nil {
		return nil, nil
	}

	ctx, span := observability.TraceDatabaseFunction(ctx, "Recent",
		attribute.Int("generation.limit", limit),
	)
	defer observability.FinishSpan(span, &err)

	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_kind, client_ip, succeeded, COALESCE(error_code, ''), created_at
		 FROM generation_history ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to query generation history: %v", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": cerr.Error()})
		}
	}()

	var records []models.GenerationRecord
	for rows.Next() {
		var rec models.GenerationRecord
		if err := rows.Scan(&rec.ID, &rec.TaskKind, &rec.ClientIP, &rec.Succeeded, &rec.ErrorCode, &rec.CreatedAt); err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to scan generation row: %v", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to iterate generation rows: %v", err)
	}
	return records, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
