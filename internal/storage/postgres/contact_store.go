// Package postgres persists extraction results in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/wbl-labs/leadharvest/internal/extractor"
)

const insertContactSQL = `
INSERT INTO contacts (run_id, candidate_id, keyword, post_id, post_url, profile_url,
                      email, phone, full_name, company, extracted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (post_id) DO NOTHING`

// execer is the slice of pgxpool.Pool the store needs; pgxmock satisfies it.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// ContactStore writes contacts to the contacts table. Cross-run duplicates
// are absorbed by the post_id unique key, so replays are idempotent.
type ContactStore struct {
	db     execer
	logger *zap.Logger
}

// New connects a pool and verifies it with a ping.
func New(ctx context.Context, connString string, logger *zap.Logger) (*ContactStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewWithDB(pool, logger), nil
}

// NewWithDB wraps an existing connection; used by tests with pgxmock.
func NewWithDB(db execer, logger *zap.Logger) *ContactStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContactStore{db: db, logger: logger}
}

// Persist inserts one result. Duplicate post IDs are silently absorbed.
func (s *ContactStore) Persist(ctx context.Context, result extractor.ExtractionResult) error {
	tag, err := s.db.Exec(ctx, insertContactSQL,
		result.Unit.RunID,
		result.Unit.Candidate.ID,
		string(result.Unit.Keyword),
		result.PostID,
		result.PostURL,
		result.ProfileURL,
		result.Contact.Email,
		result.Contact.Phone,
		result.Contact.FullName,
		result.Contact.Company,
		result.ExtractedAt,
	)
	if err != nil {
		return classifyWriteErr(err)
	}
	if tag.RowsAffected() == 0 {
		s.logger.Debug("contact already stored", zap.String("post_id", result.PostID))
	}
	return nil
}

// classifyWriteErr sorts database failures into retryable and not. SQLSTATE
// classes 08 (connection), 53 (resources), 57 (operator intervention), and 40
// (serialization) are worth retrying; constraint and data errors are not.
func classifyWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		class := pgErr.Code
		if len(class) >= 2 {
			class = class[:2]
		}
		switch class {
		case "08", "53", "57", "40":
			return extractor.TransientWrite(err)
		default:
			return extractor.FatalWrite(err)
		}
	}
	if strings.Contains(err.Error(), "connection") {
		return extractor.TransientWrite(err)
	}
	return extractor.FatalWrite(err)
}
