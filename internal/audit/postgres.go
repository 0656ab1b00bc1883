package audit

import (
	"context"
	"database/sql"

	"github.com/aarondl/null/v8"
	"github.com/pkg/errors"
)

// Execer is the subset of *sql.DB used for writing records.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type postgresRecorder struct {
	db Execer
}

// NewPostgresRecorder creates a recorder appending to the signing_audit table.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewPostgresRecorder(db Execer) Recorder {
	return &postgresRecorder{db: db}
}

const insertRecord = `INSERT INTO signing_audit (
	id, created_at, request_id, method, variant, account, chain_id, nonce,
	outcome, kind, reason, module, tx_hash, duration_ms
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

func (r *postgresRecorder) Record(ctx context.Context, record *Record) error {
	_, err := r.db.ExecContext(ctx, insertRecord,
		record.ID.String(),
		record.CreatedAt,
		nullString(record.RequestID),
		record.Method,
		record.Variant,
		record.Account,
		nullString(record.ChainID),
		null.Uint64FromPtr(record.Nonce),
		string(record.Outcome),
		nullString(record.Kind),
		nullString(record.Reason),
		nullString(record.Module),
		nullString(record.TxHash),
		record.Duration.Milliseconds(),
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert audit record")
	}

	return nil
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}
