package audit

import (
	"context"
	"database/sql"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when no audit record matches.
var ErrNotFound = errors.New("audit record not found")

// Querier is the subset of *sql.DB used for reading records.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const selectRecords = `SELECT
	id, created_at, request_id, method, variant, account, chain_id, nonce,
	outcome, kind, reason, module, tx_hash, duration_ms
FROM signing_audit`

// FindByTxHash returns the records of every signing request that produced hash, oldest first.
func FindByTxHash(ctx context.Context, db Querier, hash string) ([]*Record, error) {
	records, err := query(ctx, db, selectRecords+` WHERE lower(tx_hash) = lower($1) ORDER BY created_at`, hash)
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "tx %s", hash)
	}

	return records, nil
}

// Recent returns the latest limit records of account, newest first. An empty account
// selects all accounts.
func Recent(ctx context.Context, db Querier, account string, limit int) ([]*Record, error) {
	if account == "" {
		return query(ctx, db, selectRecords+` ORDER BY created_at DESC LIMIT $1`, limit)
	}

	return query(ctx, db, selectRecords+` WHERE lower(account) = lower($1) ORDER BY created_at DESC LIMIT $2`, account, limit)
}

func query(ctx context.Context, db Querier, q string, args ...any) ([]*Record, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query audit records")
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var (
			record                                   Record
			id                                       string
			requestID, chainID, kind, reason, module null.String
			txHash                                   null.String
			nonce                                    null.Uint64
			outcome                                  string
			durationMS                               int64
		)

		if err := rows.Scan(&id, &record.CreatedAt, &requestID, &record.Method, &record.Variant, &record.Account,
			&chainID, &nonce, &outcome, &kind, &reason, &module, &txHash, &durationMS); err != nil {
			return nil, errors.Wrap(err, "failed to scan audit record")
		}

		record.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid audit record id %q", id)
		}

		record.RequestID = requestID.String
		record.ChainID = chainID.String
		record.Nonce = nonce.Ptr()
		record.Outcome = Outcome(outcome)
		record.Kind = kind.String
		record.Reason = reason.String
		record.Module = module.String
		record.TxHash = txHash.String
		record.Duration = time.Duration(durationMS) * time.Millisecond

		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read audit records")
	}

	return records, nil
}
