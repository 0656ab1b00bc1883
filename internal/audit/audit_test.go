package audit_test

import (
	"bytes"
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/signing-gateway/internal/audit"
)

type fakeExecer struct {
	query string
	args  []any
	err   error
}

func (f *fakeExecer) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	f.query = query
	f.args = args
	return nil, f.err
}

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, *audit.Record) error {
	return errors.New("disk full")
}

func signedRecord() *audit.Record {
	nonce := uint64(6)

	record := audit.NewRecord(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	record.Method = "eth_sendTransaction"
	record.Variant = "transaction"
	record.Account = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	record.ChainID = "100"
	record.Nonce = &nonce
	record.Outcome = audit.OutcomeSigned
	record.TxHash = "0xabc"
	record.Duration = 1500 * time.Millisecond

	return record
}

func TestPostgresRecorder(t *testing.T) {
	db := &fakeExecer{}
	record := signedRecord()

	require.NoError(t, audit.NewPostgresRecorder(db).Record(t.Context(), record))
	assert.Contains(t, db.query, "INSERT INTO signing_audit")
	require.Len(t, db.args, 14)
	assert.Equal(t, record.ID.String(), db.args[0])
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), db.args[1])
	assert.Equal(t, null.String{}, db.args[2])
	assert.Equal(t, null.Uint64From(6), db.args[7])
	assert.Equal(t, "signed", db.args[8])
	assert.Equal(t, null.String{}, db.args[9])
	assert.Equal(t, null.StringFrom("0xabc"), db.args[12])
	assert.Equal(t, int64(1500), db.args[13])
}

func TestPostgresRecorderError(t *testing.T) {
	db := &fakeExecer{err: errors.New("connection refused")}

	err := audit.NewPostgresRecorder(db).Record(t.Context(), signedRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestLogRecorder(t *testing.T) {
	var buf bytes.Buffer
	ctx := zerolog.New(&buf).WithContext(t.Context())

	record := signedRecord()
	record.Outcome = audit.OutcomeRejected
	record.Kind = "policy_rejected"
	record.Reason = "only Gnosis Protocol orders may be signed"
	record.Module = "gnosis"

	require.NoError(t, audit.NewLogRecorder().Record(ctx, record))
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"kind":"policy_rejected"`)
	assert.Contains(t, buf.String(), `"validator":"gnosis"`)
	assert.Contains(t, buf.String(), `"nonce":6`)
}

func TestMulti(t *testing.T) {
	db := &fakeExecer{}

	recorder := audit.Multi(nil, audit.NewPostgresRecorder(db), failingRecorder{})
	err := recorder.Record(t.Context(), signedRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 audit recorders failed")
	assert.NotEmpty(t, db.query, "every recorder runs despite failures")

	require.NoError(t, audit.Multi().Record(t.Context(), signedRecord()))
}

func TestMigrations(t *testing.T) {
	migrations, err := audit.Migrations().FindMigrations()
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	for _, m := range migrations {
		assert.NotEmpty(t, m.Up, m.Id)
		assert.NotEmpty(t, m.Down, m.Id)
	}
	assert.Less(t, migrations[0].Id, migrations[1].Id)
}
