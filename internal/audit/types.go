package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Outcome is the terminal state of a signing request.
type Outcome string

const (
	OutcomeSigned   Outcome = "signed"
	OutcomeRejected Outcome = "rejected"
	OutcomeErrored  Outcome = "errored"
)

// Record describes one finished signing request. Optional fields are empty when they do
// not apply to the request's variant or outcome.
type Record struct {
	ID        uuid.UUID
	CreatedAt time.Time
	RequestID string

	Method  string
	Variant string
	Account string
	ChainID string
	Nonce   *uint64

	Outcome Outcome
	Kind    string
	Reason  string
	Module  string

	TxHash   string
	Duration time.Duration
}

// NewRecord creates a record with a fresh id, created at now.
func NewRecord(now time.Time) *Record {
	return &Record{
		ID:        uuid.New(),
		CreatedAt: now.UTC(),
	}
}

// Recorder persists audit records. Recording must not block signing for long; callers
// log and drop recording failures.
type Recorder interface {
	Record(ctx context.Context, record *Record) error
}

type multi []Recorder

// Multi fans a record out to every recorder and joins their errors.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func Multi(recorders ...Recorder) Recorder {
	out := make(multi, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}

	return out
}

func (m multi) Record(ctx context.Context, record *Record) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, record); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Wrapf(errs[0], "%d of %d audit recorders failed", len(errs), len(m))
	}

	return nil
}
