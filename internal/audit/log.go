package audit

import (
	"context"

	"github.com/rs/zerolog"
	"github/chapool/signing-gateway/internal/util"
)

type logRecorder struct{}

// NewLogRecorder creates a recorder writing records to the context logger.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewLogRecorder() Recorder {
	return logRecorder{}
}

func (logRecorder) Record(ctx context.Context, record *Record) error {
	log := util.LogFromContext(ctx)

	var event *zerolog.Event
	switch record.Outcome {
	case OutcomeSigned:
		event = log.Info()
	case OutcomeRejected:
		event = log.Warn()
	default:
		event = log.Error()
	}

	event = event.
		Str("audit_id", record.ID.String()).
		Str("method", record.Method).
		Str("variant", record.Variant).
		Str("account", record.Account).
		Str("outcome", string(record.Outcome)).
		Dur("duration", record.Duration)

	if record.ChainID != "" {
		event = event.Str("chain_id", record.ChainID)
	}
	if record.Nonce != nil {
		event = event.Uint64("nonce", *record.Nonce)
	}
	if record.Kind != "" {
		event = event.Str("kind", record.Kind).Str("reason", record.Reason)
	}
	if record.Module != "" {
		event = event.Str("validator", record.Module)
	}
	if record.TxHash != "" {
		event = event.Str("tx_hash", record.TxHash)
	}

	event.Msg("Signing request finished")

	return nil
}
