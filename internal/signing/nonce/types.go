package nonce

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Denial reasons returned by Reserve.
const (
	ReasonBusy           = "account busy"
	ReasonUnknownAccount = "unknown account"
)

var (
	// ErrAccountHalted is returned for an account whose nonce state was found corrupted.
	// Signing stays disabled for that account until the gateway is restarted by an operator.
	ErrAccountHalted = errors.New("account halted")

	// ErrCorrupted is returned by an impossible state transition.
	ErrCorrupted = errors.New("nonce state corrupted")

	// ErrNoStartNonce is returned when an account has neither a configured first nonce nor a Source.
	ErrNoStartNonce = errors.New("no start nonce available")
)

// Source provides the first nonce of an account that has no configured start value.
type Source interface {
	// PendingNonceAt returns the next nonce the chain expects from the account
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// Snapshot is a point-in-time copy of an account's nonce state.
type Snapshot struct {
	LastIssued *uint64
	InFlight   bool
	Halted     bool
}

func (s Snapshot) String() string {
	last := "none"
	if s.LastIssued != nil {
		last = fmt.Sprint(*s.LastIssued)
	}

	return fmt.Sprintf("last issued %s, in flight %t, halted %t", last, s.InFlight, s.Halted)
}
