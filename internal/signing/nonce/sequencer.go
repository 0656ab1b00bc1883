package nonce

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/chapool/signing-gateway/internal/signing/verdict"
)

// Sequencer issues transaction nonces per account: one nonce in flight at a time,
// strictly increasing, no gaps.
//
// The account set is fixed at construction, so the map itself is never written afterwards
// and each account is guarded only by its own mutex.
type Sequencer struct {
	accounts map[common.Address]*state
	source   Source
}

type state struct {
	mu      sync.Mutex
	address common.Address

	started    bool
	first      uint64
	hasLast    bool
	lastIssued uint64

	inFlight bool
	reserved uint64

	halted error
}

// NewSequencer creates a Sequencer for the given accounts. Accounts present in start begin at
// that nonce; all others ask source on their first reservation.
func NewSequencer(accounts []common.Address, start map[common.Address]uint64, source Source) *Sequencer {
	states := make(map[common.Address]*state, len(accounts))
	for _, account := range accounts {
		st := &state{address: account}
		if first, ok := start[account]; ok {
			st.first = first
			st.started = true
		}
		states[account] = st
	}

	return &Sequencer{
		accounts: states,
		source:   source,
	}
}

// Reserve claims the next nonce of account. A nil proposed nonce is filled with the next
// expected one. On Allow the account stays in flight until the returned Reservation is
// committed or released; concurrent reservations for it are denied as busy.
func (s *Sequencer) Reserve(ctx context.Context, account common.Address, proposed *uint64) (*Reservation, verdict.Verdict, error) {
	st, ok := s.accounts[account]
	if !ok {
		return nil, verdict.Deny(ReasonUnknownAccount), nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.halted != nil {
		return nil, verdict.Verdict{}, errors.Wrap(ErrAccountHalted, st.halted.Error())
	}

	if st.inFlight {
		return nil, verdict.Deny(ReasonBusy), nil
	}

	if !st.started {
		if s.source == nil {
			return nil, verdict.Verdict{}, errors.Wrapf(ErrNoStartNonce, "account %s", account.Hex())
		}

		first, err := s.source.PendingNonceAt(ctx, account)
		if err != nil {
			return nil, verdict.Verdict{}, errors.Wrap(err, "failed to fetch start nonce")
		}

		st.first = first
		st.started = true

		log.Debug().
			Str("account", account.Hex()).
			Uint64("first_nonce", first).
			Msg("Initialized nonce state from upstream")
	}

	expected := st.next()
	nonce := expected
	if proposed != nil {
		nonce = *proposed
	}

	if nonce != expected {
		return nil, verdict.Denyf("nonce mismatch: expected %d, got %d", expected, nonce), nil
	}

	st.inFlight = true
	st.reserved = nonce

	return &Reservation{state: st, Nonce: nonce}, verdict.Allow, nil
}

// Snapshot returns a copy of the account's nonce state.
func (s *Sequencer) Snapshot(account common.Address) (Snapshot, bool) {
	st, ok := s.accounts[account]
	if !ok {
		return Snapshot{}, false
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	snap := Snapshot{
		InFlight: st.inFlight,
		Halted:   st.halted != nil,
	}
	if st.hasLast {
		last := st.lastIssued
		snap.LastIssued = &last
	}

	return snap, true
}

// next must be called with st.mu held.
func (st *state) next() uint64 {
	if st.hasLast {
		return st.lastIssued + 1
	}
	return st.first
}

// corrupt halts the account. Must be called with st.mu held.
func (st *state) corrupt(reason string) error {
	err := errors.Wrap(ErrCorrupted, reason)
	st.halted = err

	log.Error().
		Str("account", st.address.Hex()).
		Err(err).
		Msg("Nonce state corrupted, signing halted for account")

	return err
}

// Reservation is a nonce held in flight for one signing attempt.
type Reservation struct {
	state *state
	done  bool

	// Nonce is the reserved nonce
	Nonce uint64
}

// Commit consumes the reserved nonce. It must only be called after a signature was produced.
func (r *Reservation) Commit() error {
	st := r.state
	st.mu.Lock()
	defer st.mu.Unlock()

	if r.done {
		return st.corrupt("commit of a finalized reservation")
	}
	if !st.inFlight || st.reserved != r.Nonce {
		return st.corrupt("commit without matching in-flight nonce")
	}

	st.lastIssued = r.Nonce
	st.hasLast = true
	st.inFlight = false
	r.done = true

	return nil
}

// Release gives the reserved nonce back without consuming it. Releasing a finalized
// reservation is a no-op, so Release can always be deferred.
func (r *Reservation) Release() error {
	st := r.state
	st.mu.Lock()
	defer st.mu.Unlock()

	if r.done {
		return nil
	}
	if !st.inFlight || st.reserved != r.Nonce {
		return st.corrupt("release without matching in-flight nonce")
	}

	st.inFlight = false
	r.done = true

	return nil
}
