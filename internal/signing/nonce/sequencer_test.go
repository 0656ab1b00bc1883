package nonce_test

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/signing-gateway/internal/signing/nonce"
	"github/chapool/signing-gateway/internal/signing/verdict"
	"golang.org/x/sync/errgroup"
)

var (
	accountA = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	accountB = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

type staticSource struct {
	nonce uint64
	err   error
	calls int
}

func (s *staticSource) PendingNonceAt(_ context.Context, _ common.Address) (uint64, error) {
	s.calls++
	return s.nonce, s.err
}

func ptr(n uint64) *uint64 { return &n }

func reserveAndCommit(t *testing.T, seq *nonce.Sequencer, account common.Address, proposed *uint64) verdict.Verdict {
	t.Helper()

	res, v, err := seq.Reserve(t.Context(), account, proposed)
	require.NoError(t, err)
	if v.Denied() {
		return v
	}
	require.NoError(t, res.Commit())
	return v
}

func TestSequentialScenario(t *testing.T) {
	seq := nonce.NewSequencer([]common.Address{accountA}, map[common.Address]uint64{accountA: 5}, nil)

	// bring the account to lastIssued = 5
	require.Equal(t, verdict.Allow, reserveAndCommit(t, seq, accountA, ptr(5)))

	assert.Equal(t, verdict.Allow, reserveAndCommit(t, seq, accountA, ptr(6)))
	snap, ok := seq.Snapshot(accountA)
	require.True(t, ok)
	assert.Equal(t, uint64(6), *snap.LastIssued)

	stale := reserveAndCommit(t, seq, accountA, ptr(6))
	assert.True(t, stale.Denied())
	assert.Equal(t, "nonce mismatch: expected 7, got 6", stale.Reason)

	assert.Equal(t, verdict.Allow, reserveAndCommit(t, seq, accountA, ptr(7)))
	snap, _ = seq.Snapshot(accountA)
	assert.Equal(t, uint64(7), *snap.LastIssued)
}

func TestReserveFillsMissingNonce(t *testing.T) {
	seq := nonce.NewSequencer([]common.Address{accountA}, map[common.Address]uint64{accountA: 3}, nil)

	res, v, err := seq.Reserve(t.Context(), accountA, nil)
	require.NoError(t, err)
	require.Equal(t, verdict.Allow, v)
	assert.Equal(t, uint64(3), res.Nonce)
}

func TestBusyWhileInFlight(t *testing.T) {
	seq := nonce.NewSequencer([]common.Address{accountA}, map[common.Address]uint64{accountA: 0}, nil)

	res, v, err := seq.Reserve(t.Context(), accountA, ptr(0))
	require.NoError(t, err)
	require.Equal(t, verdict.Allow, v)

	_, busy, err := seq.Reserve(t.Context(), accountA, ptr(0))
	require.NoError(t, err)
	assert.Equal(t, nonce.ReasonBusy, busy.Reason)

	// other accounts are not affected
	seq2 := nonce.NewSequencer([]common.Address{accountA, accountB}, map[common.Address]uint64{accountA: 0, accountB: 0}, nil)
	_, _, err = seq2.Reserve(t.Context(), accountA, nil)
	require.NoError(t, err)
	_, vb, err := seq2.Reserve(t.Context(), accountB, nil)
	require.NoError(t, err)
	assert.Equal(t, verdict.Allow, vb)

	require.NoError(t, res.Release())
}

func TestReleaseDoesNotConsume(t *testing.T) {
	seq := nonce.NewSequencer([]common.Address{accountA}, map[common.Address]uint64{accountA: 10}, nil)

	res, _, err := seq.Reserve(t.Context(), accountA, ptr(10))
	require.NoError(t, err)
	require.NoError(t, res.Release())
	require.NoError(t, res.Release(), "release is idempotent")

	snap, _ := seq.Snapshot(accountA)
	assert.Nil(t, snap.LastIssued)
	assert.False(t, snap.InFlight)

	assert.Equal(t, verdict.Allow, reserveAndCommit(t, seq, accountA, ptr(10)))
}

func TestReleaseAfterCommitIsNoop(t *testing.T) {
	seq := nonce.NewSequencer([]common.Address{accountA}, map[common.Address]uint64{accountA: 0}, nil)

	res, _, err := seq.Reserve(t.Context(), accountA, nil)
	require.NoError(t, err)
	require.NoError(t, res.Commit())
	require.NoError(t, res.Release())

	snap, _ := seq.Snapshot(accountA)
	assert.Equal(t, uint64(0), *snap.LastIssued)
	assert.False(t, snap.Halted)
}

func TestUnknownAccount(t *testing.T) {
	seq := nonce.NewSequencer([]common.Address{accountA}, nil, nil)

	_, v, err := seq.Reserve(t.Context(), accountB, nil)
	require.NoError(t, err)
	assert.Equal(t, nonce.ReasonUnknownAccount, v.Reason)
}

func TestStartNonceFromSource(t *testing.T) {
	source := &staticSource{nonce: 42}
	seq := nonce.NewSequencer([]common.Address{accountA}, nil, source)

	assert.Equal(t, verdict.Allow, reserveAndCommit(t, seq, accountA, ptr(42)))
	assert.Equal(t, verdict.Allow, reserveAndCommit(t, seq, accountA, ptr(43)))
	assert.Equal(t, 1, source.calls)
}

func TestStartNonceSourceFailure(t *testing.T) {
	source := &staticSource{err: errors.New("node down")}
	seq := nonce.NewSequencer([]common.Address{accountA}, nil, source)

	_, _, err := seq.Reserve(t.Context(), accountA, nil)
	require.Error(t, err)

	snap, _ := seq.Snapshot(accountA)
	assert.False(t, snap.InFlight)
}

func TestNoStartNonce(t *testing.T) {
	seq := nonce.NewSequencer([]common.Address{accountA}, nil, nil)

	_, _, err := seq.Reserve(t.Context(), accountA, nil)
	require.ErrorIs(t, err, nonce.ErrNoStartNonce)
}

func TestCorruptionHaltsOnlyThatAccount(t *testing.T) {
	seq := nonce.NewSequencer(
		[]common.Address{accountA, accountB},
		map[common.Address]uint64{accountA: 0, accountB: 0},
		nil,
	)

	stale, _, err := seq.Reserve(t.Context(), accountA, nil)
	require.NoError(t, err)
	require.NoError(t, stale.Release())

	// committing a released reservation is an impossible transition
	err = stale.Commit()
	require.ErrorIs(t, err, nonce.ErrCorrupted)

	_, _, err = seq.Reserve(t.Context(), accountA, nil)
	require.ErrorIs(t, err, nonce.ErrAccountHalted)

	snap, _ := seq.Snapshot(accountA)
	assert.True(t, snap.Halted)

	assert.Equal(t, verdict.Allow, reserveAndCommit(t, seq, accountB, nil))
}

func TestConcurrentReservationsAreGapFree(t *testing.T) {
	const (
		start   = 100
		callers = 32
		rounds  = 50
	)

	seq := nonce.NewSequencer([]common.Address{accountA}, map[common.Address]uint64{accountA: start}, nil)

	var (
		mu     sync.Mutex
		signed []uint64
	)

	var group errgroup.Group
	for i := 0; i < callers; i++ {
		group.Go(func() error {
			for round := 0; round < rounds; round++ {
				// callers propose a spread of nonces, most of them wrong
				proposed := uint64(start + (i+round)%callers)
				res, v, err := seq.Reserve(context.Background(), accountA, &proposed)
				if err != nil {
					return err
				}
				if v.Denied() {
					continue
				}

				if round%3 == 0 {
					if err := res.Release(); err != nil {
						return err
					}
					continue
				}

				if err := res.Commit(); err != nil {
					return err
				}
				mu.Lock()
				signed = append(signed, res.Nonce)
				mu.Unlock()
			}
			return nil
		})
	}
	require.NoError(t, group.Wait())

	sort.Slice(signed, func(i, j int) bool { return signed[i] < signed[j] })
	for i, n := range signed {
		assert.Equal(t, uint64(start+i), n)
	}

	snap, _ := seq.Snapshot(accountA)
	assert.False(t, snap.InFlight)
	if len(signed) > 0 {
		assert.Equal(t, signed[len(signed)-1], *snap.LastIssued)
	}
}
