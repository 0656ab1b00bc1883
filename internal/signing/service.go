package signing

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github/chapool/signing-gateway/internal/audit"
	"github/chapool/signing-gateway/internal/ratelimit"
	"github/chapool/signing-gateway/internal/signing/chainguard"
	"github/chapool/signing-gateway/internal/signing/nonce"
	"github/chapool/signing-gateway/internal/signing/request"
	"github/chapool/signing-gateway/internal/util"
	"github/chapool/signing-gateway/internal/wallet/signer"
)

const reasonHalted = "account halted: nonce state corrupted"

type service struct {
	chainID  *big.Int
	signer   signer.Service
	node     Node
	policy   Policy
	recorder audit.Recorder
	clock    time2.Clock
	limiter  ratelimit.Limiter
	nonces   *nonce.Sequencer

	// locks serializes key use per account; the set is fixed at construction
	locks map[common.Address]*sync.Mutex
}

// NewService creates a new signing core for the accounts of signer
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService(cfg Config, signer signer.Service, node Node, policy Policy, recorder audit.Recorder) (Service, error) {
	if cfg.ChainID == nil || cfg.ChainID.Sign() <= 0 {
		return nil, errors.New("signing needs a positive chain id")
	}

	if recorder == nil {
		recorder = audit.Multi()
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time2.DefaultClock
	}

	accounts := signer.Accounts()
	locks := make(map[common.Address]*sync.Mutex, len(accounts))
	for _, account := range accounts {
		locks[account] = &sync.Mutex{}
	}

	var source nonce.Source
	if node != nil {
		source = node
	}

	return &service{
		chainID:  new(big.Int).Set(cfg.ChainID),
		signer:   signer,
		node:     node,
		policy:   policy,
		recorder: recorder,
		clock:    clock,
		limiter:  cfg.Limiter,
		nonces:   nonce.NewSequencer(accounts, cfg.StartNonces, source),
		locks:    locks,
	}, nil
}

func (s *service) Accounts() []common.Address {
	return s.signer.Accounts()
}

func (s *service) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

func (s *service) NonceState(account common.Address) (nonce.Snapshot, bool) {
	return s.nonces.Snapshot(account)
}

func (s *service) Sign(ctx context.Context, req *request.Request) (*Result, error) {
	return s.process(ctx, req, false)
}

func (s *service) Send(ctx context.Context, req *request.Request) (*Result, error) {
	if req.Variant != request.VariantTransaction {
		return nil, newError(KindInvalidRequest, "only transactions can be sent", nil)
	}

	return s.process(ctx, req, true)
}

// process runs a request to a terminal state. It ignores caller cancellation so an
// abandoned request still leaves the nonce state consistent.
func (s *service) process(ctx context.Context, req *request.Request, submit bool) (*Result, error) {
	ctx = context.WithoutCancel(ctx)
	start := s.clock.Now()

	result, err := s.run(ctx, req, submit)
	s.record(ctx, req, start, result, err)

	return result, err
}

func (s *service) run(ctx context.Context, req *request.Request, submit bool) (*Result, error) {
	// chain identity is checked before anything else
	if v := chainguard.Check(req.ChainID(), s.chainID); v.Denied() {
		return nil, denied(KindChainMismatch, v)
	}

	lock, ok := s.locks[req.Account]
	if !ok {
		return nil, newError(KindInvalidRequest, nonce.ReasonUnknownAccount, nil)
	}

	if s.limiter != nil {
		if d := s.limiter.Allow(ctx, req.Account.Hex()); !d.Allowed {
			return nil, newError(KindRateLimited,
				fmt.Sprintf("rate limit of %d signing requests exceeded until %s", d.Limit, d.ResetAt.UTC().Format(time.RFC3339)), nil)
		}
	}

	switch req.Variant {
	case request.VariantTransaction:
		result, err := s.signTransaction(ctx, req, lock)
		if err != nil || !submit {
			return result, err
		}

		if s.node == nil {
			return result, newError(KindUpstreamFailure, "no upstream node configured", nil)
		}

		// the nonce stays consumed: the signature exists even if the node never saw it
		if err := s.node.SendTransaction(ctx, result.Transaction); err != nil {
			return result, newError(KindUpstreamFailure, "failed to submit transaction", err)
		}

		return result, nil

	case request.VariantTypedData, request.VariantMessage:
		return s.signPayload(ctx, req, lock)

	default:
		return nil, newError(KindInvalidRequest, "unsupported request variant", nil)
	}
}

func (s *service) signTransaction(ctx context.Context, req *request.Request, lock *sync.Mutex) (*Result, error) {
	log := util.LogFromContext(ctx)
	tx := req.Transaction

	if tx.ChainID == nil {
		tx.ChainID = new(big.Int).Set(s.chainID)
	}

	if s.node != nil {
		if err := s.fillDefaults(ctx, tx); err != nil {
			return nil, newError(KindUpstreamFailure, "failed to complete transaction", err)
		}
	}

	res, v, err := s.nonces.Reserve(ctx, req.Account, tx.Nonce)
	switch {
	case errors.Is(err, nonce.ErrAccountHalted):
		return nil, newError(KindAccountHalted, reasonHalted, err)
	case errors.Is(err, nonce.ErrNoStartNonce):
		return nil, newError(KindSigningFailure, "no start nonce for account", err)
	case err != nil:
		return nil, newError(KindUpstreamFailure, "failed to fetch start nonce", err)
	case v.Denied():
		return nil, denied(KindNonceConflict, v)
	}

	// every exit that does not commit gives the nonce back
	defer func() {
		if err := res.Release(); err != nil {
			log.Error().Err(err).Str("account", req.Account.Hex()).Msg("Failed to release nonce reservation")
		}
	}()

	tx.Nonce = &res.Nonce

	if v := s.evaluate(ctx, req); v != nil {
		return nil, v
	}

	unsigned, err := tx.ToUnsigned()
	if err != nil {
		return nil, newError(KindInvalidRequest, "incomplete transaction", err)
	}

	lock.Lock()
	defer lock.Unlock()

	signed, err := s.signer.SignTransaction(ctx, req.Account, unsigned, tx.ChainID)
	if err != nil {
		return nil, newError(KindSigningFailure, "failed to sign transaction", err)
	}

	if err := res.Commit(); err != nil {
		return nil, newError(KindAccountHalted, reasonHalted, err)
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, newError(KindSigningFailure, "failed to encode transaction", err)
	}

	return &Result{
		Variant:     req.Variant,
		Account:     req.Account,
		Transaction: signed,
		Raw:         raw,
	}, nil
}

func (s *service) signPayload(ctx context.Context, req *request.Request, lock *sync.Mutex) (*Result, error) {
	// a halted account signs nothing, not only transactions
	if snap, _ := s.nonces.Snapshot(req.Account); snap.Halted {
		return nil, newError(KindAccountHalted, reasonHalted, nonce.ErrAccountHalted)
	}

	if v := s.evaluate(ctx, req); v != nil {
		return nil, v
	}

	lock.Lock()
	defer lock.Unlock()

	var (
		signature []byte
		err       error
	)
	if req.Variant == request.VariantTypedData {
		signature, err = s.signer.SignTypedData(ctx, req.Account, req.TypedData)
	} else {
		signature, err = s.signer.SignMessage(ctx, req.Account, req.Message)
	}
	if err != nil {
		return nil, newError(KindSigningFailure, "failed to sign "+req.Variant.String(), err)
	}

	return &Result{
		Variant:   req.Variant,
		Account:   req.Account,
		Signature: signature,
	}, nil
}

// evaluate returns a non-nil error when policy denies the request.
func (s *service) evaluate(ctx context.Context, req *request.Request) *Error {
	if s.policy == nil {
		return nil
	}

	if v := s.policy.Evaluate(ctx, req); v.Denied() {
		return policyError(v)
	}

	return nil
}

func (s *service) record(ctx context.Context, req *request.Request, start time.Time, result *Result, err error) {
	record := audit.NewRecord(s.clock.Now())
	record.Method = req.Method
	record.Variant = req.Variant.String()
	record.Account = req.Account.Hex()
	record.Duration = record.CreatedAt.Sub(start)
	record.RequestID, _ = util.RequestIDFromContext(ctx)

	if chainID := req.ChainID(); chainID != nil {
		record.ChainID = chainID.String()
	}
	if req.Variant == request.VariantTransaction && req.Transaction.Nonce != nil {
		n := *req.Transaction.Nonce
		record.Nonce = &n
	}
	if result != nil && result.Transaction != nil {
		record.TxHash = result.TxHash().Hex()
	}

	var sErr *Error
	switch {
	case err == nil:
		record.Outcome = audit.OutcomeSigned
	case errors.As(err, &sErr):
		record.Outcome = audit.OutcomeErrored
		if sErr.Kind.Rejection() {
			record.Outcome = audit.OutcomeRejected
		}
		record.Kind = string(sErr.Kind)
		record.Reason = sErr.Reason
		record.Module = sErr.Module
	default:
		record.Outcome = audit.OutcomeErrored
		record.Reason = err.Error()
	}

	if err := s.recorder.Record(ctx, record); err != nil {
		util.LogFromContext(ctx).Warn().Err(err).Str("audit_id", record.ID.String()).Msg("Failed to record audit entry")
	}
}
