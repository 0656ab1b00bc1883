package signing

import (
	"github/chapool/signing-gateway/internal/signing/verdict"
)

// Kind classifies why a signing request did not produce a signature.
type Kind string

const (
	KindChainMismatch   Kind = "chain_mismatch"
	KindNonceConflict   Kind = "nonce_conflict"
	KindPolicyRejected  Kind = "policy_rejected"
	KindValidatorFault  Kind = "validator_fault"
	KindAccountHalted   Kind = "account_halted"
	KindInvalidRequest  Kind = "invalid_request"
	KindSigningFailure  Kind = "signing_failure"
	KindUpstreamFailure Kind = "upstream_failure"
	KindRateLimited     Kind = "rate_limited"
)

// Rejection reports whether the kind is a deliberate refusal rather than a failure.
func (k Kind) Rejection() bool {
	switch k {
	case KindChainMismatch, KindNonceConflict, KindPolicyRejected, KindValidatorFault, KindAccountHalted,
		KindRateLimited:
		return true
	default:
		return false
	}
}

// Error is a structured signing rejection or failure. Reason is safe to return to callers.
type Error struct {
	Kind   Kind
	Reason string

	// Module names the validator behind a policy denial
	Module string

	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

func denied(kind Kind, v verdict.Verdict) *Error {
	return &Error{Kind: kind, Reason: v.Reason, Module: v.Module}
}

func policyError(v verdict.Verdict) *Error {
	if v.Fault {
		return denied(KindValidatorFault, v)
	}
	return denied(KindPolicyRejected, v)
}
