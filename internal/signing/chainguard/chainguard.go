// Package chainguard rejects requests that claim a chain other than the one the gateway signs for.
package chainguard

import (
	"math/big"

	"github/chapool/signing-gateway/internal/signing/verdict"
)

// ReasonMismatch is the denial reason for a claimed chain id that differs from the configured one.
const ReasonMismatch = "chain id mismatch"

// Check compares the chain id claimed by a request with the configured chain id.
// A request that does not claim a chain id (nil) is not denied here.
func Check(claimed, configured *big.Int) verdict.Verdict {
	if claimed == nil {
		return verdict.Allow
	}
	if configured == nil || claimed.Cmp(configured) != 0 {
		return verdict.Deny(ReasonMismatch)
	}
	return verdict.Allow
}
