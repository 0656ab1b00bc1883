package chainguard_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github/chapool/signing-gateway/internal/signing/chainguard"
	"github/chapool/signing-gateway/internal/signing/verdict"
)

func TestCheck(t *testing.T) {
	configured := big.NewInt(100)

	assert.Equal(t, verdict.Allow, chainguard.Check(big.NewInt(100), configured))
	assert.Equal(t, verdict.Allow, chainguard.Check(nil, configured))

	v := chainguard.Check(big.NewInt(1), configured)
	assert.True(t, v.Denied())
	assert.Equal(t, chainguard.ReasonMismatch, v.Reason)
}

func TestCheckWithoutConfiguredChainDenies(t *testing.T) {
	assert.True(t, chainguard.Check(big.NewInt(1), nil).Denied())
}
