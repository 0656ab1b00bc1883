package signing

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"github/chapool/signing-gateway/internal/signing/nonce"
)

// HaltAccount drives the account's nonce state through an impossible transition.
func HaltAccount(t *testing.T, core Service, account common.Address) {
	t.Helper()

	s, ok := core.(*service)
	require.True(t, ok)

	res, _, err := s.nonces.Reserve(t.Context(), account, nil)
	require.NoError(t, err)
	require.NoError(t, res.Release())
	require.ErrorIs(t, res.Commit(), nonce.ErrCorrupted)
}
