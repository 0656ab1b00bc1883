package config

import (
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// ParseStartNonces parses "address=nonce" entries.
func ParseStartNonces(entries []string) (map[common.Address]uint64, error) {
	nonces := make(map[common.Address]uint64, len(entries))

	for _, entry := range entries {
		addr, value, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, errors.Errorf("invalid start nonce %q, expected address=nonce", entry)
		}

		addr = strings.TrimSpace(addr)
		if !common.IsHexAddress(addr) {
			return nil, errors.Errorf("invalid start nonce address %q", addr)
		}

		nonce, err := strconv.ParseUint(strings.TrimSpace(value), 0, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid start nonce for %s", addr)
		}

		account := common.HexToAddress(addr)
		if _, dup := nonces[account]; dup {
			return nil, errors.Errorf("duplicate start nonce for %s", account.Hex())
		}
		nonces[account] = nonce
	}

	return nonces, nil
}
