package wallet

import (
	"context"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/chapool/signing-gateway/internal/wallet/keystore"
	"golang.org/x/term"
)

const MinPasswordLength = 8

// PasswordPrompt asks the operator for a secret.
type PasswordPrompt func(prompt string) (string, error)

// InitializeKeystore encrypts mnemonic into a new keystore file at path. The keystore
// password is asked for twice. It returns the verification address of the wallet, which
// operators pin with GATEWAY_VERIFICATION_ADDRESS.
func InitializeKeystore(
	ctx context.Context,
	keystoreService keystore.Service,
	path string,
	mnemonic string,
	mnemonicPassword string,
	prompt PasswordPrompt,
) (common.Address, error) {
	log := log.With().Str("component", "wallet_init").Str("path", path).Logger()

	// fail before asking for anything when the mnemonic is unusable
	verification, err := VerificationAddress(mnemonic, mnemonicPassword)
	if err != nil {
		return common.Address{}, err
	}

	password, err := prompt(fmt.Sprintf("Enter password for keystore (min %d characters): ", MinPasswordLength))
	if err != nil {
		return common.Address{}, errors.Wrap(err, "failed to read password")
	}

	if len(password) < MinPasswordLength {
		return common.Address{}, errors.Errorf("password must be at least %d characters", MinPasswordLength)
	}

	passwordConfirm, err := prompt("Confirm password: ")
	if err != nil {
		return common.Address{}, errors.Wrap(err, "failed to read password confirmation")
	}

	if password != passwordConfirm {
		return common.Address{}, errors.New("passwords do not match")
	}

	if _, err := keystoreService.Create(ctx, path, mnemonic, password); err != nil {
		return common.Address{}, errors.Wrap(err, "failed to create keystore")
	}

	log.Info().Str("verification_address", verification.Hex()).Msg("Keystore created successfully")

	return verification, nil
}

// TerminalPrompt reads a secret from the terminal without echoing it.
//
//nolint:forbidigo // Password input requires direct terminal I/O
func TerminalPrompt(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd())) //nolint:gosec // fd fits into int
	if err != nil {
		return "", errors.Wrap(err, "failed to read password from terminal")
	}

	fmt.Fprintln(os.Stderr) // New line after password input

	return string(passwordBytes), nil
}
