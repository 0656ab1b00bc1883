package api

import (
	"context"
	"database/sql"
	"math/big"

	"github.com/dropbox/godropbox/time2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github/chapool/signing-gateway/internal/audit"
	"github/chapool/signing-gateway/internal/config"
	"github/chapool/signing-gateway/internal/metrics"
	"github/chapool/signing-gateway/internal/ratelimit"
	"github/chapool/signing-gateway/internal/signing"
	"github/chapool/signing-gateway/internal/signing/policy"
	"github/chapool/signing-gateway/internal/upstream"
	"github/chapool/signing-gateway/internal/wallet"
	"github/chapool/signing-gateway/internal/wallet/keystore"
	"github/chapool/signing-gateway/internal/wallet/signer"
)

// PROVIDERS - define here only providers that for various reasons (e.g. cyclic dependency) can't live in their corresponding packages
// or for wrapping providers that only accept sub-configs to prevent the requirement for defining providers for sub-configs.
// https://github.com/google/wire/blob/main/docs/guide.md#defining-providers

//nolint:ireturn // Returning interface is intentional for dependency injection
func NewClock() time2.Clock {
	return time2.DefaultClock
}

func NewUpstream(cfg config.Server) (*upstream.Client, error) {
	return upstream.NewClient(cfg.Upstream.URLs, cfg.Upstream.Timeout)
}

// NewKeyring derives the signing keys from the configured keystore file or mnemonic.
// The keystore wins when both are set.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewKeyring(cfg config.Server) (signer.Service, error) {
	mnemonic := cfg.Wallet.Mnemonic

	if cfg.Wallet.KeystoreFile != "" {
		decrypted, err := keystore.NewService(keystore.DefaultScryptParams()).
			Decrypt(context.Background(), cfg.Wallet.KeystoreFile, cfg.Wallet.KeystorePassword)
		if err != nil {
			return nil, errors.Wrap(err, "failed to unlock keystore")
		}
		mnemonic = decrypted
	}

	if mnemonic == "" {
		return nil, errors.New("no wallet configured, set GATEWAY_MNEMONIC or GATEWAY_KEYSTORE_FILE")
	}

	keyring, err := signer.NewServiceFromMnemonic(mnemonic, cfg.Wallet.MnemonicPassword, cfg.Wallet.AccountCount)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive accounts")
	}

	if cfg.Wallet.VerificationAddress != "" {
		if !common.IsHexAddress(cfg.Wallet.VerificationAddress) {
			return nil, errors.Errorf("invalid verification address %q", cfg.Wallet.VerificationAddress)
		}
		if err := wallet.VerifyAccounts(keyring.Accounts(), common.HexToAddress(cfg.Wallet.VerificationAddress)); err != nil {
			return nil, err
		}
	}

	for _, account := range keyring.Accounts() {
		log.Info().Str("account", account.Hex()).Msg("Managing account")
	}

	return signer.NewLogRecorder(keyring), nil
}

// NewPolicy loads the validator modules from the manifest, or else from the module list.
func NewPolicy(cfg config.Server) (*policy.Engine, error) {
	timeout := cfg.Policy.Timeout

	var (
		modules []*policy.Module
		err     error
	)

	switch {
	case cfg.Policy.Manifest != "":
		var manifest *policy.Manifest
		manifest, err = policy.LoadManifest(cfg.Policy.Manifest)
		if err != nil {
			return nil, err
		}
		if manifest.Timeout > 0 {
			timeout = manifest.Timeout
		}
		modules, err = manifest.Modules()
	default:
		modules, err = policy.LoadModules(cfg.Policy.Modules)
	}
	if err != nil {
		return nil, err
	}

	if len(modules) == 0 {
		log.Warn().Msg("No validator modules configured, every signing request passes the policy")
	}

	return policy.NewEngine(timeout, modules...), nil
}

// NewDB opens the audit database when one is configured and returns nil otherwise.
func NewDB(cfg config.Server) (*sql.DB, error) {
	if cfg.Audit.DatabaseURL == "" {
		return nil, nil //nolint:nilnil // the audit database is optional
	}

	db, err := sql.Open("postgres", cfg.Audit.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open audit database")
	}

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to reach audit database")
	}

	if cfg.Audit.AutoMigrate {
		n, err := audit.Migrate(db)
		if err != nil {
			db.Close()
			return nil, err
		}
		log.Info().Int("count", n).Msg("Applied audit migrations")
	}

	return db, nil
}

// NewAuditRecorder records signing outcomes to the log, the metrics and the audit database
// when there is one.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewAuditRecorder(db *sql.DB, m *metrics.Service) (audit.Recorder, error) {
	recorders := []audit.Recorder{audit.NewLogRecorder(), m}

	if db != nil {
		if err := m.RegisterDB("audit", db); err != nil {
			return nil, err
		}
		recorders = append(recorders, audit.NewPostgresRecorder(db))
	}

	return audit.Multi(recorders...), nil
}

// NewRedis connects to the Redis sharing rate limit counters, or returns nil when none is
// configured.
func NewRedis(cfg config.Server) (*redis.Client, error) {
	if cfg.RateLimit.RedisURL == "" {
		return nil, nil //nolint:nilnil // Redis is optional
	}

	opts, err := redis.ParseURL(cfg.RateLimit.RedisURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid rate limit redis url")
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Management.ProbeReadinessTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "failed to reach rate limit redis")
	}

	return client, nil
}

// NewLimiter caps signing requests per account, sharing the counters through Redis when a
// client is given. It returns nil when no cap is configured.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewLimiter(cfg config.Server, rdb *redis.Client, clock time2.Clock) ratelimit.Limiter {
	if cfg.RateLimit.SigningRequests <= 0 {
		return nil
	}

	log.Info().
		Int("limit", cfg.RateLimit.SigningRequests).
		Dur("window", cfg.RateLimit.Window).
		Bool("shared", rdb != nil).
		Msg("Limiting signing requests per account")

	if rdb != nil {
		return ratelimit.NewRedis(rdb, cfg.RateLimit.SigningRequests, cfg.RateLimit.Window)
	}

	return ratelimit.NewInMemory(clock, cfg.RateLimit.SigningRequests, cfg.RateLimit.Window)
}

// NewSigningConfig resolves the chain id, asking the upstream node when none is configured.
func NewSigningConfig(
	cfg config.Server,
	up *upstream.Client,
	clock time2.Clock,
	limiter ratelimit.Limiter,
) (signing.Config, error) {
	startNonces, err := config.ParseStartNonces(cfg.Chain.StartNonces)
	if err != nil {
		return signing.Config{}, err
	}

	chainID := new(big.Int).SetUint64(cfg.Chain.ID)
	if cfg.Chain.ID == 0 {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Upstream.Timeout)
		defer cancel()

		chainID, err = up.ChainID(ctx)
		if err != nil {
			return signing.Config{}, errors.Wrap(err, "failed to discover chain id")
		}
		log.Info().Str("chain_id", chainID.String()).Msg("Discovered chain id from upstream")
	}

	return signing.Config{
		ChainID:     chainID,
		StartNonces: startNonces,
		Clock:       clock,
		Limiter:     limiter,
	}, nil
}

//nolint:ireturn // Returning interface is intentional for dependency injection
func NewSigning(
	cfg signing.Config,
	keyring signer.Service,
	up *upstream.Client,
	engine *policy.Engine,
	recorder audit.Recorder,
) (signing.Service, error) {
	return signing.NewService(cfg, keyring, up, engine, recorder)
}
