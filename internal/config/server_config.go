package config

import (
	"time"

	"github.com/rs/zerolog"
	"github/chapool/signing-gateway/internal/util"
)

// EnvPrefix prefixes every environment variable read by the gateway.
const EnvPrefix = "GATEWAY"

type EchoServer struct {
	Debug                          bool
	ListenAddress                  string
	MaxBodyBytes                   int64
	HideInternalServerErrorDetails bool
	EnableRecoverMiddleware        bool
	EnableRequestIDMiddleware      bool
	EnableLoggerMiddleware         bool
}

type LoggerServer struct {
	Level              zerolog.Level
	RequestLevel       zerolog.Level
	PrettyPrintConsole bool
}

type Chain struct {
	// ID 0 asks the upstream node at startup
	ID uint64

	// StartNonces holds "address=nonce" entries
	StartNonces []string
}

type Upstream struct {
	URLs    []string
	Timeout time.Duration
}

type Wallet struct {
	Mnemonic         string `json:"-"`
	MnemonicPassword string `json:"-"`
	KeystoreFile     string
	KeystorePassword string `json:"-"`
	AccountCount     int

	// VerificationAddress pins the first derived account; empty disables the check.
	VerificationAddress string
}

type Policy struct {
	Modules  []string
	Manifest string
	Timeout  time.Duration
}

type Audit struct {
	// DatabaseURL enables the Postgres audit trail when set
	DatabaseURL string `json:"-"`
	AutoMigrate bool
}

type RateLimit struct {
	// SigningRequests caps signing requests per account and window; 0 disables the cap
	SigningRequests int
	Window          time.Duration

	// RedisURL shares the counters between gateways; empty keeps them in memory
	RedisURL string `json:"-"`
}

type Management struct {
	ProbeURL              string
	ProbeReadinessTimeout time.Duration
	EnableMetrics         bool
}

type Server struct {
	Echo       EchoServer
	Logger     LoggerServer
	Chain      Chain
	Upstream   Upstream
	Wallet     Wallet
	Policy     Policy
	Audit      Audit
	RateLimit  RateLimit
	Management Management
}

func env(key string) string {
	return EnvPrefix + "_" + key
}

// DefaultServiceConfigFromEnv returns the server config as parsed from environment variables
// and their respective defaults defined below.
// We don't expect that ENV_VARs change while we are running our application or our tests
// (and it would be a bad thing to do anyways with parallel testing).
// Do NOT use os.Setenv / os.Unsetenv in tests utilizing DefaultServiceConfigFromEnv()!
func DefaultServiceConfigFromEnv() Server {
	// An `.env` file in the working directory may provide defaults for unset variables.
	// Use GATEWAY_ENV_FILE to point to another file.
	LoadEnvFileIfExists(util.GetEnv(env("ENV_FILE"), ".env"))

	return Server{
		Echo: EchoServer{
			Debug:                          util.GetEnvAsBool(env("ECHO_DEBUG"), false),
			ListenAddress:                  util.GetEnv(env("LISTEN_ADDRESS"), ":8545"),
			MaxBodyBytes:                   int64(util.GetEnvAsInt(env("MAX_BODY_BYTES"), 5<<20)), //nolint:mnd
			HideInternalServerErrorDetails: util.GetEnvAsBool(env("HIDE_INTERNAL_SERVER_ERROR_DETAILS"), true),
			EnableRecoverMiddleware:        util.GetEnvAsBool(env("ENABLE_RECOVER_MIDDLEWARE"), true),
			EnableRequestIDMiddleware:      util.GetEnvAsBool(env("ENABLE_REQUEST_ID_MIDDLEWARE"), true),
			EnableLoggerMiddleware:         util.GetEnvAsBool(env("ENABLE_LOGGER_MIDDLEWARE"), true),
		},
		Logger: LoggerServer{
			Level:              util.LogLevelFromString(util.GetEnv(env("LOG_LEVEL"), zerolog.InfoLevel.String())),
			RequestLevel:       util.LogLevelFromString(util.GetEnv(env("LOG_REQUEST_LEVEL"), zerolog.DebugLevel.String())),
			PrettyPrintConsole: util.GetEnvAsBool(env("LOG_PRETTY"), false),
		},
		Chain: Chain{
			ID:          util.GetEnvAsUint64(env("CHAIN_ID"), 0),
			StartNonces: util.GetEnvAsStringArr(env("START_NONCES"), []string{}),
		},
		Upstream: Upstream{
			URLs:    util.GetEnvAsStringArr(env("UPSTREAM_URLS"), []string{"http://127.0.0.1:8546"}),
			Timeout: util.GetEnvAsDuration(env("UPSTREAM_TIMEOUT"), 30*time.Second), //nolint:mnd
		},
		Wallet: Wallet{
			Mnemonic:            util.GetEnv(env("MNEMONIC"), ""),
			MnemonicPassword:    util.GetEnv(env("MNEMONIC_PASSWORD"), ""),
			KeystoreFile:        util.GetEnv(env("KEYSTORE_FILE"), ""),
			KeystorePassword:    util.GetEnv(env("KEYSTORE_PASSWORD"), ""),
			AccountCount:        util.GetEnvAsInt(env("ACCOUNT_COUNT"), 1),
			VerificationAddress: util.GetEnv(env("VERIFICATION_ADDRESS"), ""),
		},
		Policy: Policy{
			Modules:  util.GetEnvAsStringArr(env("POLICY_MODULES"), []string{}),
			Manifest: util.GetEnv(env("POLICY_MANIFEST"), ""),
			Timeout:  util.GetEnvAsDuration(env("POLICY_TIMEOUT"), 2*time.Second), //nolint:mnd
		},
		Audit: Audit{
			DatabaseURL: util.GetEnv(env("AUDIT_DATABASE_URL"), ""),
			AutoMigrate: util.GetEnvAsBool(env("AUDIT_AUTO_MIGRATE"), false),
		},
		RateLimit: RateLimit{
			SigningRequests: util.GetEnvAsInt(env("RATE_LIMIT_SIGNING_REQUESTS"), 0),
			Window:          util.GetEnvAsDuration(env("RATE_LIMIT_WINDOW"), time.Minute),
			RedisURL:        util.GetEnv(env("RATE_LIMIT_REDIS_URL"), ""),
		},
		Management: Management{
			ProbeURL:              util.GetEnv(env("PROBE_URL"), "http://127.0.0.1:8545"),
			ProbeReadinessTimeout: util.GetEnvAsDuration(env("PROBE_READINESS_TIMEOUT"), 2*time.Second), //nolint:mnd
			EnableMetrics:         util.GetEnvAsBool(env("ENABLE_METRICS"), true),
		},
	}
}
