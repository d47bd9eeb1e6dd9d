package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// envPrefix namespaces every variable, e.g. WORKTRUST_SERVER_ADDR.
const envPrefix = "worktrust"

const EnvironmentProduction = "production"

// Config is the full process configuration.
type Config struct {
	Server       Server
	Auth         AuthConfig
	Log          LogConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	Signing      SigningConfig
	Issuer       IssuerConfig
	Verification VerificationConfig
	Sweep        SweepConfig
	RateLimit    RateLimitConfig `envconfig:"RATE_LIMIT"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr        string `envconfig:"ADDR" default:":8080"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

// devTokenSecret is the development default; Validate refuses it in production.
const devTokenSecret = "dev-token-secret-change-me"

// AuthConfig describes the HS256 access tokens minted by the identity service.
type AuthConfig struct {
	TokenSecret   string `envconfig:"TOKEN_SECRET" default:"dev-token-secret-change-me"`
	TokenIssuer   string `envconfig:"TOKEN_ISSUER" default:"worktrust-identity"`
	TokenAudience string `envconfig:"TOKEN_AUDIENCE" default:"worktrust-api"`
	// AdminToken guards /admin routes; empty leaves them unmounted.
	AdminToken string `envconfig:"ADMIN_TOKEN"`
}

type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"json"`
}

// DatabaseConfig selects postgres stores when URL is set; in-memory otherwise.
type DatabaseConfig struct {
	URL          string `envconfig:"URL"`
	MaxOpenConns int    `envconfig:"MAX_OPEN_CONNS" default:"10"`
}

// RedisConfig backs the shared revocation list. Empty URL disables Redis.
type RedisConfig struct {
	URL          string        `envconfig:"URL"`
	PoolSize     int           `envconfig:"POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
}

// KafkaConfig enables the audit event stream when Brokers is non-empty.
type KafkaConfig struct {
	Brokers       []string `envconfig:"BROKERS"`
	AuditTopic    string   `envconfig:"AUDIT_TOPIC" default:"worktrust.audit"`
	ConsumerGroup string   `envconfig:"CONSUMER_GROUP" default:"worktrust-audit"`
	Partitions    int32    `envconfig:"PARTITIONS" default:"3"`
	Replication   int16    `envconfig:"REPLICATION" default:"1"`
}

// SigningConfig selects the proof signer. There is no implicit fallback
// from rsa to hmac.
type SigningConfig struct {
	Mode           string `envconfig:"MODE" default:"rsa"`
	PrivateKeyFile string `envconfig:"PRIVATE_KEY_FILE"`
	PrivateKeyPEM  string `envconfig:"PRIVATE_KEY_PEM"`
	SharedSecret   string `envconfig:"SHARED_SECRET"`
}

type IssuerConfig struct {
	ID            string `envconfig:"ID" default:"did:web:worktrust.dev"`
	Name          string `envconfig:"NAME" default:"WorkTrust"`
	URL           string `envconfig:"URL" default:"https://worktrust.dev"`
	StatusListURL string `envconfig:"STATUS_LIST_URL"`
	TTLDays       int    `envconfig:"CREDENTIAL_TTL_DAYS" default:"365"`
}

type VerificationConfig struct {
	ResultTTL        time.Duration `envconfig:"RESULT_TTL" default:"8760h"`
	ReconfirmTimeout time.Duration `envconfig:"RECONFIRM_TIMEOUT" default:"10s"`
}

// SweepConfig drives the scheduled re-verification of expired results.
type SweepConfig struct {
	Enabled  bool   `envconfig:"ENABLED" default:"false"`
	Schedule string `envconfig:"SCHEDULE" default:"@daily"`
}

// RateLimitConfig throttles the unauthenticated endpoints per client IP.
type RateLimitConfig struct {
	Enabled bool          `envconfig:"ENABLED" default:"true"`
	Limit   int           `envconfig:"LIMIT" default:"60"`
	Window  time.Duration `envconfig:"WINDOW" default:"1m"`
}

// FromEnv loads configuration from WORKTRUST_* variables and validates it.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, EnvironmentProduction)
}

// AllowReducedAssurance reports whether HMAC proofs may be issued.
func (c *Config) AllowReducedAssurance() bool {
	return !c.IsProduction()
}

// Validate rejects configurations that would issue proofs without usable
// key material, or with HMAC in production.
func (c *Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Signing.Mode) {
	case "rsa":
		if c.Signing.PrivateKeyFile == "" && c.Signing.PrivateKeyPEM == "" {
			errs = append(errs, errors.New("signing mode rsa requires WORKTRUST_SIGNING_PRIVATE_KEY_FILE or WORKTRUST_SIGNING_PRIVATE_KEY_PEM"))
		}
	case "hmac":
		if c.IsProduction() {
			errs = append(errs, errors.New("signing mode hmac is not allowed in production"))
		}
		if c.Signing.SharedSecret == "" {
			errs = append(errs, errors.New("signing mode hmac requires WORKTRUST_SIGNING_SHARED_SECRET"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown signing mode %q", c.Signing.Mode))
	}
	if c.IsProduction() && (c.Auth.TokenSecret == "" || c.Auth.TokenSecret == devTokenSecret) {
		errs = append(errs, errors.New("WORKTRUST_AUTH_TOKEN_SECRET must be set in production"))
	}
	if c.Issuer.ID == "" {
		errs = append(errs, errors.New("issuer ID is required"))
	}
	if c.Issuer.TTLDays < 0 {
		errs = append(errs, errors.New("credential TTL must not be negative"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.Limit <= 0 || c.RateLimit.Window <= 0) {
		errs = append(errs, errors.New("rate limit and window must be positive when rate limiting is enabled"))
	}
	if c.Verification.ResultTTL <= 0 {
		errs = append(errs, errors.New("verification result TTL must be positive"))
	}
	return errors.Join(errs...)
}
