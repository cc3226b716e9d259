package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	BackendEVM    = "evm"
	BackendMemory = "memory"
)

type Config struct {
	HTTPAddr  string `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	RegistryBackend     string        `envconfig:"REGISTRY_BACKEND" default:"evm"`
	RegistryRPCURL      string        `envconfig:"REGISTRY_RPC_URL" default:"http://127.0.0.1:8545"`
	RegistryAddress     string        `envconfig:"REGISTRY_ADDRESS"`
	RegistryABIPath     string        `envconfig:"REGISTRY_ABI_PATH"`
	RegistryChainID     int64         `envconfig:"REGISTRY_CHAIN_ID"`
	RegistryPrivateKey  string        `envconfig:"REGISTRY_PRIVATE_KEY"`
	RegistryCallTimeout time.Duration `envconfig:"REGISTRY_CALL_TIMEOUT" default:"10s"`
	RegistryWaitMined   bool          `envconfig:"REGISTRY_WAIT_MINED" default:"true"`
	NonRevokable        []string      `envconfig:"NON_REVOKABLE_LICENSES" default:"CC0-1.0,PDDL-1.0"`

	BatchConcurrency int    `envconfig:"BATCH_CONCURRENCY" default:"8"`
	BatchMaxHashes   int    `envconfig:"BATCH_MAX_HASHES" default:"1000"`
	FaultPolicy      string `envconfig:"FAULT_POLICY" default:"degrade"`

	PostgresDSN string `envconfig:"POSTGRES_DSN"`

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB"`

	RateLimitRequests      int  `envconfig:"RATE_LIMIT_REQUESTS"`
	RateLimitWindowSeconds int  `envconfig:"RATE_LIMIT_WINDOW_SECONDS" default:"60"`
	RateLimitFailClosed    bool `envconfig:"RATE_LIMIT_FAIL_CLOSED"`
	RateLimitMaxKeys       int  `envconfig:"RATE_LIMIT_MAX_KEYS" default:"10000"`

	PolicyBundlePath string `envconfig:"POLICY_BUNDLE_PATH"`
	PolicyBundleID   string `envconfig:"POLICY_BUNDLE_ID" default:"artemis-usage-default"`

	AdminAPIKey string `envconfig:"ADMIN_API_KEY"`
}

// FromEnv reads the process environment. Unset keys take their defaults;
// malformed values and unknown enum values are errors.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	cfg.RegistryBackend = strings.ToLower(strings.TrimSpace(cfg.RegistryBackend))
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.RegistryBackend {
	case BackendEVM, BackendMemory:
	default:
		return fmt.Errorf("REGISTRY_BACKEND must be %q or %q, got %q", BackendEVM, BackendMemory, c.RegistryBackend)
	}
	if c.BatchConcurrency <= 0 {
		return fmt.Errorf("BATCH_CONCURRENCY must be positive, got %d", c.BatchConcurrency)
	}
	if c.BatchMaxHashes <= 0 {
		return fmt.Errorf("BATCH_MAX_HASHES must be positive, got %d", c.BatchMaxHashes)
	}
	if c.RateLimitRequests < 0 || c.RateLimitWindowSeconds < 0 {
		return fmt.Errorf("rate limit settings must not be negative")
	}
	return nil
}

func (c Config) RateLimitWindow() time.Duration {
	if c.RateLimitWindowSeconds <= 0 {
		return 0
	}
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

// Writable reports whether commands can be submitted to the registry.
func (c Config) Writable() bool {
	return c.RegistryBackend == BackendMemory || c.RegistryPrivateKey != ""
}
