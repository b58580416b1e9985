package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/atvirokodosprendimai/accessdesk/internal/domain"
)

type Config struct {
	HTTP     HTTPConfig     `toml:"http"`
	RPC      RPCConfig      `toml:"rpc"`
	Database DatabaseConfig `toml:"database"`
	Auth     AuthConfig     `toml:"auth"`
	Policy   PolicyConfig   `toml:"policy"`
	Redis    RedisConfig    `toml:"redis"`
	Kafka    KafkaConfig    `toml:"kafka"`
}

type HTTPConfig struct {
	Addr          string   `toml:"addr"`
	CORSOrigins   []string `toml:"cors_origins"`
	SecureCookies bool     `toml:"secure_cookies"`
}

type RPCConfig struct {
	Socket string `toml:"socket"`
}

type DatabaseConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

type AuthConfig struct {
	JWTSecret         string        `toml:"jwt_secret"`
	TokenTTL          time.Duration `toml:"token_ttl"`
	BootstrapUsername string        `toml:"bootstrap_username"`
	BootstrapPassword string        `toml:"bootstrap_password"`
	LoginRateLimit    int           `toml:"login_rate_limit"`
	LoginRateWindow   time.Duration `toml:"login_rate_window"`
}

type PolicyConfig struct {
	Mode               string `toml:"mode"`
	EnforceTransitions bool   `toml:"enforce_transitions"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

type KafkaConfig struct {
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:        ":8080",
			CORSOrigins: []string{"*"},
		},
		RPC: RPCConfig{
			Socket: "./data/accessdesk.sock",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "./data/accessdesk.db",
		},
		Auth: AuthConfig{
			TokenTTL:        24 * time.Hour,
			LoginRateLimit:  10,
			LoginRateWindow: time.Minute,
		},
		Policy: PolicyConfig{
			Mode: string(domain.PolicyPermissive),
		},
		Kafka: KafkaConfig{
			Topic: "accessdesk.requests",
		},
	}
}

// Load reads a TOML file over the defaults. Keys absent from the file keep
// their default values; unknown keys are an error. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return cfg, nil
}

func (c *Config) PolicyValue() (domain.Policy, error) {
	mode, err := domain.ParsePolicyMode(c.Policy.Mode)
	if err != nil {
		return domain.Policy{}, err
	}
	return domain.Policy{Mode: mode, EnforceTransitions: c.Policy.EnforceTransitions}, nil
}

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

func (c *Config) Validate() error {
	var errs ValidateErrors

	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, ValidationError{Field: "http.addr", Message: "must not be empty"})
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, ValidationError{
			Field:   "database.driver",
			Message: fmt.Sprintf("invalid driver '%s', must be one of: sqlite, postgres", c.Database.Driver),
		})
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		errs = append(errs, ValidationError{Field: "database.dsn", Message: "must not be empty"})
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, ValidationError{Field: "auth.jwt_secret", Message: "must be set"})
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, ValidationError{Field: "auth.token_ttl", Message: "must be positive"})
	}
	if c.Auth.LoginRateLimit < 0 {
		errs = append(errs, ValidationError{Field: "auth.login_rate_limit", Message: "cannot be negative"})
	}
	if c.Auth.LoginRateLimit > 0 && c.Auth.LoginRateWindow <= 0 {
		errs = append(errs, ValidationError{Field: "auth.login_rate_window", Message: "must be positive when rate limiting is on"})
	}
	if (c.Auth.BootstrapUsername == "") != (c.Auth.BootstrapPassword == "") {
		errs = append(errs, ValidationError{Field: "auth.bootstrap_username", Message: "username and password must be set together"})
	}
	if _, err := domain.ParsePolicyMode(c.Policy.Mode); err != nil {
		errs = append(errs, ValidationError{Field: "policy.mode", Message: "must be one of: permissive, strict"})
	}
	if len(c.Kafka.Brokers) > 0 && strings.TrimSpace(c.Kafka.Topic) == "" {
		errs = append(errs, ValidationError{Field: "kafka.topic", Message: "required when brokers are set"})
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// IsValidationError reports whether err came from Validate.
func IsValidationError(err error) bool {
	var v ValidateErrors
	return errors.As(err, &v)
}
