// Package config reads the service configuration from SANCTUM_* environment
// variables into a typed, validated Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	RecordStoreMemory   = "memory"
	RecordStorePostgres = "postgres"
	RecordStoreBadger   = "badger"

	minSecretLen = 32

	// Development defaults. FromEnv refuses them in production.
	devMasterSecret = "sanctum-development-master-secret-do-not-use"
	devSigningKey   = "sanctum-development-session-signing-key"
)

type Config struct {
	Env      string `validate:"oneof=development production"`
	Addr     string `validate:"required"`
	LogLevel string `validate:"oneof=debug info warn error"`

	Crypto   Crypto
	Session  Session
	Behavior Behavior
	Pipeline Pipeline
	Policy   Policy
	Storage  Storage
	Alerts   Alerts

	SweepInterval time.Duration `validate:"gt=0"`
}

type Crypto struct {
	MasterSecret string `validate:"required"`
	// PreviousSecrets maps retired key versions to their secrets.
	PreviousSecrets map[int]string
	KeyVersion      int    `validate:"gte=1"`
	Cipher          string `validate:"oneof=aes-256-gcm xchacha20-poly1305"`
}

type Session struct {
	SigningKey       string        `validate:"required"`
	RotationInterval time.Duration `validate:"gt=0"`
	TokenTTL         time.Duration `validate:"gt=0"`
	MaxConcurrent    int           `validate:"gte=1"`
	ScoreThreshold   float64       `validate:"gte=0,lte=1"`
}

type Behavior struct {
	BurstThreshold int           `validate:"gte=1"`
	BurstWindow    time.Duration `validate:"gt=0"`
	OffHoursStart  int           `validate:"gte=0,lte=23"`
	OffHoursEnd    int           `validate:"gte=0,lte=23,nefield=OffHoursStart"`
	Timezone       string        `validate:"required"`
}

type Pipeline struct {
	DLPCeiling     float64 `validate:"gt=0,lte=1"`
	RateLimitRPS   float64 `validate:"gt=0"`
	RateLimitBurst int     `validate:"gte=1"`
}

type Policy struct {
	File string
}

type Storage struct {
	RedisURL          string
	AuditDatabaseURL  string
	RecordStore       string `validate:"oneof=memory postgres badger"`
	RecordDatabaseURL string `validate:"required_if=RecordStore postgres"`
	BadgerPath        string
}

type Alerts struct {
	WebhookURL   string `validate:"omitempty,url"`
	KafkaBrokers []string
	KafkaTopic   string        `validate:"required_with=KafkaBrokers"`
	Timeout      time.Duration `validate:"gt=0"`
}

// FromEnv builds a Config from the environment. In production a missing or
// short master secret or signing key is an error rather than a default.
func FromEnv() (*Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	r := reader{getenv: getenv}
	cfg := &Config{
		Env:      r.str("SANCTUM_ENV", EnvDevelopment),
		Addr:     r.str("SANCTUM_ADDR", ":8080"),
		LogLevel: strings.ToLower(r.str("SANCTUM_LOG_LEVEL", "info")),
		Crypto: Crypto{
			MasterSecret:    r.str("SANCTUM_MASTER_SECRET", ""),
			PreviousSecrets: r.versions("SANCTUM_PREVIOUS_SECRETS"),
			KeyVersion:      r.int("SANCTUM_KEY_VERSION", 1),
			Cipher:          r.str("SANCTUM_CIPHER", "aes-256-gcm"),
		},
		Session: Session{
			SigningKey:       r.str("SANCTUM_SESSION_SIGNING_KEY", ""),
			RotationInterval: r.duration("SANCTUM_SESSION_ROTATION", 15*time.Minute),
			TokenTTL:         r.duration("SANCTUM_SESSION_TOKEN_TTL", 12*time.Hour),
			MaxConcurrent:    r.int("SANCTUM_SESSION_MAX_CONCURRENT", 3),
			ScoreThreshold:   r.float("SANCTUM_SESSION_SCORE_THRESHOLD", 0.5),
		},
		Behavior: Behavior{
			BurstThreshold: r.int("SANCTUM_BEHAVIOR_BURST_THRESHOLD", 20),
			BurstWindow:    r.duration("SANCTUM_BEHAVIOR_BURST_WINDOW", 60*time.Second),
			OffHoursStart:  r.int("SANCTUM_OFF_HOURS_START", 23),
			OffHoursEnd:    r.int("SANCTUM_OFF_HOURS_END", 6),
			Timezone:       r.str("SANCTUM_TIMEZONE", "UTC"),
		},
		Pipeline: Pipeline{
			DLPCeiling:     r.float("SANCTUM_DLP_CEILING", 0.9),
			RateLimitRPS:   r.float("SANCTUM_RATE_LIMIT_RPS", 10),
			RateLimitBurst: r.int("SANCTUM_RATE_LIMIT_BURST", 20),
		},
		Policy: Policy{File: r.str("SANCTUM_POLICY_FILE", "")},
		Storage: Storage{
			RedisURL:          r.str("SANCTUM_REDIS_URL", ""),
			AuditDatabaseURL:  r.str("SANCTUM_AUDIT_DATABASE_URL", ""),
			RecordStore:       strings.ToLower(r.str("SANCTUM_RECORD_STORE", RecordStoreMemory)),
			RecordDatabaseURL: r.str("SANCTUM_RECORD_DATABASE_URL", ""),
			BadgerPath:        r.str("SANCTUM_BADGER_PATH", ""),
		},
		Alerts: Alerts{
			WebhookURL:   r.str("SANCTUM_ALERT_WEBHOOK_URL", ""),
			KafkaBrokers: r.list("SANCTUM_ALERT_KAFKA_BROKERS"),
			KafkaTopic:   r.str("SANCTUM_ALERT_KAFKA_TOPIC", ""),
			Timeout:      r.duration("SANCTUM_ALERT_TIMEOUT", 5*time.Second),
		},
		SweepInterval: r.duration("SANCTUM_SWEEP_INTERVAL", time.Minute),
	}
	if err := errors.Join(r.errs...); err != nil {
		return nil, err
	}

	if err := cfg.applySecretDefaults(); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := time.LoadLocation(cfg.Behavior.Timezone); err != nil {
		return nil, fmt.Errorf("invalid SANCTUM_TIMEZONE: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool { return c.Env == EnvProduction }

// Location is the behavior timezone. load has already checked it parses.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Behavior.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) applySecretDefaults() error {
	if c.IsProduction() {
		if len(c.Crypto.MasterSecret) < minSecretLen {
			return fmt.Errorf("SANCTUM_MASTER_SECRET must be at least %d bytes in production", minSecretLen)
		}
		if len(c.Session.SigningKey) < minSecretLen {
			return fmt.Errorf("SANCTUM_SESSION_SIGNING_KEY must be at least %d bytes in production", minSecretLen)
		}
		return nil
	}
	if c.Crypto.MasterSecret == "" {
		c.Crypto.MasterSecret = devMasterSecret
	}
	if c.Session.SigningKey == "" {
		c.Session.SigningKey = devSigningKey
	}
	return nil
}

// reader collects parse errors so every bad variable is reported at once.
type reader struct {
	getenv func(string) string
	errs   []error
}

func (r *reader) str(key, def string) string {
	if v := strings.TrimSpace(r.getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *reader) int(key string, def int) int {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (r *reader) float(key string, def float64) float64 {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (r *reader) list(key string) []string {
	var out []string
	for _, part := range strings.Split(r.getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// versions parses "1:secret,2:secret".
func (r *reader) versions(key string) map[int]string {
	out := map[int]string{}
	for _, entry := range r.list(key) {
		v, secret, ok := strings.Cut(entry, ":")
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if !ok || err != nil || n < 1 || secret == "" {
			r.errs = append(r.errs, fmt.Errorf("%s: entries must be version:secret", key))
			continue
		}
		out[n] = secret
	}
	return out
}
