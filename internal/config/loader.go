package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Default cache capacities applied when the YAML omits them.
const (
	defaultUserCacheSize  = 100
	defaultGuildCacheSize = 50
)

// Default connection pool bounds applied when the YAML omits them.
const (
	defaultMaxConns = 8
	defaultMinConns = 2
)

// Load reads the YAML configuration file at path, applies environment
// overrides, and returns a validated [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies environment overrides
// and defaults, and validates the result. Useful in tests where configs are
// constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envOverrides maps environment variables onto config fields. Secrets are
// expected here rather than in the YAML file.
type envOverrides struct {
	Token    string `env:"DISCORD_TOKEN"`
	OwnerID  string `env:"BOT_OWNER_ID"`
	Database string `env:"DATABASE_URL"`
}

// ApplyEnv overlays environment variables onto cfg. Set variables win over
// YAML values.
func ApplyEnv(cfg *Config) error {
	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return fmt.Errorf("config: parse environment: %w", err)
	}
	if ov.Token != "" {
		cfg.Bot.Token = ov.Token
	}
	if ov.OwnerID != "" {
		cfg.Bot.OwnerID = ov.OwnerID
	}
	if ov.Database != "" {
		cfg.Database.DSN = ov.Database
	}
	return nil
}

// applyDefaults fills in zero values that have sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Bot.SoundDir == "" {
		cfg.Bot.SoundDir = "sounds"
	}
	if cfg.Bot.LogLevel == "" {
		cfg.Bot.LogLevel = LogInfo
	}
	if cfg.TTS.Dir == "" {
		cfg.TTS.Dir = "openjtalk"
	}
	if cfg.TTS.OutDir == "" {
		cfg.TTS.OutDir = "wav/tmp"
	}
	if cfg.Cache.Users == 0 {
		cfg.Cache.Users = defaultUserCacheSize
	}
	if cfg.Cache.Guilds == 0 {
		cfg.Cache.Guilds = defaultGuildCacheSize
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = defaultMaxConns
	}
	if cfg.Database.MinConns == 0 {
		cfg.Database.MinConns = defaultMinConns
	}
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Bot.Token == "" {
		errs = append(errs, errors.New("bot.token is required (or set DISCORD_TOKEN)"))
	}
	if !cfg.Bot.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("bot.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Bot.LogLevel))
	}
	if cfg.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required (or set DATABASE_URL)"))
	}
	if cfg.Cache.Users < 0 {
		errs = append(errs, fmt.Errorf("cache.users %d must not be negative", cfg.Cache.Users))
	}
	if cfg.Cache.Guilds < 0 {
		errs = append(errs, fmt.Errorf("cache.guilds %d must not be negative", cfg.Cache.Guilds))
	}
	if cfg.Database.MaxConns < 1 {
		errs = append(errs, fmt.Errorf("database.max_conns %d must be positive", cfg.Database.MaxConns))
	}
	if cfg.Database.MinConns < 0 || cfg.Database.MinConns > cfg.Database.MaxConns {
		errs = append(errs, fmt.Errorf("database.min_conns %d must be between 0 and max_conns", cfg.Database.MinConns))
	}

	return errors.Join(errs...)
}
