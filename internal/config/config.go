// Package config provides the configuration schema and loader for the
// Shaberina bot.
package config

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure. It is loaded from a YAML file
// using [Load] or [LoadFromReader]; secrets may instead come from the
// environment (see [ApplyEnv]).
type Config struct {
	Bot       BotConfig       `yaml:"bot"`
	Database  DatabaseConfig  `yaml:"database"`
	TTS       TTSConfig       `yaml:"tts"`
	Cache     CacheConfig     `yaml:"cache"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// BotConfig holds Discord settings.
type BotConfig struct {
	// Token is the Discord bot token. Overridable via DISCORD_TOKEN.
	Token string `yaml:"token"`

	// OwnerID is the Discord user id allowed to run owner commands.
	// Empty disables them.
	OwnerID string `yaml:"owner_id"`

	// SoundDir holds the notification wav files (join.wav, leave.wav,
	// auto_join.wav, already_joined.wav).
	SoundDir string `yaml:"sound_dir"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	// DSN is the PostgreSQL connection string. Overridable via DATABASE_URL.
	DSN string `yaml:"dsn"`

	// MaxConns caps the connection pool size.
	MaxConns int32 `yaml:"max_conns"`

	// MinConns is the number of idle connections the pool keeps warm.
	MinConns int32 `yaml:"min_conns"`
}

// TTSConfig holds Open JTalk settings.
type TTSConfig struct {
	// Dir is the Open JTalk installation directory containing the binary,
	// dictionary and voice models.
	Dir string `yaml:"dir"`

	// OutDir is where synthesized wav files are written before playback.
	OutDir string `yaml:"out_dir"`
}

// CacheConfig sizes the per-scope config caches.
type CacheConfig struct {
	Users  int `yaml:"users"`
	Guilds int `yaml:"guilds"`
}

// TelemetryConfig holds observability settings.
type TelemetryConfig struct {
	// MetricsAddr is the listen address for the Prometheus /metrics
	// endpoint. Empty disables the endpoint.
	MetricsAddr string `yaml:"metrics_addr"`
}
