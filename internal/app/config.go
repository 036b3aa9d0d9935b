package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	logpkg "argoya/internal/log"
	"argoya/internal/services/message"
	"argoya/internal/telemetry"
)

// EnvPrefix prefixes every environment override, e.g. ARGOYA_RELAY_URL.
const EnvPrefix = "ARGOYA"

// Config holds runtime wiring options for building the app.
type Config struct {
	Relay   RelayConfig      `mapstructure:"relay"`
	Sync    SyncConfig       `mapstructure:"sync"`
	Log     logpkg.Config    `mapstructure:"log"`
	Metrics telemetry.Config `mapstructure:"metrics"`
}

// RelayConfig points the client at a coordinating service.
type RelayConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SyncConfig controls the poll loops and the key exchange.
type SyncConfig struct {
	MessageInterval     time.Duration `mapstructure:"message_interval"`
	ParticipantInterval time.Duration `mapstructure:"participant_interval"`
	KeyExchange         bool          `mapstructure:"key_exchange"`
}

// SetDefaults registers every key with its default so env overrides and
// flag bindings resolve.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("relay.url", "http://127.0.0.1:8080")
	v.SetDefault("relay.timeout", 10*time.Second)
	v.SetDefault("sync.message_interval", message.DefaultMessageInterval)
	v.SetDefault("sync.participant_interval", message.DefaultParticipantInterval)
	v.SetDefault("sync.key_exchange", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", defaultLogFile())
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("metrics.file", "")
	v.SetDefault("metrics.interval", 30*time.Second)
}

// Load resolves configuration from, lowest first: defaults, the config file,
// ARGOYA_* environment variables, then any flags already bound to v. With an
// empty file it looks for argoya.yaml in ~/.argoya and the working directory
// and tolerates its absence.
func Load(v *viper.Viper, file string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName("argoya")
		v.SetConfigType("yaml")
		if dir := Home(); dir != "" {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Relay.URL) == "":
		return errors.New("config: relay.url is required")
	case c.Relay.Timeout <= 0:
		return errors.New("config: relay.timeout must be positive")
	case c.Sync.MessageInterval <= 0 || c.Sync.ParticipantInterval <= 0:
		return errors.New("config: sync intervals must be positive")
	}
	return nil
}

// Home is the per-user directory for config and logs, e.g. ~/.argoya.
// Empty if the home directory cannot be determined.
func Home() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, ".argoya")
}

func defaultLogFile() string {
	if dir := Home(); dir != "" {
		return filepath.Join(dir, "argoya.log")
	}
	return filepath.Join(os.TempDir(), "argoya.log")
}
