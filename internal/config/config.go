package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration knobs.
type Config struct {
	HTTP struct {
		Addr         string        `mapstructure:"addr"`
		ReadTimeout  time.Duration `mapstructure:"read_timeout"`
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
	} `mapstructure:"http"`
	Storage struct {
		Driver string `mapstructure:"driver"`
		Path   string `mapstructure:"path"`
	} `mapstructure:"storage"`
	Vault struct {
		// Changing this makes previously sealed keys unreadable.
		PBKDF2Iterations int `mapstructure:"pbkdf2_iterations"`
	} `mapstructure:"vault"`
	Relay struct {
		RequestTimeout time.Duration `mapstructure:"request_timeout"`
	} `mapstructure:"relay"`
	Status struct {
		PollInterval time.Duration `mapstructure:"poll_interval"`
		OnlineWindow time.Duration `mapstructure:"online_window"`
	} `mapstructure:"status"`
	Security struct {
		UnlockRPS   float64 `mapstructure:"unlock_rps"`
		UnlockBurst int     `mapstructure:"unlock_burst"`
	} `mapstructure:"security"`
	Auth struct {
		Enabled   bool          `mapstructure:"enabled"`
		Username  string        `mapstructure:"username"`
		Password  string        `mapstructure:"password"`
		JWTSecret string        `mapstructure:"jwt_secret"`
		TokenTTL  time.Duration `mapstructure:"token_ttl"`
	} `mapstructure:"auth"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"metrics"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

const (
	DriverFile = "file"
	DriverBolt = "bolt"
)

// Load reads the configuration from disk/environment using Viper.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("keyrelay")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// a missing file is fine, env and defaults still apply
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load config: %w", err)
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

// Validate rejects settings the rest of the program cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverFile, DriverBolt:
	default:
		return fmt.Errorf("storage.driver must be %q or %q, got %q", DriverFile, DriverBolt, c.Storage.Driver)
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return errors.New("storage.path is required")
	}
	if c.Vault.PBKDF2Iterations <= 0 {
		return errors.New("vault.pbkdf2_iterations must be positive")
	}
	if c.Status.PollInterval <= 0 {
		return errors.New("status.poll_interval must be positive")
	}
	if c.Status.OnlineWindow <= 0 {
		return errors.New("status.online_window must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8090")
	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "30s")

	v.SetDefault("storage.driver", DriverFile)
	v.SetDefault("storage.path", "./data/devices.json")

	v.SetDefault("vault.pbkdf2_iterations", 1000)

	v.SetDefault("relay.request_timeout", "10s")

	v.SetDefault("status.poll_interval", "10s")
	v.SetDefault("status.online_window", "60s")

	v.SetDefault("security.unlock_rps", 0.2)
	v.SetDefault("security.unlock_burst", 5)

	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.username", "admin")
	v.SetDefault("auth.password", "admin123")
	v.SetDefault("auth.jwt_secret", "change-me-secret")
	v.SetDefault("auth.token_ttl", "12h")

	v.SetDefault("metrics.enabled", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
