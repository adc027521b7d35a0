package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Game     GameConfig     `mapstructure:"game"`
}

// ServerConfig covers the HTTP/WebSocket listener.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// DatabaseConfig covers the Postgres gateway. An empty URL selects the
// in-memory gateway (useful for local play and tests).
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// LoggingConfig selects the zap level and output format.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GameConfig tunes the card engine.
type GameConfig struct {
	// DeckFile points at the YAML deck-definition file. Empty selects the
	// built-in decks.
	DeckFile string `mapstructure:"deck_file"`

	ReplacementMaxAttempts int           `mapstructure:"replacement_max_attempts"`
	ReplacementMemory      time.Duration `mapstructure:"replacement_memory"`
	PromptTimeLimit        time.Duration `mapstructure:"prompt_time_limit"`
}

// Load reads the configuration file at path, with environment variables
// (PARTYDECK_ prefix) overriding file values. A missing file is not an error;
// defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.address", ":8080")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("game.deck_file", "")
	v.SetDefault("game.replacement_max_attempts", 3)
	v.SetDefault("game.replacement_memory", 30*time.Second)
	v.SetDefault("game.prompt_time_limit", 60*time.Second)

	v.SetEnvPrefix("PARTYDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
