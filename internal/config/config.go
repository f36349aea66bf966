// Package config loads the cryptro command configuration from a YAML file
// and the environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/TheusHen/cryptro/cryptro"
	"github.com/TheusHen/cryptro/cryptro/container"
	"github.com/TheusHen/cryptro/cryptro/keyschedule"
)

const (
	// EnvConfigPath names the variable holding the config file path.
	EnvConfigPath = "CRYPTRO_CONFIG"
	// EnvPassword names the variable holding the password.
	EnvPassword = "CRYPTRO_PASSWORD"
)

type Config struct {
	Cipher    CipherConfig    `yaml:"cipher"`
	Container ContainerConfig `yaml:"container"`
	Log       LogConfig       `yaml:"log"`
}

type CipherConfig struct {
	Matrix  int    `yaml:"matrix" env:"CRYPTRO_MATRIX" env-default:"32"`
	Rounds  int    `yaml:"rounds" env:"CRYPTRO_ROUNDS" env-default:"3"`
	KDF     string `yaml:"kdf" env:"CRYPTRO_KDF" env-default:"hkdf"`
	Workers int    `yaml:"workers" env:"CRYPTRO_WORKERS" env-default:"0"`
}

type ContainerConfig struct {
	ChunkSize    int    `yaml:"chunk_size" env:"CRYPTRO_CHUNK_SIZE" env-default:"65536"`
	Compress     string `yaml:"compress" env:"CRYPTRO_COMPRESS" env-default:"none"`
	DataShards   int    `yaml:"data_shards" env:"CRYPTRO_DATA_SHARDS" env-default:"0"`
	ParityShards int    `yaml:"parity_shards" env:"CRYPTRO_PARITY_SHARDS" env-default:"0"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"CRYPTRO_LOG_LEVEL" env-default:"warn"`
}

// Load reads path when it is not empty, falling back to $CRYPTRO_CONFIG, and
// then applies environment overrides. With no file, defaults and the
// environment alone are used.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}

	var cfg Config
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("cannot read environment: %w", err)
		}
		return &cfg, nil
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("cannot load config file: %w", err)
	}
	return &cfg, nil
}

// CryptorConfig converts the cipher section into a validated cryptro.Config.
func (c *Config) CryptorConfig() (cryptro.Config, error) {
	kdf, err := keyschedule.ParseKDF(c.Cipher.KDF)
	if err != nil {
		return cryptro.Config{}, err
	}
	cc := cryptro.DefaultConfig()
	cc.Matrix = c.Cipher.Matrix
	cc.Rounds = c.Cipher.Rounds
	cc.KDF = kdf
	cc.Workers = c.Cipher.Workers
	if err := cc.Validate(); err != nil {
		return cryptro.Config{}, err
	}
	return cc, nil
}

// ContainerOptions converts the container section into writer options.
func (c *Config) ContainerOptions() ([]container.Option, error) {
	level, err := container.ParseCompression(c.Container.Compress)
	if err != nil {
		return nil, err
	}
	return []container.Option{
		container.WithChunkSize(c.Container.ChunkSize),
		container.WithCompression(level),
		container.WithParity(c.Container.DataShards, c.Container.ParityShards),
	}, nil
}

// Logger builds a text logger writing to w at the configured level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(c.Log.Level)}))
}

// ParseLevel maps a level name to slog, defaulting to warn.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
