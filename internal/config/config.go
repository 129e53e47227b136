package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Store and cursor backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	CursorPostgres = "postgres"
	CursorFile     = "file"
	CursorMemory   = "memory"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL        string
	Contract      string
	FromBlock     uint64
	HasFromBlock  bool
	Confirmations uint64
	BatchSize     uint64
	PollInterval  time.Duration
	Subscribe     bool
	Store         string
	PostgresDSN   string
	Cursor        string
	CursorName    string
	Checkpoint    string
	Archive       string
	MetricsAddr   string
	LogLevel      string
}

// Load merges the .env file, config file, environment variables, and flags
// into Config. Variables already in the environment win over .env entries.
func Load(cfgFile, envFile string, flags *pflag.FlagSet) (Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return Config{}, fmt.Errorf("load env file: %w", err)
			}
		}
	}

	v := viper.New()
	v.SetEnvPrefix("POINTS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("confirmations", uint64(0))
	v.SetDefault("batch-size", uint64(2000))
	v.SetDefault("poll-interval", 5*time.Second)
	v.SetDefault("subscribe", true)
	v.SetDefault("store", StorePostgres)
	v.SetDefault("cursor", CursorPostgres)
	v.SetDefault("cursor-name", "market")
	v.SetDefault("checkpoint", "./data/cursor.json")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:        v.GetString("rpc"),
		Contract:      strings.TrimSpace(v.GetString("contract")),
		FromBlock:     v.GetUint64("from-block"),
		HasFromBlock:  v.IsSet("from-block"),
		Confirmations: v.GetUint64("confirmations"),
		BatchSize:     v.GetUint64("batch-size"),
		PollInterval:  v.GetDuration("poll-interval"),
		Subscribe:     v.GetBool("subscribe"),
		Store:         strings.ToLower(v.GetString("store")),
		PostgresDSN:   v.GetString("pg-dsn"),
		Cursor:        strings.ToLower(v.GetString("cursor")),
		CursorName:    v.GetString("cursor-name"),
		Checkpoint:    v.GetString("checkpoint"),
		Archive:       v.GetString("archive"),
		MetricsAddr:   v.GetString("metrics-addr"),
		LogLevel:      v.GetString("log-level"),
	}

	return cfg, nil
}

// ValidateStore checks the settings every command needs.
func (c Config) ValidateStore() error {
	switch c.Store {
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("pg-dsn is required when store=%s", StorePostgres)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store %q (want %s or %s)", c.Store, StorePostgres, StoreMemory)
	}
	return nil
}

// ValidateRun checks the settings the poller needs.
func (c Config) ValidateRun() error {
	if err := c.ValidateStore(); err != nil {
		return err
	}
	if c.RPCURL == "" {
		return fmt.Errorf("rpc is required")
	}
	if c.Contract == "" {
		return fmt.Errorf("contract is required")
	}
	if c.BatchSize == 0 {
		return fmt.Errorf("batch-size must be greater than zero")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll-interval must be positive")
	}
	switch c.Cursor {
	case CursorPostgres:
		if c.Store != StorePostgres {
			return fmt.Errorf("cursor=%s requires store=%s", CursorPostgres, StorePostgres)
		}
	case CursorFile:
		if c.Checkpoint == "" {
			return fmt.Errorf("checkpoint path is required when cursor=%s", CursorFile)
		}
	case CursorMemory:
	default:
		return fmt.Errorf("unknown cursor %q", c.Cursor)
	}
	return nil
}
