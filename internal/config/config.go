package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sheerbytes/filexfer/internal/transfer"
)

// EnvPrefix prefixes every environment variable, e.g. FILEXFER_ADDR.
const EnvPrefix = "FILEXFER"

// Config holds settings shared by the client and server commands.
type Config struct {
	Addr           string // transport URL, e.g. tcp://host:9000, quic://host:9000, ws://host:9000/xfer
	LogLevel       string
	LogFormat      string // text or json
	Root           string // directory served by `serve`
	ChunkSize      int    // outgoing chunk payload size in bytes (1..65536)
	Progress       bool   // render a progress bar on client transfers
	SkipSpaceCheck bool   // skip the free-space precheck before receiving
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Addr:      "tcp://127.0.0.1:9000",
		LogLevel:  "info",
		LogFormat: "text",
		Root:      ".",
		ChunkSize: transfer.MaxChunkSize,
		Progress:  true,
	}
}

// BindFlags registers every setting on fs with its default.
func BindFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("addr", d.Addr, "peer address (tcp://, quic://, ws://)")
	fs.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
	fs.String("log-format", d.LogFormat, "log format (text, json)")
	fs.String("root", d.Root, "directory to serve (serve only)")
	fs.Int("chunk-size", d.ChunkSize, "chunk payload size in bytes (max 65536)")
	fs.Bool("progress", d.Progress, "show a progress bar")
	fs.Bool("skip-space-check", d.SkipSpaceCheck, "do not check free space before receiving")
}

// Load resolves settings with precedence flag > environment > config file >
// default. configFile may be empty.
func Load(fs *pflag.FlagSet, configFile string) (Config, error) {
	d := Default()
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", d.Addr)
	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("log-format", d.LogFormat)
	v.SetDefault("root", d.Root)
	v.SetDefault("chunk-size", d.ChunkSize)
	v.SetDefault("progress", d.Progress)
	v.SetDefault("skip-space-check", d.SkipSpaceCheck)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}
	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	cfg := Config{
		Addr:           v.GetString("addr"),
		LogLevel:       v.GetString("log-level"),
		LogFormat:      v.GetString("log-format"),
		Root:           v.GetString("root"),
		ChunkSize:      v.GetInt("chunk-size"),
		Progress:       v.GetBool("progress"),
		SkipSpaceCheck: v.GetBool("skip-space-check"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings no command can run with.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr must be set")
	}
	if c.ChunkSize < 1 || c.ChunkSize > transfer.MaxChunkSize {
		return fmt.Errorf("chunk-size must be between 1 and %d, got %d", transfer.MaxChunkSize, c.ChunkSize)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("log-format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
