package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Fixed pipeline parameters.
const (
	Language    = "en"
	Dialect     = "en-us"
	Backend     = "espeak"
	Punctuation = ";:,.!?"
)

const (
	DefaultModelPath = "models/ggml-tiny-q8_0.bin"
	DefaultLogLevel  = "warn"
	DefaultEnvFile   = ".env"
)

type Config struct {
	ModelPath   string
	LogLevel    string
	MaxDuration time.Duration // 0 = unlimited
	Limits      ResourceLimits
}

// Load reads the optional env file, then builds Config from the environment.
// The env file never overrides variables that are already set.
func Load() (Config, error) {
	envFile := getenv("VOXSCRIBE_ENV_FILE", DefaultEnvFile)
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
	}

	cfg := Config{
		ModelPath: getenv("VOXSCRIBE_MODEL", DefaultModelPath),
		LogLevel:  strings.ToLower(getenv("VOXSCRIBE_LOG", DefaultLogLevel)),
		Limits:    DefaultLimits(),
	}

	if s := os.Getenv("VOXSCRIBE_MAX_SECONDS"); s != "" {
		secs, err := strconv.ParseFloat(s, 64)
		if err != nil || secs < 0 {
			return Config{}, fmt.Errorf("VOXSCRIBE_MAX_SECONDS: invalid value %q", s)
		}
		cfg.MaxDuration = time.Duration(secs * float64(time.Second))
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
