// Package config reads process settings from REPORT_SLIDES_* environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/report-slides-app/pkg/logger"
)

const prefix = "REPORT_SLIDES_"

// Config holds process-wide settings. Per-org settings live in the database.
type Config struct {
	DBPath             string
	ListenAddr         string
	TemplateConfigPath string // empty selects the built-in template
	LogMode            string
	MaxConcurrent      int
	MaxRetries         int
	AssetTimeout       time.Duration
	ShutdownTimeout    time.Duration
}

// Default returns the configuration used when no variable is set.
func Default() Config {
	return Config{
		DBPath:          "data/report-slides.db",
		ListenAddr:      ":8088",
		LogMode:         "dev",
		MaxConcurrent:   5,
		MaxRetries:      3,
		AssetTimeout:    10 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Load reads the environment on top of Default. Unparseable values are
// logged and replaced by their default.
func Load(log *logger.Logger) Config {
	return load(os.LookupEnv, logger.OrNop(log))
}

type lookupFunc func(key string) (string, bool)

func load(lookup lookupFunc, log *logger.Logger) Config {
	def := Default()
	e := env{lookup: lookup, log: log}
	return Config{
		DBPath:             e.str("DB_PATH", def.DBPath),
		ListenAddr:         e.str("LISTEN_ADDR", def.ListenAddr),
		TemplateConfigPath: e.str("TEMPLATE_CONFIG", def.TemplateConfigPath),
		LogMode:            e.str("LOG_MODE", def.LogMode),
		MaxConcurrent:      e.positiveInt("MAX_CONCURRENT", def.MaxConcurrent),
		MaxRetries:         e.positiveInt("MAX_RETRIES", def.MaxRetries),
		AssetTimeout:       e.duration("ASSET_TIMEOUT", def.AssetTimeout),
		ShutdownTimeout:    e.duration("SHUTDOWN_TIMEOUT", def.ShutdownTimeout),
	}
}

type env struct {
	lookup lookupFunc
	log    *logger.Logger
}

func (e env) raw(key string) (string, bool) {
	v, ok := e.lookup(prefix + key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (e env) str(key, def string) string {
	if v, ok := e.raw(key); ok {
		return v
	}
	return def
}

func (e env) positiveInt(key string, def int) int {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		e.log.Warn("invalid environment value, using default", "env_var", prefix+key, "value", v, "default", def)
		return def
	}
	return n
}

// duration accepts Go durations ("15s") or a plain number of seconds.
func (e env) duration(key string, def time.Duration) time.Duration {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	e.log.Warn("invalid environment value, using default", "env_var", prefix+key, "value", v, "default", def.String())
	return def
}
