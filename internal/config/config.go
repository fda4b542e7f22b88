// Package config loads cellexec settings.
//
// LAYERING:
// Settings are resolved in this order, later sources winning:
//  1. Defaults (see Default)
//  2. An optional YAML file, from --config or CELLEXEC_CONFIG
//  3. CELLEXEC_* environment variables
//
// A .env file can feed step 3: LoadEnvFile copies its entries into the
// process environment without overriding variables that are already set.
//
// Example file:
//
//	execution:
//	  timeout: 10s
//	python:
//	  analysis_modules: false
//	server:
//	  addr: 127.0.0.1:5001
//	  allowed_origins: ["http://localhost:3000"]
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CELLEXEC_"

type Config struct {
	Execution ExecutionConfig `yaml:"execution"`
	Python    PythonConfig    `yaml:"python"`
	Runtimes  RuntimesConfig  `yaml:"runtimes"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

type ExecutionConfig struct {
	// Timeout bounds every execution.
	Timeout time.Duration `yaml:"timeout"`
	// CancelGrace is how long a strategy may take to stop after Timeout.
	CancelGrace time.Duration `yaml:"cancel_grace"`
	// TempDir holds the source files of external interpreters.
	// Empty means the system temp dir.
	TempDir string `yaml:"temp_dir"`
}

type PythonConfig struct {
	// MaxSteps bounds interpreter steps per call; 0 means unbounded.
	MaxSteps        uint64 `yaml:"max_steps"`
	AnalysisModules bool   `yaml:"analysis_modules"`
}

// RuntimesConfig names the external interpreters. Plain names are looked
// up on PATH.
type RuntimesConfig struct {
	Node    string `yaml:"node"`
	Rscript string `yaml:"rscript"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// JWTSecret enables bearer-token auth on /api/execute when set.
	JWTSecret string `yaml:"jwt_secret"`
	// MaxCodeBytes rejects larger request code with 400.
	MaxCodeBytes int `yaml:"max_code_bytes"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Execution: ExecutionConfig{
			Timeout:     30 * time.Second,
			CancelGrace: 2 * time.Second,
		},
		Python: PythonConfig{
			MaxSteps:        100_000_000,
			AnalysisModules: true,
		},
		Runtimes: RuntimesConfig{
			Node:    "node",
			Rscript: "Rscript",
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1:5001",
			AllowedOrigins: []string{"*"},
			MaxCodeBytes:   100_000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load resolves the configuration. An empty path falls back to
// CELLEXEC_CONFIG; if neither is set only defaults and the environment
// apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from a .env file into the
// environment. Variables already set are left alone.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// Validate rejects settings no component can work with.
func (c Config) Validate() error {
	var errs []error
	if c.Execution.Timeout <= 0 {
		errs = append(errs, errors.New("execution.timeout must be positive"))
	}
	if c.Execution.CancelGrace < 0 {
		errs = append(errs, errors.New("execution.cancel_grace must not be negative"))
	}
	if c.Server.MaxCodeBytes <= 0 {
		errs = append(errs, errors.New("server.max_code_bytes must be positive"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnv overlays CELLEXEC_* variables. lookup is os.LookupEnv outside
// tests.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	var errs []error
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}
	duration := func(name string, dst *time.Duration) {
		if v, ok := get(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	str := func(name string, dst *string) {
		if v, ok := get(name); ok {
			*dst = v
		}
	}

	duration("TIMEOUT", &cfg.Execution.Timeout)
	duration("CANCEL_GRACE", &cfg.Execution.CancelGrace)
	str("TEMP_DIR", &cfg.Execution.TempDir)
	str("NODE_BIN", &cfg.Runtimes.Node)
	str("RSCRIPT_BIN", &cfg.Runtimes.Rscript)
	str("ADDR", &cfg.Server.Addr)
	str("JWT_SECRET", &cfg.Server.JWTSecret)
	str("LOG_LEVEL", &cfg.Log.Level)

	if v, ok := get("PYTHON_MAX_STEPS"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sPYTHON_MAX_STEPS: %w", EnvPrefix, err))
		} else {
			cfg.Python.MaxSteps = n
		}
	}
	if v, ok := get("PYTHON_MODULES"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sPYTHON_MODULES: %w", EnvPrefix, err))
		} else {
			cfg.Python.AnalysisModules = b
		}
	}
	if v, ok := get("MAX_CODE_BYTES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_CODE_BYTES: %w", EnvPrefix, err))
		} else {
			cfg.Server.MaxCodeBytes = n
		}
	}
	if v, ok := get("CORS_ORIGINS"); ok {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.AllowedOrigins = origins
	}

	return errors.Join(errs...)
}
