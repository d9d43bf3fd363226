// Package config loads the Worker's YAML configuration file, expanding
// ${VAR}/${VAR:-default}/${VAR:?error} references against the process
// environment after loading .env/.env.local. Grounded on the teacher's
// pkg/devclaw/copilot/loader.go, trimmed to jobweave's own config
// shape (no secrets vault, no relative-path resolution, no
// sanitize-on-save — none of those concerns exist here).
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DashboardConfig controls the Dashboard Adapter's HTTP listener.
type DashboardConfig struct {
	Address string `yaml:"address"`
}

// HealthConfig controls the optional worker-mode health endpoint.
type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// WorkerConfig is the top-level shape of a jobweave config file.
type WorkerConfig struct {
	Dashboard       DashboardConfig `yaml:"dashboard"`
	Health          HealthConfig    `yaml:"health"`
	DefaultTimezone string          `yaml:"default_timezone"`
	DefaultTimeout  string          `yaml:"default_timeout"`
	ShutdownTimeout string          `yaml:"shutdown_timeout"`
	JobsRoot        string          `yaml:"jobs_root"`
}

// Default returns a WorkerConfig with every field at its §6 default.
func Default() *WorkerConfig {
	return &WorkerConfig{
		Dashboard:       DashboardConfig{Address: ":4000"},
		Health:          HealthConfig{Enabled: true, Address: ":8080"},
		DefaultTimezone: "UTC",
		DefaultTimeout:  "5m",
		ShutdownTimeout: "30s",
	}
}

// ShutdownTimeoutDuration parses ShutdownTimeout, falling back to 30s
// on an empty or malformed value.
func (c *WorkerConfig) ShutdownTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::(-|\?)([^}]*))?\}`)

// Load reads path, loads .env/.env.local (without overriding existing
// process env vars), expands environment references in the raw YAML,
// and unmarshals the result over Default().
func Load(path string) (*WorkerConfig, error) {
	loadEnvFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded, err := expandEnvVars(string(data))
	if err != nil {
		return nil, fmt.Errorf("expanding environment variables: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	return cfg, nil
}

func loadEnvFiles() {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}
}

// expandEnvVars replaces ${VAR}, ${VAR:-default}, and ${VAR:?error}
// references. A ${VAR:?msg} whose VAR is unset makes the whole call
// fail with msg.
func expandEnvVars(input string) (string, error) {
	var firstErr error
	result := envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		if firstErr != nil {
			return match
		}
		sub := envVarPattern.FindStringSubmatch(match)
		varName, modifier, modValue := sub[1], sub[2], sub[3]

		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		switch modifier {
		case "-":
			return modValue
		case "?":
			msg := modValue
			if msg == "" {
				msg = "required environment variable not set"
			}
			firstErr = fmt.Errorf("%s: %s", varName, msg)
			return match
		default:
			return ""
		}
	})
	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// CronSecretStatus reports whether external cron-ping auth should be
// bypassed, mirroring cronauth.Verify's NODE_ENV check so callers can
// surface the same decision in diagnostics (worker/health.go's
// /health payload) without importing net/http.
func CronSecretStatus() string {
	if os.Getenv("NODE_ENV") == "development" {
		return "bypassed (NODE_ENV=development)"
	}
	if os.Getenv("CRON_SECRET") == "" {
		return "misconfigured (CRON_SECRET unset)"
	}
	return "enforced"
}
