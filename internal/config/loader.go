package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the configuration values for the chat relay service.
//
// The global PIN plus admin allow-list model intentionally has no per-user
// credential store and no login rate limiting; deployments that need either
// should front the service accordingly.
type Config struct {
	HTTPPort   int           `yaml:"httpPort"`
	SQLiteDSN  string        `yaml:"sqliteDSN"`
	UploadsDir string        `yaml:"uploadsDir"`
	Secret     string        `yaml:"secret"`
	PIN        string        `yaml:"pin"`
	AdminUsers []string      `yaml:"adminUsers"`
	SessionTTL time.Duration `yaml:"sessionTTL"`
	TokenTTL   time.Duration `yaml:"tokenTTL"`
}

// Load resolves configuration from an optional YAML file (CHATRELAY_CONFIG)
// overlaid with environment variables. Defaults are applied for optional
// fields; missing and invalid entries are accumulated and reported together.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:   8080,
		SQLiteDSN:  "file:chatrelay.db",
		UploadsDir: "uploads",
		SessionTTL: 24 * time.Hour,
		TokenTTL:   time.Hour,
	}

	if path := strings.TrimSpace(os.Getenv("CHATRELAY_CONFIG")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("CHATRELAY_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "CHATRELAY_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("CHATRELAY_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if dir := strings.TrimSpace(os.Getenv("CHATRELAY_UPLOADS_DIR")); dir != "" {
		cfg.UploadsDir = dir
	}

	if secret := strings.TrimSpace(os.Getenv("CHATRELAY_SECRET")); secret != "" {
		cfg.Secret = secret
	}

	if pin := strings.TrimSpace(os.Getenv("CHATRELAY_PIN")); pin != "" {
		cfg.PIN = pin
	}

	if admins := strings.TrimSpace(os.Getenv("CHATRELAY_ADMIN_USERS")); admins != "" {
		cfg.AdminUsers = splitList(admins)
	}

	if ttlValue := strings.TrimSpace(os.Getenv("CHATRELAY_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "CHATRELAY_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if ttlValue := strings.TrimSpace(os.Getenv("CHATRELAY_TOKEN_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "CHATRELAY_TOKEN_TTL")
		} else {
			cfg.TokenTTL = ttl
		}
	}

	if cfg.Secret == "" {
		missing = append(missing, "CHATRELAY_SECRET")
	}
	if cfg.PIN == "" {
		missing = append(missing, "CHATRELAY_PIN")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required configuration is not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("configuration values are invalid: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names
}
