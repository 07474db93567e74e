package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CHATRELAY_SECRET", "test-secret")
	t.Setenv("CHATRELAY_PIN", "1234")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HTTPPort != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.HTTPPort)
	}
	if cfg.SQLiteDSN != "file:chatrelay.db" {
		t.Errorf("unexpected default DSN %q", cfg.SQLiteDSN)
	}
	if cfg.UploadsDir != "uploads" {
		t.Errorf("unexpected default uploads dir %q", cfg.UploadsDir)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("unexpected default session ttl %v", cfg.SessionTTL)
	}
	if cfg.TokenTTL != time.Hour {
		t.Errorf("unexpected default token ttl %v", cfg.TokenTTL)
	}
	if len(cfg.AdminUsers) != 0 {
		t.Errorf("expected no default admins, got %v", cfg.AdminUsers)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CHATRELAY_HTTP_PORT", "9090")
	t.Setenv("CHATRELAY_SQLITE_DSN", "file:other.db")
	t.Setenv("CHATRELAY_UPLOADS_DIR", "/var/lib/chatrelay/uploads")
	t.Setenv("CHATRELAY_ADMIN_USERS", "boss, root ,")
	t.Setenv("CHATRELAY_SESSION_TTL", "2h")
	t.Setenv("CHATRELAY_TOKEN_TTL", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HTTPPort != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTPPort)
	}
	if cfg.SQLiteDSN != "file:other.db" {
		t.Errorf("unexpected DSN %q", cfg.SQLiteDSN)
	}
	if cfg.UploadsDir != "/var/lib/chatrelay/uploads" {
		t.Errorf("unexpected uploads dir %q", cfg.UploadsDir)
	}
	if len(cfg.AdminUsers) != 2 || cfg.AdminUsers[0] != "boss" || cfg.AdminUsers[1] != "root" {
		t.Errorf("unexpected admins %v", cfg.AdminUsers)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Errorf("unexpected session ttl %v", cfg.SessionTTL)
	}
	if cfg.TokenTTL != 30*time.Minute {
		t.Errorf("unexpected token ttl %v", cfg.TokenTTL)
	}
}

func TestLoad_FileOverlaidByEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := strings.Join([]string{
		"httpPort: 7000",
		"secret: file-secret",
		"pin: \"0000\"",
		"adminUsers:",
		"  - boss",
	}, "\n")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("CHATRELAY_CONFIG", path)
	t.Setenv("CHATRELAY_PIN", "1234")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HTTPPort != 7000 {
		t.Errorf("expected file port 7000, got %d", cfg.HTTPPort)
	}
	if cfg.Secret != "file-secret" {
		t.Errorf("expected file secret, got %q", cfg.Secret)
	}
	if cfg.PIN != "1234" {
		t.Errorf("expected environment to win over file, got %q", cfg.PIN)
	}
	if len(cfg.AdminUsers) != 1 || cfg.AdminUsers[0] != "boss" {
		t.Errorf("unexpected admins %v", cfg.AdminUsers)
	}
}

func TestLoad_MissingRequiredValuesAccumulate(t *testing.T) {
	t.Setenv("CHATRELAY_CONFIG", "")
	t.Setenv("CHATRELAY_SECRET", "")
	t.Setenv("CHATRELAY_PIN", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing required configuration")
	}
	for _, name := range []string{"CHATRELAY_SECRET", "CHATRELAY_PIN"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("expected %s in error, got %q", name, err.Error())
		}
	}
}

func TestLoad_InvalidValuesAccumulate(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CHATRELAY_HTTP_PORT", "not-a-port")
	t.Setenv("CHATRELAY_TOKEN_TTL", "-5m")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for invalid configuration")
	}
	for _, name := range []string{"CHATRELAY_HTTP_PORT", "CHATRELAY_TOKEN_TTL"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("expected %s in error, got %q", name, err.Error())
		}
	}
}

func TestLoad_MissingConfigFileFails(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CHATRELAY_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unreadable config file")
	}
}
