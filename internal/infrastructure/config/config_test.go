package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "gateway:\n  host: 10.0.0.5\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Gateway.Host != "10.0.0.5" {
		t.Errorf("Gateway.Host = %q, want 10.0.0.5", cfg.Gateway.Host)
	}
	if cfg.Gateway.Port != 6000 {
		t.Errorf("Gateway.Port = %d, want default 6000", cfg.Gateway.Port)
	}
	if cfg.MQTT.Prefix != "buspro" {
		t.Errorf("MQTT.Prefix = %q, want default buspro", cfg.MQTT.Prefix)
	}
	if cfg.MQTT.DiscoveryPrefix != "homeassistant" {
		t.Errorf("MQTT.DiscoveryPrefix = %q, want default", cfg.MQTT.DiscoveryPrefix)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "gateway:\n  host: 10.0.0.5\n")

	t.Setenv("BUSPRO_GATEWAY_HOST", "192.168.7.7")
	t.Setenv("BUSPRO_MQTT_PASSWORD", "secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Gateway.Host != "192.168.7.7" {
		t.Errorf("env override ignored: Gateway.Host = %q", cfg.Gateway.Host)
	}
	if cfg.MQTT.Password != "secret" {
		t.Errorf("env override ignored: MQTT.Password = %q", cfg.MQTT.Password)
	}
}

func TestAuthFallsBackToNoneWithoutCredentials(t *testing.T) {
	path := writeConfig(t, `
auth:
  mode: token
user_auth:
  mode: basic
  username: panel
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	// token mode without a token cannot authenticate anyone.
	if cfg.Auth.Mode != AuthNone {
		t.Errorf("Auth.Mode = %q, want none (no token configured)", cfg.Auth.Mode)
	}
	// basic mode without a password likewise.
	if cfg.UserAuth.Mode != AuthNone {
		t.Errorf("UserAuth.Mode = %q, want none (no password)", cfg.UserAuth.Mode)
	}
}

func TestAuthKeptWithCredentials(t *testing.T) {
	path := writeConfig(t, `
auth:
  mode: token
  token: s3cr3t
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Auth.Mode != AuthToken {
		t.Errorf("Auth.Mode = %q, want token", cfg.Auth.Mode)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "bad qos", yaml: "mqtt:\n  qos: 7\n"},
		{name: "bad api port", yaml: "api:\n  port: 0\n"},
		{name: "empty prefix", yaml: "mqtt:\n  prefix: \"\"\n"},
		{name: "bad gateway port", yaml: "gateway:\n  port: 70000\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.yaml)
			if _, err := Load(path); err == nil {
				t.Error("Load() expected validation error, got nil")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := defaultConfig()

	if got := cfg.GetSendInterval().Milliseconds(); got != 180 {
		t.Errorf("GetSendInterval() = %dms, want 180", got)
	}
	if got := cfg.GetPollInterval().Seconds(); got != 20 {
		t.Errorf("GetPollInterval() = %vs, want 20", got)
	}

	cfg.Gateway.SendInterval = 250
	if got := cfg.GetSendInterval().Milliseconds(); got != 250 {
		t.Errorf("GetSendInterval() override = %dms, want 250", got)
	}
}
