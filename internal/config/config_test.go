package config

import (
	"testing"
	"time"
)

func TestValidate_DevAllowsNoAuth(t *testing.T) {
	cfg := &Config{Env: "development"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_ProductionRequiresAuth(t *testing.T) {
	cfg := &Config{Env: "production"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for production without auth configuration")
	}

	cfg.AuthIssuer = "https://auth.example.org"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_TLSRequiresFiles(t *testing.T) {
	cfg := &Config{Env: "development", TLSEnabled: true}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for TLS without cert file")
	}

	cfg.TLSCertFile = "cert.pem"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for TLS without key file")
	}

	cfg.TLSKeyFile = "key.pem"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMonitorTick(t *testing.T) {
	cfg := &Config{MonitorInterval: 15}
	if got := cfg.MonitorTick(); got != 15*time.Second {
		t.Errorf("expected 15s, got %v", got)
	}

	cfg.MonitorInterval = 0
	if got := cfg.MonitorTick(); got != 30*time.Second {
		t.Errorf("expected 30s fallback, got %v", got)
	}
}
