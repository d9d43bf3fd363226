package cronauth

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func withEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if had {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
}

func clearEnv(t *testing.T, key string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	os.Unsetenv(key)
	t.Cleanup(func() {
		if had {
			os.Setenv(key, old)
		}
	})
}

func TestVerifyDevelopmentBypass(t *testing.T) {
	withEnv(t, "NODE_ENV", "development")
	clearEnv(t, "CRON_SECRET")

	r := httptest.NewRequest(http.MethodGet, "/api/cron/ping", nil)
	if err := Verify(r); err != nil {
		t.Errorf("Verify in development mode: unexpected error: %v", err)
	}
}

func TestVerifyMissingSecret(t *testing.T) {
	clearEnv(t, "NODE_ENV")
	clearEnv(t, "CRON_SECRET")

	r := httptest.NewRequest(http.MethodGet, "/api/cron/ping", nil)
	if err := Verify(r); err == nil {
		t.Error("Verify with no CRON_SECRET configured: expected error, got none")
	}
}

func TestVerifyMissingHeader(t *testing.T) {
	clearEnv(t, "NODE_ENV")
	withEnv(t, "CRON_SECRET", "topsecret")

	r := httptest.NewRequest(http.MethodGet, "/api/cron/ping", nil)
	if err := Verify(r); err == nil {
		t.Error("Verify with no Authorization header: expected error, got none")
	}
}

func TestVerifyWrongToken(t *testing.T) {
	clearEnv(t, "NODE_ENV")
	withEnv(t, "CRON_SECRET", "topsecret")

	r := httptest.NewRequest(http.MethodGet, "/api/cron/ping", nil)
	r.Header.Set("Authorization", "Bearer wrong")
	if err := Verify(r); err == nil {
		t.Error("Verify with wrong token: expected error, got none")
	}
}

func TestVerifyCorrectToken(t *testing.T) {
	clearEnv(t, "NODE_ENV")
	withEnv(t, "CRON_SECRET", "topsecret")

	r := httptest.NewRequest(http.MethodGet, "/api/cron/ping", nil)
	r.Header.Set("Authorization", "Bearer topsecret")
	if err := Verify(r); err != nil {
		t.Errorf("Verify with correct token: unexpected error: %v", err)
	}
}
