package config

import (
	"os"
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "DOMAIN", "WEBVIEWER_PATH", "WEBVIEWER_MAX_SHOWN", "REPUTATION_TTL", "COOKIE_MAX_AGE", "STORE_DRIVER", "VISITOR_ID_COOKIE_NAME"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.CookieName != "visitor_id" {
		t.Errorf("CookieName = %q", cfg.CookieName)
	}
	if cfg.ViewerPath != "/viewer" {
		t.Errorf("ViewerPath = %q", cfg.ViewerPath)
	}
	if cfg.ViewerPageSize != 20 {
		t.Errorf("ViewerPageSize = %d", cfg.ViewerPageSize)
	}
	if cfg.ReputationTTL != 24*time.Hour {
		t.Errorf("ReputationTTL = %v", cfg.ReputationTTL)
	}
	if cfg.CookieMaxAge != 365*24*time.Hour {
		t.Errorf("CookieMaxAge = %v", cfg.CookieMaxAge)
	}
	if cfg.StoreDriver != DriverPostgres {
		t.Errorf("StoreDriver = %q", cfg.StoreDriver)
	}
	if cfg.CookieDomain() != ".example.com" {
		t.Errorf("CookieDomain() = %q", cfg.CookieDomain())
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("WEBVIEWER_PATH", "admin/")
	t.Setenv("WEBVIEWER_IPS", " 1.1.1.1, ,2.2.2.2 ")
	t.Setenv("WEBVIEWER_MAX_SHOWN", "50")
	t.Setenv("REPUTATION_TTL", "3600")
	t.Setenv("COOKIE_MAX_AGE", "48h")
	t.Setenv("REPUTATION_COALESCE", "false")
	t.Setenv("DOMAIN", ".tracker.test")
	t.Setenv("PROXYCHECK_URL", "http://127.0.0.1:9000/v2/")

	cfg := Load()

	if cfg.ViewerPath != "/admin" {
		t.Errorf("ViewerPath = %q", cfg.ViewerPath)
	}
	if !reflect.DeepEqual(cfg.ViewerIPs, []string{"1.1.1.1", "2.2.2.2"}) {
		t.Errorf("ViewerIPs = %v", cfg.ViewerIPs)
	}
	if cfg.ViewerPageSize != 50 {
		t.Errorf("ViewerPageSize = %d", cfg.ViewerPageSize)
	}
	if cfg.ReputationTTL != time.Hour {
		t.Errorf("ReputationTTL = %v", cfg.ReputationTTL)
	}
	if cfg.CookieMaxAge != 48*time.Hour {
		t.Errorf("CookieMaxAge = %v", cfg.CookieMaxAge)
	}
	if cfg.ReputationCoalesce {
		t.Error("ReputationCoalesce should be false")
	}
	if cfg.CookieDomain() != ".tracker.test" {
		t.Errorf("CookieDomain() = %q", cfg.CookieDomain())
	}
	if cfg.ProxyCheckURL != "http://127.0.0.1:9000/v2" {
		t.Errorf("ProxyCheckURL = %q", cfg.ProxyCheckURL)
	}
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("WEBVIEWER_MAX_SHOWN", "-3")
	t.Setenv("REPUTATION_TTL", "soon")
	cfg := Load()
	if cfg.ViewerPageSize != 20 {
		t.Errorf("ViewerPageSize = %d", cfg.ViewerPageSize)
	}
	if cfg.ReputationTTL != 24*time.Hour {
		t.Errorf("ReputationTTL = %v", cfg.ReputationTTL)
	}
}

func TestLoad_TrustedIPHeader(t *testing.T) {
	t.Setenv("TRUSTED_IP_HEADER", "")
	if got := Load().TrustedIPHeader; got != "" {
		t.Fatalf("explicitly empty TRUSTED_IP_HEADER = %q, want header trust disabled", got)
	}

	os.Unsetenv("TRUSTED_IP_HEADER")
	if got := Load().TrustedIPHeader; got != "CF-Connecting-IP" {
		t.Fatalf("unset TRUSTED_IP_HEADER = %q", got)
	}

	t.Setenv("TRUSTED_IP_HEADER", "X-Real-IP")
	if got := Load().TrustedIPHeader; got != "X-Real-IP" {
		t.Fatalf("TRUSTED_IP_HEADER = %q", got)
	}
}
