package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AnshRaj112/visitrace-backend/internal/models"
	"github.com/AnshRaj112/visitrace-backend/internal/store"
)

func TestProxyCheckClient_Resolve(t *testing.T) {
	var gotPath, gotKey, gotVPN string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		gotVPN = r.URL.Query().Get("vpn")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","1.2.3.4":{"asn":"AS64500","provider":"Example BV","country":"Netherlands","city":"Amsterdam","proxy":"yes","type":"VPN"}}`))
	}))
	defer srv.Close()

	c := NewProxyCheckClient(srv.URL+"/v2/", "secret-key", time.Second)
	got, err := c.Resolve(context.Background(), "1.2.3.4")
	if err != nil {
		t.Fatal(err)
	}

	want := models.ReputationData{Country: "Netherlands", City: "Amsterdam", Provider: "Example BV", VPN: true}
	if got != want {
		t.Fatalf("Resolve() = %+v, want %+v", got, want)
	}
	if gotPath != "/v2/1.2.3.4" || gotKey != "secret-key" || gotVPN != "1" {
		t.Fatalf("request path=%q key=%q vpn=%q", gotPath, gotKey, gotVPN)
	}
}

func TestProxyCheckClient_ProxyNoAndMissingFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok","1.2.3.4":{"proxy":"no","country":"Germany"}}`))
	}))
	defer srv.Close()

	got, err := NewProxyCheckClient(srv.URL, "k", time.Second).Resolve(context.Background(), "1.2.3.4")
	if err != nil {
		t.Fatal(err)
	}
	want := models.ReputationData{Country: "Germany", City: "N/A", Provider: "N/A", VPN: false}
	if got != want {
		t.Fatalf("Resolve() = %+v, want %+v", got, want)
	}
}

func TestProxyCheckClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"non-2xx", http.StatusTooManyRequests, `{"status":"denied"}`},
		{"malformed json", http.StatusOK, `{"status":`},
		{"no entry for ip", http.StatusOK, `{"status":"error","message":"invalid key"}`},
		{"entry not an object", http.StatusOK, `{"1.2.3.4":"yes"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			if _, err := NewProxyCheckClient(srv.URL, "k", time.Second).Resolve(context.Background(), "1.2.3.4"); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestProxyCheckClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	if _, err := NewProxyCheckClient(srv.URL, "k", 20*time.Millisecond).Resolve(context.Background(), "1.2.3.4"); err == nil {
		t.Fatal("expected a timeout error")
	}
}

func TestReputationCache_WithProxyCheckFailingServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewReputationCache(store.NewMemoryStore(), NewProxyCheckClient(srv.URL, "k", time.Second), ReputationOptions{})
	if got := c.Lookup(context.Background(), "1.2.3.4"); got != models.UnknownReputation {
		t.Fatalf("Lookup() = %+v, want unknown", got)
	}
}
