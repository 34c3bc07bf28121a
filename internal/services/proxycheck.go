package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AnshRaj112/visitrace-backend/internal/models"
)

// Resolver resolves reputation data for an IP from an external source.
type Resolver interface {
	Resolve(ctx context.Context, ip string) (models.ReputationData, error)
}

// ProxyCheckClient queries the proxycheck.io v2 API.
type ProxyCheckClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

type proxyCheckRecord struct {
	Country  string `json:"country"`
	City     string `json:"city"`
	Provider string `json:"provider"`
	Proxy    string `json:"proxy"`
}

// NewProxyCheckClient returns a client for baseURL (e.g. https://proxycheck.io/v2).
// Every call is bounded by timeout.
func NewProxyCheckClient(baseURL, apiKey string, timeout time.Duration) *ProxyCheckClient {
	return &ProxyCheckClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// Resolve issues GET {base}/{ip}?key=..&vpn=1&asn=1. Non-2xx responses and
// payloads without an object for ip are errors.
func (c *ProxyCheckClient) Resolve(ctx context.Context, ip string) (models.ReputationData, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("vpn", "1")
	q.Set("asn", "1")
	endpoint := c.baseURL + "/" + url.PathEscape(ip) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.ReputationData{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return models.ReputationData{}, fmt.Errorf("proxycheck request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return models.ReputationData{}, fmt.Errorf("proxycheck returned status %d", resp.StatusCode)
	}

	var payload map[string]json.RawMessage
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return models.ReputationData{}, fmt.Errorf("decode proxycheck response: %w", err)
	}
	raw, ok := payload[ip]
	if !ok {
		return models.ReputationData{}, fmt.Errorf("proxycheck response has no entry for %s", ip)
	}
	var rec proxyCheckRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.ReputationData{}, fmt.Errorf("decode proxycheck entry: %w", err)
	}

	return models.ReputationData{
		Country:  orUnknown(rec.Country),
		City:     orUnknown(rec.City),
		Provider: orUnknown(rec.Provider),
		VPN:      rec.Proxy == "yes",
	}, nil
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return models.Unknown
	}
	return s
}
