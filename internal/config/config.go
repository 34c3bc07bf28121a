package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Config holds every tunable of the tracker. It is built once at startup and
// handed to each component by value or pointer; nothing mutates it afterwards.
type Config struct {
	Port        string
	Environment string // ENV: production, development, etc.

	// Tracking
	Domain       string // cookie scope is "." + Domain
	RedirectURL  string
	FaviconURL   string
	CookieName   string
	CookieSecret string
	CookieMaxAge time.Duration
	// TrustedIPHeader names the header carrying the real client IP, e.g.
	// CF-Connecting-IP. Set TRUSTED_IP_HEADER= (empty) when the service is not
	// behind Cloudflare or another proxy that overwrites it; otherwise clients
	// can forge it to pose as a WEBVIEWER_IPS address. Empty trusts RemoteAddr.
	TrustedIPHeader string
	LogWriteTimeout time.Duration

	// Viewer
	ViewerHost           string
	ViewerPath           string
	ViewerIPs            []string // empty allows every IP
	ViewerPageSize       int
	ViewerAllowedOrigins []string
	ViewerRPS            float64 // per-IP request budget on viewer routes
	ViewerBurst          int

	// Reputation
	ProxyCheckAPIKey   string
	ProxyCheckURL      string
	ReputationTTL      time.Duration
	ReputationTimeout  time.Duration
	ReputationRPS      float64
	ReputationBurst    int
	ReputationCoalesce bool
	ReputationPrefetch bool

	// Storage
	StoreDriver string
	PostgresURI string
	MongoURI    string
	RedisURI    string // empty disables the live feed

	// Logging
	LogLevel string
	LogDir   string
}

func Load() *Config {
	viewerPath := "/" + strings.Trim(getEnv("WEBVIEWER_PATH", "/viewer"), "/")

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: strings.ToLower(strings.TrimSpace(getEnv("ENV", "development"))),

		Domain:          strings.TrimPrefix(getEnv("DOMAIN", "example.com"), "."),
		RedirectURL:     getEnv("REDIRECT_URL", "https://www.youtube.com/watch?v=dQw4w9WgXcQ"),
		FaviconURL:      getEnv("FAVICON_URL", "https://www.google.com/s2/favicons?domain=example.com"),
		CookieName:      getEnv("VISITOR_ID_COOKIE_NAME", "visitor_id"),
		CookieSecret:    getEnv("COOKIE_SECRET", ""),
		CookieMaxAge:    getDuration("COOKIE_MAX_AGE", 365*24*time.Hour),
		TrustedIPHeader: getEnvAllowEmpty("TRUSTED_IP_HEADER", "CF-Connecting-IP"),
		LogWriteTimeout: getDuration("LOG_WRITE_TIMEOUT", 5*time.Second),

		ViewerHost:           strings.TrimSpace(getEnv("WEBVIEWER_HOST", "")),
		ViewerPath:           viewerPath,
		ViewerIPs:            parseList(getEnv("WEBVIEWER_IPS", "")),
		ViewerPageSize:       getInt("WEBVIEWER_MAX_SHOWN", 20),
		ViewerAllowedOrigins: parseList(getEnv("WEBVIEWER_ALLOWED_ORIGINS", "")),
		ViewerRPS:            getFloat("WEBVIEWER_RPS", 2),
		ViewerBurst:          getInt("WEBVIEWER_BURST", 10),

		ProxyCheckAPIKey:   getEnv("PROXYCHECK_API_KEY", ""),
		ProxyCheckURL:      strings.TrimRight(getEnv("PROXYCHECK_URL", "https://proxycheck.io/v2"), "/"),
		ReputationTTL:      getDuration("REPUTATION_TTL", 24*time.Hour),
		ReputationTimeout:  getDuration("REPUTATION_TIMEOUT", 4*time.Second),
		ReputationRPS:      getFloat("REPUTATION_RPS", 1),
		ReputationBurst:    getInt("REPUTATION_BURST", 5),
		ReputationCoalesce: getBool("REPUTATION_COALESCE", true),
		ReputationPrefetch: getBool("REPUTATION_PREFETCH", false),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", DriverPostgres)),
		PostgresURI: getEnv("POSTGRES_URI", "postgres://localhost:5432/visitrace?sslmode=disable"),
		MongoURI:    getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/visitrace")),
		RedisURI:    getEnv("REDIS_URI", ""),

		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogDir:   getEnv("LOG_DIR", ""),
	}
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

// CookieDomain is the parent-domain scope of the visitor cookie.
func (c *Config) CookieDomain() string {
	if c.Domain == "" {
		return ""
	}
	return "." + c.Domain
}

func parseList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty is getEnv for settings where an explicit empty value
// disables the feature.
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}

func getFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}

func getBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

// getDuration accepts Go durations ("24h") or plain seconds ("86400").
func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
