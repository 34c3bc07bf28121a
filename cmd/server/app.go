package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/visitrace-backend/internal/config"
	"github.com/AnshRaj112/visitrace-backend/internal/database"
	"github.com/AnshRaj112/visitrace-backend/internal/handlers"
	"github.com/AnshRaj112/visitrace-backend/internal/middleware"
	"github.com/AnshRaj112/visitrace-backend/internal/routes"
	"github.com/AnshRaj112/visitrace-backend/internal/services"
	"github.com/AnshRaj112/visitrace-backend/internal/store"
	"github.com/AnshRaj112/visitrace-backend/pkg/visitorid"
)

// app owns every long-lived component of the process.
type app struct {
	store      store.Store
	redis      *redis.Client
	feed       *services.LiveFeed
	reputation *services.ReputationCache
	requests   *services.RequestLogger
	search     *services.SearchEngine
	limiter    *middleware.IPRateLimiter
	codec      *visitorid.Codec
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &app{store: st}

	if cfg.RedisURI != "" {
		log.Info("Connecting to Redis...")
		client, err := database.ConnectRedis(cfg.RedisURI)
		if err != nil {
			st.Close(context.Background())
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.redis = client
		a.feed = services.NewLiveFeed(client)
		a.feed.Start(ctx)
	} else {
		log.Notice("REDIS_URI not set; live feed disabled")
	}

	var resolver services.Resolver
	if cfg.ProxyCheckAPIKey != "" {
		resolver = services.NewProxyCheckClient(cfg.ProxyCheckURL, cfg.ProxyCheckAPIKey, cfg.ReputationTimeout)
	} else {
		log.Notice("PROXYCHECK_API_KEY not set; reputation lookups return N/A")
	}
	a.reputation = services.NewReputationCache(st, resolver, services.ReputationOptions{
		TTL:      cfg.ReputationTTL,
		Coalesce: cfg.ReputationCoalesce,
		RPS:      cfg.ReputationRPS,
		Burst:    cfg.ReputationBurst,
	})

	// a nil *LiveFeed must not become a non-nil Publisher
	var publisher services.Publisher
	if a.feed != nil {
		publisher = a.feed
	}
	a.requests = services.NewRequestLogger(st, publisher, cfg.LogWriteTimeout)
	a.search = services.NewSearchEngine(st, a.reputation, cfg.ViewerPageSize)
	a.codec = visitorid.New([]byte(cfg.CookieSecret))

	a.limiter = middleware.NewIPRateLimiter(cfg.ViewerRPS, cfg.ViewerBurst, cfg.TrustedIPHeader)
	go a.limiter.RunCleanup(ctx)

	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		log.Info("Connecting to PostgreSQL...")
		db, err := database.ConnectPostgres(cfg.PostgresURI)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return store.NewPostgresStore(db), nil
	case config.DriverMongo:
		log.Info("Connecting to MongoDB...")
		client, db, err := database.ConnectMongo(cfg.MongoURI)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		st := store.NewMongoStore(client, db)
		idxCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := st.EnsureIndexes(idxCtx); err != nil {
			log.Warningf("failed to ensure MongoDB indexes: %v", err)
		}
		return st, nil
	case config.DriverMemory:
		log.Warning("Using the in-memory store; data is lost on restart")
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

func (a *app) routeDeps(cfg *config.Config) routes.Deps {
	tracking := middleware.TrackingOptions{
		Codec:           a.codec,
		Recorder:        a.requests,
		CookieName:      cfg.CookieName,
		CookieDomain:    cfg.CookieDomain(),
		MaxAge:          cfg.CookieMaxAge,
		RedirectURL:     cfg.RedirectURL,
		ViewerHost:      cfg.ViewerHost,
		SkipPaths:       []string{"/robots.txt", "/favicon.ico"},
		TrustedIPHeader: cfg.TrustedIPHeader,
	}
	if cfg.ReputationPrefetch {
		tracking.Prefetch = a.reputation
	}

	viewerMW := append([]func(http.Handler) http.Handler{middleware.CORS(cfg.ViewerAllowedOrigins)},
		middleware.ViewerSecurity(cfg.ViewerIPs, cfg.TrustedIPHeader, a.limiter)...)

	var sub handlers.Subscriber
	if a.feed != nil {
		sub = a.feed
	}

	return routes.Deps{
		Tracking:         middleware.Tracking(tracking),
		FaviconURL:       cfg.FaviconURL,
		ViewerPath:       cfg.ViewerPath,
		ViewerMiddleware: viewerMW,
		Viewer:           handlers.NewViewerHandler(a.search, a.reputation, cfg.ViewerPath),
		Live:             handlers.NewLiveHandler(sub),
	}
}

// Close drains pending request writes, then releases the store and Redis
// connections.
func (a *app) Close() {
	a.requests.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.store.Close(ctx); err != nil {
		log.Warningf("closing store: %v", err)
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Warningf("closing redis: %v", err)
		}
	}
}
