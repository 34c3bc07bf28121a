package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/op/go-logging"

	"github.com/AnshRaj112/visitrace-backend/internal/config"
	"github.com/AnshRaj112/visitrace-backend/internal/logger"
	"github.com/AnshRaj112/visitrace-backend/internal/routes"
)

type options struct {
	EnvFile  string `short:"e" long:"envfile" description:"path of the .env file to load" default:".env"`
	Port     string `short:"p" long:"port" description:"listen port; overrides PORT"`
	LogLevel string `short:"l" long:"loglevel" description:"debug, info, notice, warning, error or critical; overrides LOG_LEVEL"`
}

var log = logging.MustGetLogger("MAIN")

func main() {
	var opts options
	if _, err := flags.NewParser(&opts, flags.Default).Parse(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
	os.Exit(run(opts))
}

// run starts the service and blocks until a signal or a listener failure.
// Deferred cleanup always runs before the exit code is returned.
func run(opts options) int {
	envErr := godotenv.Load(opts.EnvFile)

	cfg := config.Load()
	if opts.Port != "" {
		cfg.Port = opts.Port
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	logger.Setup(cfg.LogDir, cfg.LogLevel)

	if envErr != nil {
		log.Infof("No %s file loaded; using the process environment", opts.EnvFile)
	}

	if cfg.CookieSecret == "" {
		if cfg.IsProduction() {
			log.Critical("COOKIE_SECRET must be set in production")
			return 1
		}
		cfg.CookieSecret = randomSecret()
		log.Warning("COOKIE_SECRET not set; using a random secret. Visitor identities will not survive a restart.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg)
	if err != nil {
		log.Criticalf("Startup failed: %v", err)
		return 1
	}
	defer app.Close()

	r := chi.NewRouter()
	routes.SetupRoutes(r, app.routeDeps(cfg))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Infof("Visitrace backend running on :%s (store: %s, viewer: %s%s)", cfg.Port, cfg.StoreDriver, cfg.ViewerHost, cfg.ViewerPath)
	if err := serve(ctx, srv, 10*time.Second); err != nil {
		log.Errorf("Server failed: %v", err)
		return 1
	}
	return 0
}

// serve runs srv until ctx is done or the listener fails, then shuts it down
// within grace. A listener failure is returned instead of exiting so callers
// can release their resources.
func serve(ctx context.Context, srv *http.Server, grace time.Duration) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
