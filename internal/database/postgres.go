package database

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("DB")

// ConnectPostgres opens a pooled PostgreSQL handle, pings it and creates the
// tracker tables if they don't exist.
func ConnectPostgres(postgresURI string) (*sql.DB, error) {
	db, err := sql.Open("postgres", postgresURI)
	if err != nil {
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	log.Info("Connected to PostgreSQL")

	if err = InitPostgresTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// InitPostgresTables creates all necessary tables if they don't exist
func InitPostgresTables(ctx context.Context, db *sql.DB) error {
	queries := []string{
		// One row per tracked request (append-only)
		`CREATE TABLE IF NOT EXISTS requests (
			id UUID PRIMARY KEY,
			ip TEXT NOT NULL,
			url TEXT NOT NULL,
			method TEXT NOT NULL,
			user_agent TEXT NOT NULL,
			visitor_token TEXT NOT NULL,
			host TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Reputation cache; duplicates per ip are tolerated
		`CREATE TABLE IF NOT EXISTS ip_reputation (
			id UUID PRIMARY KEY,
			ip TEXT NOT NULL,
			country TEXT NOT NULL,
			city TEXT NOT NULL,
			provider TEXT NOT NULL,
			vpn BOOLEAN NOT NULL DEFAULT FALSE,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_requests_timestamp ON requests(timestamp DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_requests_visitor_token ON requests(visitor_token)`,
		`CREATE INDEX IF NOT EXISTS idx_requests_host ON requests(host)`,
		`CREATE INDEX IF NOT EXISTS idx_requests_ip ON requests(ip)`,
		`CREATE INDEX IF NOT EXISTS idx_ip_reputation_ip_timestamp ON ip_reputation(ip, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_ip_reputation_timestamp ON ip_reputation(timestamp)`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return err
		}
	}

	log.Info("PostgreSQL tables initialized")
	return nil
}
