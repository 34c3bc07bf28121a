package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/AnshRaj112/visitrace-backend/internal/models"
)

// Column names per search field. Only these strings ever reach an
// identifier position in SQL.
var requestColumns = map[models.SearchField]string{
	models.FieldVisitorToken: "visitor_token",
	models.FieldHost:         "host",
	models.FieldUserAgent:    "user_agent",
	models.FieldIP:           "ip",
}

// PostgresStore implements Store on top of database/sql and lib/pq.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open handle. Tables are expected to exist
// (see database.InitPostgresTables).
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) InsertRequest(ctx context.Context, e *models.RequestEvent) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO requests (id, ip, url, method, user_agent, visitor_token, host, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID.String(), e.IP, e.URL, e.Method, e.UserAgent, e.VisitorToken, e.Host, e.Timestamp)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func (p *PostgresStore) QueryRequests(ctx context.Context, q models.RequestQuery) ([]models.RequestEvent, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	column, ok := requestColumns[q.Field]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSearchField, q.Field)
	}

	op, value := "=", q.Value
	if q.Fragment {
		op, value = `LIKE`, "%"+escapeLike(q.Value)+"%"
	}

	query := `SELECT id, ip, url, method, user_agent, visitor_token, host, timestamp
		FROM requests WHERE ` + column + ` ` + op + ` $1`
	if q.Fragment {
		query += ` ESCAPE '\'`
	}
	query += ` ORDER BY timestamp DESC LIMIT $2 OFFSET $3`

	rows, err := p.db.QueryContext(ctx, query, value, q.Limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()

	events := make([]models.RequestEvent, 0, q.Limit)
	for rows.Next() {
		var e models.RequestEvent
		if err := rows.Scan(&e.ID, &e.IP, &e.URL, &e.Method, &e.UserAgent, &e.VisitorToken, &e.Host, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return events, nil
}

func (p *PostgresStore) InsertReputation(ctx context.Context, e *models.ReputationEntry) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO ip_reputation (id, ip, country, city, provider, vpn, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID.String(), e.IP, e.Country, e.City, e.Provider, e.VPN, e.Timestamp)
	if err != nil {
		return fmt.Errorf("insert reputation: %w", err)
	}
	return nil
}

func (p *PostgresStore) FindFreshReputation(ctx context.Context, ip string, cutoff time.Time) (*models.ReputationEntry, error) {
	var e models.ReputationEntry
	err := p.db.QueryRowContext(ctx, `
		SELECT id, ip, country, city, provider, vpn, timestamp
		FROM ip_reputation
		WHERE ip = $1 AND timestamp > $2
		ORDER BY timestamp ASC
		LIMIT 1
	`, ip, cutoff).Scan(&e.ID, &e.IP, &e.Country, &e.City, &e.Provider, &e.VPN, &e.Timestamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find reputation: %w", err)
	}
	return &e, nil
}

func (p *PostgresStore) DeleteStaleReputation(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM ip_reputation WHERE timestamp <= $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete stale reputation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete stale reputation: rows affected: %w", err)
	}
	return n, nil
}

func (p *PostgresStore) Close(ctx context.Context) error {
	return p.db.Close()
}

// escapeLike makes value match literally inside a LIKE pattern.
func escapeLike(value string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(value)
}
