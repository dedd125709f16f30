// Package db persists the settlement journal and user notifications in
// Postgres through the pgx database/sql driver.
package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
)

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return conn, nil
}

var schema = []struct {
	name string
	ddl  string
}{
	{"settlement_events", `
		CREATE TABLE IF NOT EXISTS settlement_events (
			id UUID PRIMARY KEY,
			seq BIGINT NOT NULL,
			kind TEXT NOT NULL,
			service_id BIGINT NOT NULL,
			actor TEXT NOT NULL DEFAULT '',
			tick BIGINT NOT NULL,
			payload JSONB NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`},
	{"idx_settlement_events_service", `
		CREATE INDEX IF NOT EXISTS idx_settlement_events_service ON settlement_events(service_id, seq)`},
	{"notifications", `
		CREATE TABLE IF NOT EXISTS notifications (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			account TEXT NOT NULL,
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			body TEXT,
			service_id BIGINT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			read_at TIMESTAMP WITH TIME ZONE NULL
		)`},
	{"idx_notifications_account_unread", `
		CREATE INDEX IF NOT EXISTS idx_notifications_account_unread ON notifications(account) WHERE read_at IS NULL`},
}

// EnsureSchema creates the tables the service writes to if they are missing.
func EnsureSchema(ctx context.Context, conn *sql.DB, log *logrus.Logger) error {
	for _, s := range schema {
		if _, err := conn.ExecContext(ctx, s.ddl); err != nil {
			return fmt.Errorf("ensure %s: %w", s.name, err)
		}
		log.WithField("object", s.name).Debug("schema ensured")
	}
	return nil
}
