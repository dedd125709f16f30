package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sudo-init-do/skillflow/internal/events"
)

// Journal is the append-only audit log of committed engine operations.
type Journal struct {
	conn *sql.DB
}

func NewJournal(conn *sql.DB) *Journal { return &Journal{conn: conn} }

func (j *Journal) Publish(ctx context.Context, e events.Event) error {
	var payload []byte
	if len(e.Payload) > 0 {
		var err error
		if payload, err = json.Marshal(e.Payload); err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
	}
	_, err := j.conn.ExecContext(ctx,
		`INSERT INTO settlement_events (id, seq, kind, service_id, actor, tick, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, int64(e.Seq), string(e.Kind), int64(e.ServiceID), e.Actor, int64(e.Tick), payload, e.At,
	)
	if err != nil {
		return fmt.Errorf("journal %s: %w", e.Kind, err)
	}
	return nil
}

// History returns the events of one service in admission order.
func (j *Journal) History(ctx context.Context, serviceID uint64) ([]events.Event, error) {
	rows, err := j.conn.QueryContext(ctx,
		`SELECT id::text, seq, kind, actor, tick, payload, created_at
		 FROM settlement_events WHERE service_id = $1 ORDER BY created_at, seq`, int64(serviceID),
	)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var (
			e         events.Event
			seq, tick int64
			kind      string
			payload   []byte
		)
		if err := rows.Scan(&e.ID, &seq, &kind, &e.Actor, &tick, &payload, &e.At); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Seq, e.Tick, e.Kind, e.ServiceID = uint64(seq), uint64(tick), events.Kind(kind), serviceID
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				return nil, fmt.Errorf("decode payload: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
