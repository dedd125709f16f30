package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Notification is an in-app message for one account.
type Notification struct {
	ID        string     `json:"id"`
	Account   string     `json:"account"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	ServiceID uint64     `json:"service_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at"`
}

type Notifications struct {
	conn *sql.DB
}

func NewNotifications(conn *sql.DB) *Notifications { return &Notifications{conn: conn} }

func (n *Notifications) Create(ctx context.Context, item Notification) error {
	var serviceID sql.NullInt64
	if item.ServiceID != 0 {
		serviceID = sql.NullInt64{Int64: int64(item.ServiceID), Valid: true}
	}
	_, err := n.conn.ExecContext(ctx,
		`INSERT INTO notifications (account, type, title, body, service_id)
		 VALUES ($1, $2, $3, $4, $5)`,
		item.Account, item.Type, item.Title, item.Body, serviceID,
	)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// List returns the account's notifications, newest first.
func (n *Notifications) List(ctx context.Context, account string) ([]Notification, error) {
	rows, err := n.conn.QueryContext(ctx,
		`SELECT id::text, type, title, COALESCE(body, ''), service_id, created_at, read_at
		 FROM notifications WHERE account = $1 ORDER BY created_at DESC`, account,
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	items := []Notification{}
	for rows.Next() {
		item := Notification{Account: account}
		var serviceID sql.NullInt64
		var readAt sql.NullTime
		if err := rows.Scan(&item.ID, &item.Type, &item.Title, &item.Body, &serviceID, &item.CreatedAt, &readAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if serviceID.Valid {
			item.ServiceID = uint64(serviceID.Int64)
		}
		if readAt.Valid {
			t := readAt.Time
			item.ReadAt = &t
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// MarkRead reports false when the notification does not exist, belongs to
// someone else or was already read.
func (n *Notifications) MarkRead(ctx context.Context, id, account string) (bool, error) {
	res, err := n.conn.ExecContext(ctx,
		`UPDATE notifications SET read_at = NOW() WHERE id = $1 AND account = $2 AND read_at IS NULL`, id, account,
	)
	if err != nil {
		return false, fmt.Errorf("mark notification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
