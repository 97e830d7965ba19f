package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"profile_watch_bot/internal/model"
	"profile_watch_bot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Journal backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
// A ":memory:" dsn keeps the journal for the lifetime of the process only.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Every pooled connection to :memory: would get its own empty database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// RecordSubscription stores a newly registered subscriber.
func (s *SQLite) RecordSubscription(ctx context.Context, chatID int64, profile string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subscriptions (chat_id, profile, created_at) VALUES (?, ?, ?)`,
		chatID, profile, now(),
	)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

// RecordDelivery stores a notification accepted by Telegram.
func (s *SQLite) RecordDelivery(ctx context.Context, chatID int64, text string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deliveries (chat_id, text, sent_at) VALUES (?, ?, ?)`,
		chatID, text, now(),
	)
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

// RecordFailure stores a subscriber that was taken out of polling.
func (s *SQLite) RecordFailure(ctx context.Context, chatID int64, profile, reason string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO failures (chat_id, profile, reason, created_at) VALUES (?, ?, ?, ?)`,
		chatID, profile, reason, now(),
	)
	if err != nil {
		return fmt.Errorf("insert failure: %w", err)
	}
	return nil
}

// ListSubscriptions returns all registrations in the order they happened.
func (s *SQLite) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id, profile, created_at FROM subscriptions ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var subs []model.Subscription
	for rows.Next() {
		var sub model.Subscription
		var created string
		if err := rows.Scan(&sub.ChatID, &sub.Profile, &created); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		sub.CreatedAt, _ = time.Parse(timeLayout, created)
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// ListDeliveries returns the notifications sent to a chat, oldest first.
func (s *SQLite) ListDeliveries(ctx context.Context, chatID int64) ([]model.Delivery, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, text, sent_at FROM deliveries WHERE chat_id = ? ORDER BY id`, chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Delivery
	for rows.Next() {
		var d model.Delivery
		var sent string
		if err := rows.Scan(&d.ID, &d.ChatID, &d.Text, &sent); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		d.SentAt, _ = time.Parse(timeLayout, sent)
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeliveryCounts returns how many notifications each chat received,
// ordered by chat id.
func (s *SQLite) DeliveryCounts(ctx context.Context) ([]model.DeliveryCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id, COUNT(*) FROM deliveries GROUP BY chat_id ORDER BY chat_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query delivery counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.DeliveryCount
	for rows.Next() {
		var c model.DeliveryCount
		if err := rows.Scan(&c.ChatID, &c.Count); err != nil {
			return nil, fmt.Errorf("scan delivery count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListFailures returns all onboarding failures in the order they happened.
func (s *SQLite) ListFailures(ctx context.Context) ([]model.Failure, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id, profile, reason, created_at FROM failures ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Failure
	for rows.Next() {
		var f model.Failure
		var created string
		if err := rows.Scan(&f.ChatID, &f.Profile, &f.Reason, &created); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		f.CreatedAt, _ = time.Parse(timeLayout, created)
		out = append(out, f)
	}
	return out, rows.Err()
}

func now() string {
	return time.Now().UTC().Format(timeLayout)
}
