// Package storage defines the journal interface and its implementations.
//
// The journal is an append-only audit trail. It is never read back into
// subscriber state, so watching always starts from a fresh baseline.
package storage

import (
	"context"

	"profile_watch_bot/internal/model"
)

// Journal records what the watcher did.
type Journal interface {
	RecordSubscription(ctx context.Context, chatID int64, profile string) error
	RecordDelivery(ctx context.Context, chatID int64, text string) error
	RecordFailure(ctx context.Context, chatID int64, profile, reason string) error

	ListSubscriptions(ctx context.Context) ([]model.Subscription, error)
	ListDeliveries(ctx context.Context, chatID int64) ([]model.Delivery, error)
	DeliveryCounts(ctx context.Context) ([]model.DeliveryCount, error)
	ListFailures(ctx context.Context) ([]model.Failure, error)

	Close() error
}
