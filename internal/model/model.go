// Package model defines the domain types used across the application.
package model

import (
	"fmt"
	"time"
)

// NewsRecord is one entry scraped from a profile page.
// Records are comparable values: two scrapes of the same entry are equal
// when all four fields match, so a record can be used directly as a map key.
type NewsRecord struct {
	Name        string
	URL         string
	LastChanges string
	SizeChanges string
}

// Notification renders the record as a Telegram Markdown message.
func (r NewsRecord) Notification() string {
	return fmt.Sprintf("[%s](%s) *%s*", r.Name, r.URL, r.SizeChanges)
}

// Subscription is a journal entry for a newly registered subscriber.
type Subscription struct {
	ChatID    int64
	Profile   string
	CreatedAt time.Time
}

// Delivery is a journal entry for a notification Telegram accepted.
type Delivery struct {
	ID     int64
	ChatID int64
	Text   string
	SentAt time.Time
}

// DeliveryCount is the number of notifications delivered to one chat.
type DeliveryCount struct {
	ChatID int64
	Count  int
}

// Failure is a journal entry for a subscriber whose onboarding failed.
type Failure struct {
	ChatID    int64
	Profile   string
	Reason    string
	CreatedAt time.Time
}
