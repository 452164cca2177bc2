package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/DATAHOARDERS/UltimaScraperDB/internal/model"
)

// Bus is the outbound side of notification delivery.  The queue package
// provides the AMQP implementation; a nil Bus keeps notifications row-only.
type Bus interface {
	PublishNotification(ctx context.Context, n *model.Notification) error
}

// Notifier raises at-most-one notification per (subject, category, observer)
// key.  Delivery state per channel lives on the row; the optional bus gets a
// best-effort publish when a row is first created.
type Notifier struct {
	store NotificationStore
	bus   Bus
}

// NewNotifier builds a notifier.  bus may be nil.
func NewNotifier(store NotificationStore, bus Bus) *Notifier {
	return &Notifier{store: store, bus: bus}
}

// MaybeNotify records a notification about the subject identity unless one
// with the same key already exists.  When observer is non-nil and the only
// existing row for the (subject, category) pair is the observer-less one,
// an observer-specific row is still created: that observer has not been
// told yet.
func (n *Notifier) MaybeNotify(ctx context.Context, subjectID int64, category string, observer *int64) error {
	existing, err := n.store.Find(ctx, subjectID, category, observer)
	if err != nil {
		return fmt.Errorf("load notification %d/%s: %w", subjectID, category, err)
	}
	if existing != nil {
		return nil
	}
	row := &model.Notification{
		UserID:     subjectID,
		ObserverID: observer,
		Category:   category,
	}
	if err := n.store.Save(ctx, row); err != nil {
		return fmt.Errorf("save notification %d/%s: %w", subjectID, category, err)
	}
	if n.bus != nil {
		// Row creation is the source of truth; a publish failure only
		// delays delivery until the unsent sweep picks the row up.
		if err := n.bus.PublishNotification(ctx, row); err != nil {
			log.Printf("notify %d/%s: publish failed: %v", subjectID, category, err)
		}
	}
	return nil
}

// PendingPageSize caps one page of undelivered notifications.
const PendingPageSize = 100

// Pending returns undelivered notifications for one delivery channel,
// oldest first.
func (n *Notifier) Pending(ctx context.Context, channel string, page int) ([]model.Notification, error) {
	if page < 1 {
		page = 1
	}
	rows, err := n.store.ListUnsent(ctx, channel, page, PendingPageSize)
	if err != nil {
		return nil, fmt.Errorf("list unsent %s notifications: %w", channel, err)
	}
	return rows, nil
}

// MarkDelivered flags one notification as delivered on one channel.
func (n *Notifier) MarkDelivered(ctx context.Context, id int64, channel string) error {
	if err := n.store.MarkSent(ctx, id, channel); err != nil {
		return fmt.Errorf("mark notification %d sent on %s: %w", id, channel, err)
	}
	return nil
}
