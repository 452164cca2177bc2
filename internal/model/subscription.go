package model

import "time"

// SubscriptionEdge records that one identity subscribes to another.  The
// (user_id, subscriber_id) pair is unique.  The edge is created on first
// observed subscription, mutated on every reconciliation and never hard
// deleted.
//
// Fields:
//
//	ID           – surrogate key.
//	UserID       – the owner (creator being subscribed to).
//	SubscriberID – the subscribing identity.
//	PaidContent  – whether the subscriber has purchased paid content from the
//	               owner.
//	Active       – whether the subscription is currently active.
//	DownloadedAt – last time content was downloaded under this subscription;
//	               propagates to the owner's Identity.DownloadedAt.
//	ExpiresAt    – subscription expiry.
//	RenewedAt    – last renewal, when known.
//	CreatedAt    – edge creation time.
type SubscriptionEdge struct {
	ID           int64      // subscriptions.id
	UserID       int64      // subscriptions.user_id
	SubscriberID int64      // subscriptions.subscriber_id
	PaidContent  bool       // subscriptions.paid_content
	Active       bool       // subscriptions.active
	DownloadedAt *time.Time // subscriptions.downloaded_at (nullable)
	ExpiresAt    time.Time  // subscriptions.expires_at
	RenewedAt    *time.Time // subscriptions.renewed_at (nullable)
	CreatedAt    time.Time  // subscriptions.created_at
}

// PurchaseEdge records that a buyer has purchased paid content from a
// supplier at least once.  It is created exactly once per (supplier, buyer)
// pair and never updated; the presence of the row is the fact recorded.
type PurchaseEdge struct {
	ID         int64 // bought_content.id
	SupplierID int64 // bought_content.supplier_id
	BuyerID    int64 // bought_content.buyer_id
}
