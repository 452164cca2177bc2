package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/DATAHOARDERS/UltimaScraperDB/internal/model"
)

// SubscriptionRepo persists the subscription and purchase edges between
// identities.
type SubscriptionRepo struct{ db *sql.DB }

// NewSubscriptionRepo returns a SubscriptionRepo bound to the given database.
func NewSubscriptionRepo(db *sql.DB) *SubscriptionRepo { return &SubscriptionRepo{db: db} }

// Get fetches the subscription edge for one (owner, subscriber) pair.
func (r *SubscriptionRepo) Get(ctx context.Context, ownerID, subscriberID int64) (*model.SubscriptionEdge, error) {
	var e model.SubscriptionEdge
	var downloaded, renewed sql.NullTime
	err := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, user_id, subscriber_id, paid_content, active, downloaded_at, expires_at, renewed_at, created_at
FROM subscriptions WHERE user_id=? AND subscriber_id=? LIMIT 1`, ownerID, subscriberID).
		Scan(&e.ID, &e.UserID, &e.SubscriberID, &e.PaidContent, &e.Active,
			&downloaded, &e.ExpiresAt, &renewed, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.DownloadedAt = nullTime(downloaded)
	e.RenewedAt = nullTime(renewed)
	return &e, nil
}

// Save upserts the subscription edge, keyed by the (owner, subscriber) pair.
func (r *SubscriptionRepo) Save(ctx context.Context, e *model.SubscriptionEdge) error {
	const query = `INSERT INTO subscriptions (user_id, subscriber_id, paid_content, active, downloaded_at, expires_at, renewed_at)
VALUES (?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  paid_content=VALUES(paid_content), active=VALUES(active),
  downloaded_at=VALUES(downloaded_at), expires_at=VALUES(expires_at), renewed_at=VALUES(renewed_at)`
	_, err := q(ctx, r.db).ExecContext(ctx, query,
		e.UserID, e.SubscriberID, e.PaidContent, e.Active,
		bindTime(e.DownloadedAt), e.ExpiresAt, bindTime(e.RenewedAt))
	return err
}

// SubscriberIDs lists subscriber ids of the owner, ascending.  With
// unexpiredOnly, only edges whose expiry is in the future count.
func (r *SubscriptionRepo) SubscriberIDs(ctx context.Context, ownerID int64, unexpiredOnly bool) ([]int64, error) {
	query := `SELECT subscriber_id FROM subscriptions WHERE user_id=?`
	if unexpiredOnly {
		query += ` AND expires_at > NOW()`
	}
	query += ` ORDER BY subscriber_id`
	rows, err := q(ctx, r.db).QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// HasPurchase reports whether the buyer ever bought paid content from the
// supplier.
func (r *SubscriptionRepo) HasPurchase(ctx context.Context, supplierID, buyerID int64) (bool, error) {
	var n int
	err := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(1) FROM bought_content WHERE supplier_id=? AND buyer_id=?`,
		supplierID, buyerID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AddPurchase records the purchase edge.  The pair is unique; re-adding is
// a no-op.
func (r *SubscriptionRepo) AddPurchase(ctx context.Context, supplierID, buyerID int64) error {
	_, err := q(ctx, r.db).ExecContext(ctx,
		`INSERT IGNORE INTO bought_content (supplier_id, buyer_id) VALUES (?,?)`,
		supplierID, buyerID)
	return err
}

// BuyerIDs lists ids of identities that bought from the supplier, ascending.
func (r *SubscriptionRepo) BuyerIDs(ctx context.Context, supplierID int64) ([]int64, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT buyer_id FROM bought_content WHERE supplier_id=? ORDER BY buyer_id`, supplierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
