package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/DATAHOARDERS/UltimaScraperDB/internal/model"
)

// NotificationRepo persists notifications and their per-channel delivery
// flags.  The (user_id, authed_user_id, category) tuple is unique.
type NotificationRepo struct{ db *sql.DB }

// NewNotificationRepo returns a NotificationRepo bound to the given database.
func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

const notificationCols = `id, user_id, authed_user_id, category, sent_discord, sent_telegram, created_at`

func scanNotification(scan func(dest ...any) error) (*model.Notification, error) {
	var n model.Notification
	var observer sql.NullInt64
	if err := scan(&n.ID, &n.UserID, &observer, &n.Category,
		&n.SentDiscord, &n.SentTelegram, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.ObserverID = nullInt(observer)
	return &n, nil
}

// Find fetches the notification for one (subject, category, observer) key.
// A nil observer matches only the observer-less row.
func (r *NotificationRepo) Find(ctx context.Context, subjectID int64, category string, observerID *int64) (*model.Notification, error) {
	query := `SELECT ` + notificationCols + ` FROM notifications WHERE user_id=? AND category=? AND `
	args := []any{subjectID, category}
	if observerID == nil {
		query += `authed_user_id IS NULL`
	} else {
		query += `authed_user_id=?`
		args = append(args, *observerID)
	}
	row := q(ctx, r.db).QueryRowContext(ctx, query+` LIMIT 1`, args...)
	n, err := scanNotification(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return n, err
}

// ListBySubject lists all notifications about one subject and category,
// regardless of observer.
func (r *NotificationRepo) ListBySubject(ctx context.Context, subjectID int64, category string) ([]model.Notification, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT `+notificationCols+` FROM notifications WHERE user_id=? AND category=? ORDER BY id`,
		subjectID, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// Save inserts a new notification or updates the channel flags of an
// existing one.
func (r *NotificationRepo) Save(ctx context.Context, n *model.Notification) error {
	if n.ID == 0 {
		res, err := q(ctx, r.db).ExecContext(ctx,
			`INSERT INTO notifications (user_id, authed_user_id, category, sent_discord, sent_telegram)
VALUES (?,?,?,?,?)`,
			n.UserID, bindInt(n.ObserverID), n.Category, n.SentDiscord, n.SentTelegram)
		if err != nil {
			if isDuplicate(err) {
				return ErrConflict
			}
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		n.ID = id
		return nil
	}
	_, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE notifications SET sent_discord=?, sent_telegram=? WHERE id=?`,
		n.SentDiscord, n.SentTelegram, n.ID)
	return err
}

func channelColumn(channel string) (string, error) {
	switch channel {
	case model.ChannelDiscord:
		return "sent_discord", nil
	case model.ChannelTelegram:
		return "sent_telegram", nil
	default:
		return "", fmt.Errorf("unknown notification channel %q", channel)
	}
}

// ListUnsent pages through notifications not yet delivered on one channel,
// oldest first.
func (r *NotificationRepo) ListUnsent(ctx context.Context, channel string, page, limit int) ([]model.Notification, error) {
	col, err := channelColumn(channel)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + notificationCols + ` FROM notifications WHERE ` + col + `=0 ORDER BY id LIMIT ? OFFSET ?`
	rows, err := q(ctx, r.db).QueryContext(ctx, query, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// MarkSent flips one channel flag to sent.  Flags never flip back.
func (r *NotificationRepo) MarkSent(ctx context.Context, id int64, channel string) error {
	col, err := channelColumn(channel)
	if err != nil {
		return err
	}
	_, err = q(ctx, r.db).ExecContext(ctx,
		`UPDATE notifications SET `+col+`=1 WHERE id=?`, id)
	return err
}
