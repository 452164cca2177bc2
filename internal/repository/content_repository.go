package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/DATAHOARDERS/UltimaScraperDB/internal/model"
)

// ContentRepo persists the four content kinds plus their media associations,
// comments and mass message statistics.  Each kind has its own table; the
// shared columns line up so scanning stays uniform.
type ContentRepo struct{ db *sql.DB }

// NewContentRepo returns a ContentRepo bound to the given database.
func NewContentRepo(db *sql.DB) *ContentRepo { return &ContentRepo{db: db} }

func contentTable(kind model.ContentKind) (string, error) {
	switch kind {
	case model.KindStory:
		return "stories", nil
	case model.KindPost:
		return "posts", nil
	case model.KindMessage:
		return "messages", nil
	case model.KindMassMessage:
		return "mass_messages", nil
	default:
		return "", fmt.Errorf("unknown content kind %d", kind)
	}
}

// assoColumn names the content_media_asso / filepaths foreign key column for
// one kind.
func assoColumn(kind model.ContentKind) (string, error) {
	switch kind {
	case model.KindStory:
		return "story_id", nil
	case model.KindPost:
		return "post_id", nil
	case model.KindMessage:
		return "message_id", nil
	case model.KindMassMessage:
		return "mass_message_id", nil
	default:
		return "", fmt.Errorf("unknown content kind %d", kind)
	}
}

// paidParam converts the tri-state flag to its nullable column value.
func paidParam(p model.PaidState) any {
	switch p {
	case model.PaidNo:
		return false
	case model.PaidYes:
		return true
	default:
		return nil
	}
}

func paidState(nb sql.NullBool) model.PaidState {
	switch {
	case !nb.Valid:
		return model.PaidUnknown
	case nb.Bool:
		return model.PaidYes
	default:
		return model.PaidNo
	}
}

// Get fetches one content item by its (kind, id) reference.
func (r *ContentRepo) Get(ctx context.Context, ref model.ContentRef) (*model.ContentItem, error) {
	table, err := contentTable(ref.Kind)
	if err != nil {
		return nil, err
	}
	query := `SELECT id, user_id, text, price, paid, media_count, deleted, archived,
receiver_id, queue_id, statistic_id, expires_at, created_at FROM ` + table + ` WHERE id=? LIMIT 1`
	var item model.ContentItem
	var paid sql.NullBool
	var receiver, queue, statistic sql.NullInt64
	var expires sql.NullTime
	err = q(ctx, r.db).QueryRowContext(ctx, query, ref.ID).Scan(
		&item.ID, &item.UserID, &item.Text, &item.Price, &paid, &item.MediaCount,
		&item.Deleted, &item.Archived, &receiver, &queue, &statistic, &expires, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	item.Kind = ref.Kind
	item.Paid = paidState(paid)
	item.ReceiverID = nullInt(receiver)
	item.QueueID = nullInt(queue)
	item.StatisticID = nullInt(statistic)
	item.ExpiresAt = nullTime(expires)
	return &item, nil
}

// Save upserts a content item under its platform-native id.
func (r *ContentRepo) Save(ctx context.Context, item *model.ContentItem) error {
	table, err := contentTable(item.Kind)
	if err != nil {
		return err
	}
	query := `INSERT INTO ` + table + ` (id, user_id, text, price, paid, media_count, deleted, archived,
receiver_id, queue_id, statistic_id, expires_at, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  user_id=VALUES(user_id), text=VALUES(text), price=VALUES(price), paid=VALUES(paid),
  media_count=VALUES(media_count), deleted=VALUES(deleted), archived=VALUES(archived),
  receiver_id=VALUES(receiver_id), queue_id=VALUES(queue_id), statistic_id=VALUES(statistic_id),
  expires_at=VALUES(expires_at), created_at=VALUES(created_at)`
	_, err = q(ctx, r.db).ExecContext(ctx, query,
		item.ID, item.UserID, item.Text, item.Price, paidParam(item.Paid), item.MediaCount,
		item.Deleted, item.Archived, bindInt(item.ReceiverID), bindInt(item.QueueID),
		bindInt(item.StatisticID), bindTime(item.ExpiresAt), item.CreatedAt)
	return err
}

// Associations lists every content-media association of one identity's
// content, across all four kinds.
func (r *ContentRepo) Associations(ctx context.Context, userID int64) ([]model.ContentMediaAssociation, error) {
	const query = `SELECT a.id, a.story_id, a.post_id, a.message_id, a.mass_message_id, a.media_id
FROM content_media_asso a JOIN medias m ON m.id = a.media_id
WHERE m.user_id=? ORDER BY a.id`
	rows, err := q(ctx, r.db).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ContentMediaAssociation
	for rows.Next() {
		var a model.ContentMediaAssociation
		var story, post, message, mass sql.NullInt64
		if err := rows.Scan(&a.ID, &story, &post, &message, &mass, &a.MediaID); err != nil {
			return nil, err
		}
		switch {
		case story.Valid:
			a.Content = model.ContentRef{Kind: model.KindStory, ID: story.Int64}
		case post.Valid:
			a.Content = model.ContentRef{Kind: model.KindPost, ID: post.Int64}
		case message.Valid:
			a.Content = model.ContentRef{Kind: model.KindMessage, ID: message.Int64}
		case mass.Valid:
			a.Content = model.ContentRef{Kind: model.KindMassMessage, ID: mass.Int64}
		default:
			continue
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AddAssociation links a media row to a content item.  The (content, media)
// tuple is unique; re-adding is a no-op.
func (r *ContentRepo) AddAssociation(ctx context.Context, asso model.ContentMediaAssociation) error {
	col, err := assoColumn(asso.Content.Kind)
	if err != nil {
		return err
	}
	query := `INSERT IGNORE INTO content_media_asso (` + col + `, media_id) VALUES (?,?)`
	_, err = q(ctx, r.db).ExecContext(ctx, query, asso.Content.ID, asso.MediaID)
	return err
}

// HasComment reports whether the comment id is already recorded.
func (r *ContentRepo) HasComment(ctx context.Context, id int64) (bool, error) {
	var n int
	err := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(1) FROM comments WHERE id=?`, id).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AddComment records a comment under its platform-native id.
func (r *ContentRepo) AddComment(ctx context.Context, c *model.Comment) error {
	_, err := q(ctx, r.db).ExecContext(ctx,
		`INSERT IGNORE INTO comments (id, post_id, reply_id, user_id, text, likes_count, created_at) VALUES (?,?,?,?,?,?,?)`,
		c.ID, c.PostID, bindInt(c.ReplyID), c.UserID, c.Text, c.LikesCount, c.CreatedAt)
	return err
}

// SaveMassStat upserts performer-side mass message statistics.
func (r *ContentRepo) SaveMassStat(ctx context.Context, s *model.MassMessageStat) error {
	const query = `INSERT INTO mass_message_stats (id, user_id, media_count, buyer_count, sent_count, view_count)
VALUES (?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  media_count=VALUES(media_count), buyer_count=VALUES(buyer_count),
  sent_count=VALUES(sent_count), view_count=VALUES(view_count)`
	_, err := q(ctx, r.db).ExecContext(ctx, query,
		s.ID, s.UserID, s.MediaCount, s.BuyerCount, s.SentCount, s.ViewCount)
	return err
}
