package model

import "time"

// ContentKind identifies which of the four content tables a ContentItem or
// ContentRef belongs to.
type ContentKind uint8

const (
	KindStory ContentKind = iota + 1
	KindPost
	KindMessage
	KindMassMessage
)

// String returns the lower-case singular name used in logs and job categories.
func (k ContentKind) String() string {
	switch k {
	case KindStory:
		return "story"
	case KindPost:
		return "post"
	case KindMessage:
		return "message"
	case KindMassMessage:
		return "mass_message"
	default:
		return "unknown"
	}
}

// Kinds lists all content kinds in processing order: stories before posts
// before messages before mass messages.  Reconciliation commits a checkpoint
// after each kind, in this order.
func Kinds() []ContentKind {
	return []ContentKind{KindStory, KindPost, KindMessage, KindMassMessage}
}

// PaidState reports whether a priced content item has been unlocked.
// PaidUnknown means no classification signal has been observed yet; the
// column is NULL in that state.
type PaidState uint8

const (
	PaidUnknown PaidState = iota
	PaidNo
	PaidYes
)

// ContentItem is the tagged union over {Story, Post, Message, MassMessage}.
// The (kind, id) pair is unique within a tenant.  Kind-specific fields are
// pointers and nil for kinds that do not carry them.
//
// Fields:
//
//	Kind        – which variant this row is.
//	ID          – platform-native id, stable across reconciliations.
//	UserID      – authoring identity.
//	Text        – caption / body text.
//	Price       – price at last observation.
//	Paid        – tri-state paid flag (posts and messages only).
//	MediaCount  – number of media the remote item claims to carry.
//	Deleted     – remote deletion flag.
//	Archived    – remote archival flag (posts only).
//	ReceiverID  – message receiver; immutable once observed.
//	QueueID     – originating mass message id (mass-message-derived messages).
//	StatisticID – statistics row id (mass messages only).
//	ExpiresAt   – expiry (mass messages only).
//	CreatedAt   – remote creation time.
type ContentItem struct {
	Kind        ContentKind
	ID          int64      // x_<kind>.id
	UserID      int64      // x_<kind>.user_id
	Text        string     // x_<kind>.text
	Price       float64    // x_<kind>.price
	Paid        PaidState  // x_<kind>.paid (nullable tri-state)
	MediaCount  int        // x_<kind>.media_count
	Deleted     bool       // x_<kind>.deleted
	Archived    bool       // x_posts.archived
	ReceiverID  *int64     // x_messages.receiver_id (nullable)
	QueueID     *int64     // x_messages.queue_id (nullable)
	StatisticID *int64     // x_mass_messages.statistic_id (nullable)
	ExpiresAt   *time.Time // x_mass_messages.expires_at (nullable)
	CreatedAt   time.Time  // x_<kind>.created_at
}

// Ref returns the content reference of this item.
func (c *ContentItem) Ref() ContentRef {
	return ContentRef{Kind: c.Kind, ID: c.ID}
}

// ContentRef names exactly one content item of exactly one kind.  Join rows
// store it as four nullable foreign key columns with exactly one set.
type ContentRef struct {
	Kind ContentKind
	ID   int64
}

// ContentMediaAssociation is the join fact that a media appears in a content
// item.  The tuple (story_id|null, post_id|null, message_id|null,
// mass_message_id|null, media_id) is unique: a media attaches to a content
// item at most once, but may attach to many different content items.
type ContentMediaAssociation struct {
	ID      int64      // content_media_asso.id
	Content ContentRef // exactly one of the four content columns
	MediaID int64      // content_media_asso.media_id
}

// FilePath is a resolved storage location for one media within the context of
// one content association.  Uniqueness mirrors ContentMediaAssociation.
//
// Fields:
//
//	ID         – surrogate key.
//	Content    – the content item this path was resolved under.
//	MediaID    – the media stored at this path.
//	Path       – local or remote path, POSIX separators.
//	Preview    – whether the file is a preview rendition.
//	Downloaded – whether the file has been fetched locally.
type FilePath struct {
	ID         int64      // filepaths.id
	Content    ContentRef // exactly one of the four content columns
	MediaID    int64      // filepaths.media_id
	Path       string     // filepaths.filepath
	Preview    bool       // filepaths.preview
	Downloaded bool       // filepaths.downloaded
}

// Comment is a remote comment on a post.  Comments are archived verbatim and
// never updated after insertion.
type Comment struct {
	ID         int64     // comments.id
	PostID     int64     // comments.post_id
	ReplyID    *int64    // comments.reply_id (nullable)
	UserID     int64     // comments.user_id
	Text       string    // comments.text
	LikesCount int       // comments.likes_count
	CreatedAt  time.Time // comments.created_at
}

// MassMessageStat carries performer-side statistics for one mass message.
type MassMessageStat struct {
	ID         int64 // mass_message_stats.id
	UserID     int64 // mass_message_stats.user_id
	MediaCount int   // mass_message_stats.media_count
	BuyerCount int   // mass_message_stats.buyer_count
	SentCount  int   // mass_message_stats.sent_count
	ViewCount  int   // mass_message_stats.view_count
}
