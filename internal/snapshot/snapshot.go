// Package snapshot defines the immutable value objects produced by the remote
// scrape client.  The reconciliation engine consumes them read-only; a
// snapshot describes the remote state of one creator at one point in time and
// is assumed complete for the content kinds it carries.
package snapshot

import (
	"time"

	"github.com/DATAHOARDERS/UltimaScraperDB/internal/model"
)

// User is the top-level snapshot for one remote account.
type User struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Balance   float64    `json:"balance"`
	Performer bool       `json:"performer"`
	JoinDate  *time.Time `json:"join_date,omitempty"`

	Profile Profile `json:"profile"`

	// Authed is non-nil when the snapshot was produced through this
	// account's own credentials.  Subscriptions, purchases and mass message
	// stats are only observable for authed accounts.
	Authed *Authed `json:"authed,omitempty"`

	Stories      []Content `json:"stories,omitempty"`
	Posts        []Content `json:"posts,omitempty"`
	Messages     []Content `json:"messages,omitempty"`
	MassMessages []Content `json:"mass_messages,omitempty"`
}

// Content returns the snapshot items of one kind, in remote order.
func (u *User) Content(kind model.ContentKind) []Content {
	switch kind {
	case model.KindStory:
		return u.Stories
	case model.KindPost:
		return u.Posts
	case model.KindMessage:
		return u.Messages
	case model.KindMassMessage:
		return u.MassMessages
	default:
		return nil
	}
}

// Profile is the remote profile state: price, counts, description.
type Profile struct {
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	Price           float64 `json:"price"`
	Promotion       bool    `json:"promotion"`
	PostCount       int     `json:"post_count"`
	MediaCount      int     `json:"media_count"`
	ImageCount      int     `json:"image_count"`
	VideoCount      int     `json:"video_count"`
	AudioCount      int     `json:"audio_count"`
	ArchivedCount   int     `json:"archived_post_count"`
	FavoritedCount  int     `json:"favorited_count"`
	SubscriberCount int     `json:"subscribers_count"`
	Location        *string `json:"location,omitempty"`
	Website         *string `json:"website,omitempty"`
}

// Authed carries the parts of a snapshot only visible through the account's
// own session: the session material itself, who the account subscribes to,
// what it bought, and performer-side mass message statistics.
type Authed struct {
	Credential    CredentialInfo    `json:"credential"`
	Subscriptions []Subscription    `json:"subscriptions,omitempty"`
	Purchases     []Purchase        `json:"purchases,omitempty"`
	MassStats     []MassMessageStat `json:"mass_message_stats,omitempty"`
}

// CredentialInfo is the session material the scrape client authenticated
// with.  Exactly one of Cookie or Authorization is set depending on the
// tenant.
type CredentialInfo struct {
	Cookie        *string `json:"cookie,omitempty"`
	Authorization *string `json:"authorization,omitempty"`
	UserAgent     string  `json:"user_agent"`
	Email         *string `json:"email,omitempty"`
	Valid         bool    `json:"valid"`
}

// Content is one remote content item of any kind.
type Content struct {
	ID          int64      `json:"id"`
	AuthorID    int64      `json:"author_id"`
	Text        string     `json:"text"`
	Price       float64    `json:"price"`
	Paid        bool       `json:"paid"`
	MediaCount  int        `json:"media_count"`
	Deleted     bool       `json:"deleted"`
	Archived    bool       `json:"archived"`
	ReceiverID  *int64     `json:"receiver_id,omitempty"`
	QueueID     *int64     `json:"queue_id,omitempty"`
	MassDerived bool       `json:"mass_derived"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	Media       []Media    `json:"media,omitempty"`
	Comments    []Comment  `json:"comments,omitempty"`
}

// Comment is one remote comment attached to a post.
type Comment struct {
	ID         int64     `json:"id"`
	ReplyID    *int64    `json:"reply_id,omitempty"`
	UserID     int64     `json:"user_id"`
	Text       string    `json:"text"`
	LikesCount int       `json:"likes_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Media is one remote media reference inside a content item.
type Media struct {
	ID        int64      `json:"id"`
	URL       string     `json:"url"`
	Size      int64      `json:"size"`
	Category  string     `json:"category"`
	Preview   bool       `json:"preview"`
	Filename  string     `json:"filename"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Subscription is one remote subscription of the authed account.
type Subscription struct {
	UserID      int64      `json:"user_id"`
	PaidContent bool       `json:"paid_content"`
	Active      bool       `json:"active"`
	ExpiresAt   time.Time  `json:"expires_at"`
	RenewedAt   *time.Time `json:"renewed_at,omitempty"`
}

// Purchase is one remote paid-content purchase made by the authed account.
type Purchase struct {
	SupplierID int64 `json:"supplier_id"`
}

// MassMessageStat is performer-side statistics for one mass message.
type MassMessageStat struct {
	ID         int64      `json:"id"`
	Text       string     `json:"text"`
	Price      float64    `json:"price"`
	MediaCount int        `json:"media_count"`
	BuyerCount int        `json:"buyer_count"`
	SentCount  int        `json:"sent_count"`
	ViewCount  int        `json:"view_count"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
