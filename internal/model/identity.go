package model

import "time"

// Identity represents an archived creator or subscriber account within one
// tenant schema.  The primary key is the platform-native numeric id; it is
// never reused across tenants and never auto-incremented.  An identity owns
// its profile info, aliases, credentials, content, media, jobs, notifications
// and the subscription/purchase edges where it is the primary party.
//
// Fields:
//
//	ID            – platform-assigned numeric id (stable).
//	Username      – current display name; may be the synthetic placeholder
//	                "u<id>" when the platform never surfaced a real name.
//	Balance       – last observed credit balance.
//	Performer     – whether the account publishes content.
//	Favorite      – operator-side favourite flag.
//	Active        – whether the account still exists remotely.
//	DownloadedAt  – last time any of the identity's content was downloaded.
//	LastCheckedAt – last time a reconciliation completed for this identity.
//	JoinDate      – platform join date, when known.
//	CreatedAt     – archive row creation time.
//	UpdatedAt     – archive row last update time.
type Identity struct {
	ID            int64      // users.id
	Username      string     // users.username
	Balance       float64    // users.balance
	Performer     bool       // users.performer
	Favorite      bool       // users.favorite
	Active        bool       // users.active
	DownloadedAt  *time.Time // users.downloaded_at (nullable)
	LastCheckedAt *time.Time // users.last_checked_at (nullable)
	JoinDate      *time.Time // users.join_date (nullable)
	CreatedAt     time.Time  // users.created_at
	UpdatedAt     *time.Time // users.updated_at (nullable)
}

// PlaceholderName returns the synthetic "u<id>" name the platform assigns to
// accounts that never chose a username.  It is treated as "no name yet" and
// must never be persisted as a real alias.
func PlaceholderName(id int64) string {
	return "u" + itoa(id)
}

// itoa avoids pulling strconv into every caller for a single conversion.
func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Alias records a prior display name of an identity.  The (user_id, username)
// pair is unique, and a username resolves to at most one identity within a
// tenant.
//
// Fields:
//
//	ID       – surrogate key.
//	UserID   – owning identity.
//	Username – the historical name.
type Alias struct {
	ID       int64  // user_aliases.id
	UserID   int64  // user_aliases.user_id
	Username string // user_aliases.username
}

// ProfileInfo is the current profile snapshot of an identity: subscription
// price, content counts, description and so on.  There is exactly one row per
// identity; every change is additionally appended to the profile history.
//
// Fields mirror the user_infos table one to one.
type ProfileInfo struct {
	ID                int64      // user_infos.id
	UserID            int64      // user_infos.user_id
	Name              string     // user_infos.name
	Description       string     // user_infos.description
	Price             float64    // user_infos.price
	Promotion         bool       // user_infos.promotion
	PostCount         int        // user_infos.post_count
	MediaCount        int        // user_infos.media_count
	ImageCount        int        // user_infos.image_count
	VideoCount        int        // user_infos.video_count
	AudioCount        int        // user_infos.audio_count
	ArchivedCount     int        // user_infos.archived_post_count
	FavoritedCount    int        // user_infos.favourited_count
	SubscriberCount   int        // user_infos.subscribers_count
	Size              int64      // user_infos.size (bytes archived)
	Location          *string    // user_infos.location (nullable)
	Website           *string    // user_infos.website (nullable)
	DownloadedAt      *time.Time // user_infos.downloaded_at (nullable)
	FirstDownloadedAt *time.Time // user_infos.first_downloaded_at (nullable)
}

// ProfileSnapshot is one append-only history entry of ProfileInfo.  History
// rows are written on every reconciliation that changes the profile and are
// never updated or deleted.
type ProfileSnapshot struct {
	ID              int64     // histo_user_infos.id
	UserID          int64     // histo_user_infos.user_id
	Name            string    // histo_user_infos.name
	Description     string    // histo_user_infos.description
	Price           float64   // histo_user_infos.price
	PostCount       int       // histo_user_infos.post_count
	MediaCount      int       // histo_user_infos.media_count
	SubscriberCount int       // histo_user_infos.subscribers_count
	Size            int64     // histo_user_infos.size
	CreatedAt       time.Time // histo_user_infos.created_at
}

// Credential holds session material for an identity that the scrape client
// authenticates with.  History is preserved for audit; the "current"
// credential for scheduling purposes is the last appended active one.
//
// Fields:
//
//	ID            – surrogate key.
//	UserID        – owning identity.
//	Cookie        – session cookie blob (nullable on token-based tenants).
//	Authorization – bearer/authorization token (nullable on cookie tenants).
//	UserAgent     – user agent the session was created with.
//	Email         – account email, when known.
//	Active        – whether the session is believed usable.
type Credential struct {
	ID            int64   // user_auths.id
	UserID        int64   // user_auths.user_id
	Cookie        *string // user_auths.cookie (nullable)
	Authorization *string // user_auths.authorization (nullable)
	UserAgent     string  // user_auths.user_agent
	Email         *string // user_auths.email (nullable)
	Active        bool    // user_auths.active
}
