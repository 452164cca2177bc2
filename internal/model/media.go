package model

import "time"

// Media categories.  The category is derived from the remote content type and
// stored as text, matching the platform vocabulary.
const (
	MediaImage = "images"
	MediaVideo = "videos"
	MediaAudio = "audios"
	MediaOther = "others"
)

// Media is a single image/video/audio asset.  One row exists per (tenant,
// id); the same media may be referenced by many content items through
// ContentMediaAssociation (re-sent paid media is the common case).
//
// Fields:
//
//	ID        – platform-native id, primary key, never auto-incremented.
//	UserID    – owning identity.
//	URL       – best-known remote URL; preview URLs never overwrite a known
//	            full-resolution URL.
//	Size      – byte size; monotonically non-decreasing across updates.
//	Category  – images/videos/audios/others.
//	Preview   – whether the best-known rendition is a preview.
//	CreatedAt – earliest known creation time (min semantics, previews often
//	            surface before the canonical item).
type Media struct {
	ID        int64      // media.id
	UserID    int64      // media.user_id
	URL       *string    // media.url (nullable)
	Size      int64      // media.size
	Category  string     // media.category
	Preview   bool       // media.preview
	CreatedAt *time.Time // media.created_at (nullable)
}
