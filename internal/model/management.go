package model

import "time"

// Site is one supported platform tenant in the cross-tenant management
// schema.  Each site maps to its own database schema named DBName.
type Site struct {
	ID               int64  // sites.id
	Name             string // sites.name
	DBName           string // sites.db_name
	URL              string // sites.url
	Active           bool   // sites.active
	Size             int64  // sites.size (bytes archived across the tenant)
	UserIDCheckpoint *int64 // sites.user_id_checkpoint (nullable)
}

// Server is a worker machine registered in the management schema.  Jobs are
// assigned to a server; JobLimit caps how many it runs at once.
type Server struct {
	ID       int64  // servers.id
	Name     string // servers.name
	IP       string // servers.ip
	JobLimit int    // servers.job_limit
	Active   bool   // servers.active
}

// Host is a storage host registered in the management schema.  Its secret is
// stored bcrypt-hashed; the plain value is only ever compared, never read
// back.
type Host struct {
	ID         int64   // hosts.id
	Name       string  // hosts.name
	Identifier string // hosts.identifier
	SecretHash string // hosts.secret_hash (bcrypt)
	Source     string // hosts.source
	Active     bool    // hosts.active
}

// Job is a unit of scheduled archival work for one identity/category pair.
// The (site_id, user_id, category) tuple is unique.  Jobs are created by
// schedulers, mutated by workers and soft-completed; they are never deleted
// so that runs can be replayed and audited.
//
// Fields:
//
//	ID          – surrogate key.
//	SiteID      – tenant the job belongs to.
//	UserID      – identity the job archives.
//	Username    – identity's name at scheduling time, for display.
//	Category    – work category (e.g. "download", "scrape").
//	ServerID    – assigned worker server.
//	HostID      – optional pinned storage host.
//	Priority    – explicit priority override; priority jobs dequeue first.
//	Skippable   – loaded workers may bypass skippable jobs.
//	Active      – false once completed.
//	CompletedAt – completion stamp, nil while active.
type Job struct {
	ID          int64      // jobs.id
	SiteID      int64      // jobs.site_id
	UserID      int64      // jobs.user_id
	Username    string     // jobs.user_username
	Category    string     // jobs.category
	ServerID    int64      // jobs.server_id
	HostID      *int64     // jobs.host_id (nullable)
	Priority    bool       // jobs.priority
	Skippable   bool       // jobs.skippable
	Active      bool       // jobs.active
	CompletedAt *time.Time // jobs.completed_at (nullable)
}

// Notification categories emitted by the engine.
const (
	NotifyNewPerformer   = "new_performer"
	NotifyNewPaidContent = "new_paid_content"
)

// Delivery channels a notification can be sent on.
const (
	ChannelDiscord  = "discord"
	ChannelTelegram = "telegram"
)

// Notification is an archive-worthy event about a subject identity, observed
// by at most one specific credential-holding identity (or by nobody in
// particular when ObserverID is nil).  The (user_id, authed_user_id,
// category) tuple is unique; channel sent flags only ever flip false→true.
type Notification struct {
	ID           int64     // notifications.id
	UserID       int64     // notifications.user_id (subject)
	ObserverID   *int64    // notifications.authed_user_id (nullable)
	Category     string    // notifications.category
	SentDiscord  bool      // notifications.sent_discord
	SentTelegram bool      // notifications.sent_telegram
	CreatedAt    time.Time // notifications.created_at
}
