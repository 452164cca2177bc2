package engine

import (
	"context"
	"time"

	"github.com/DATAHOARDERS/UltimaScraperDB/internal/model"
)

// The engine talks to storage through the narrow ports below.  Lookups
// return (nil, nil) when the row does not exist; the engine decides whether
// absence is an error.  Implementations live in internal/repository; tests
// substitute in-memory fakes.

// Store bundles the per-tenant stores plus the transactional checkpoint
// boundary.  All writes issued inside one Checkpoint call commit together;
// a failed checkpoint never rolls back previously committed ones.
type Store interface {
	Identities() IdentityStore
	Content() ContentStore
	Media() MediaStore
	Subscriptions() SubscriptionStore
	Jobs() JobStore
	Notifications() NotificationStore

	// Checkpoint runs fn inside one transaction.  The context passed to fn
	// carries the transaction; store methods called with it join it.
	Checkpoint(ctx context.Context, fn func(ctx context.Context) error) error
}

// IdentityStore persists identities, aliases, profile info/history and
// credentials.
type IdentityStore interface {
	Get(ctx context.Context, id int64) (*model.Identity, error)
	GetByUsername(ctx context.Context, username string) (*model.Identity, error)
	Save(ctx context.Context, identity *model.Identity) error

	Aliases(ctx context.Context, userID int64) ([]model.Alias, error)
	// AliasOwners returns the ids of all identities claiming the alias name.
	// More than one result is a data-integrity error surfaced by the
	// resolver.
	AliasOwners(ctx context.Context, username string) ([]int64, error)
	// AddAlias is idempotent; re-adding an existing alias name is a no-op.
	AddAlias(ctx context.Context, userID int64, username string) error

	Profile(ctx context.Context, userID int64) (*model.ProfileInfo, error)
	SaveProfile(ctx context.Context, info *model.ProfileInfo) error
	AppendProfileSnapshot(ctx context.Context, snap *model.ProfileSnapshot) error

	Credentials(ctx context.Context, userID int64) ([]model.Credential, error)
	SaveCredential(ctx context.Context, cred *model.Credential) error
}

// ContentStore persists the four content kinds, their media associations,
// comments and mass message statistics.
type ContentStore interface {
	Get(ctx context.Context, ref model.ContentRef) (*model.ContentItem, error)
	Save(ctx context.Context, item *model.ContentItem) error

	Associations(ctx context.Context, userID int64) ([]model.ContentMediaAssociation, error)
	// AddAssociation is idempotent on the unique (content, media) tuple.
	AddAssociation(ctx context.Context, asso model.ContentMediaAssociation) error

	HasComment(ctx context.Context, id int64) (bool, error)
	AddComment(ctx context.Context, comment *model.Comment) error

	SaveMassStat(ctx context.Context, stat *model.MassMessageStat) error
}

// MediaStore persists media rows and their filepaths.
type MediaStore interface {
	Get(ctx context.Context, id int64) (*model.Media, error)
	ListByOwner(ctx context.Context, userID int64) ([]model.Media, error)
	Save(ctx context.Context, media *model.Media) error

	FilePaths(ctx context.Context, userID int64) ([]model.FilePath, error)
	// AddFilePath is idempotent on the unique (content, media) tuple.
	AddFilePath(ctx context.Context, fp *model.FilePath) error

	// SizeSum returns the byte total of the identity's media.
	SizeSum(ctx context.Context, userID int64) (int64, error)
	// CountByCategory counts the identity's media of one category that have
	// at least one filepath.
	CountByCategory(ctx context.Context, userID int64, category string) (int, error)
	// PaidMedia lists non-preview media with filepaths attached to priced,
	// paid posts or messages of the identity.
	PaidMedia(ctx context.Context, userID int64) ([]model.Media, error)
}

// SubscriptionStore persists subscription and purchase edges.
type SubscriptionStore interface {
	Get(ctx context.Context, ownerID, subscriberID int64) (*model.SubscriptionEdge, error)
	Save(ctx context.Context, edge *model.SubscriptionEdge) error
	// SubscriberIDs lists subscribers of the owner; with unexpiredOnly only
	// edges whose expires_at is in the future are returned.
	SubscriberIDs(ctx context.Context, ownerID int64, unexpiredOnly bool) ([]int64, error)

	HasPurchase(ctx context.Context, supplierID, buyerID int64) (bool, error)
	AddPurchase(ctx context.Context, supplierID, buyerID int64) error
	BuyerIDs(ctx context.Context, supplierID int64) ([]int64, error)
}

// JobFilter narrows job listings.  Zero values mean "any".
type JobFilter struct {
	ServerID int64
	UserID   int64
	Category string
	Priority *bool
	Active   *bool
	Page     int
	Limit    int
}

// JobStore persists the work queue.  List returns jobs in dequeue order:
// priority desc, id asc, tie-broken by the identity's downloaded_at
// descending.
type JobStore interface {
	Find(ctx context.Context, siteID, userID int64, category string) (*model.Job, error)
	Save(ctx context.Context, job *model.Job) error
	List(ctx context.Context, siteID int64, filter JobFilter) ([]model.Job, error)
	Complete(ctx context.Context, jobID int64, at time.Time) error
}

// NotificationStore persists notifications and their channel flags.
type NotificationStore interface {
	Find(ctx context.Context, subjectID int64, category string, observerID *int64) (*model.Notification, error)
	ListBySubject(ctx context.Context, subjectID int64, category string) ([]model.Notification, error)
	Save(ctx context.Context, n *model.Notification) error
	ListUnsent(ctx context.Context, channel string, page, limit int) ([]model.Notification, error)
	MarkSent(ctx context.Context, id int64, channel string) error
}

// SiteStore reads the cross-tenant site registry from the management schema.
type SiteStore interface {
	GetByDBName(ctx context.Context, dbName string) (*model.Site, error)
	Save(ctx context.Context, site *model.Site) error
}
