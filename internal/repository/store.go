package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/DATAHOARDERS/UltimaScraperDB/internal/engine"
)

// querier is the subset of *sql.DB and *sql.Tx the repositories use.  Every
// repository method resolves its querier through the context, so the same
// method works standalone and inside a checkpoint transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// Store bundles the tenant repositories over one database pool and provides
// the transactional checkpoint boundary.
type Store struct {
	db            *sql.DB
	identities    *IdentityRepo
	content       *ContentRepo
	media         *MediaRepo
	subscriptions *SubscriptionRepo
	jobs          *JobRepo
	notifications *NotificationRepo
}

// NewStore builds the repository set over a tenant database pool.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:            db,
		identities:    &IdentityRepo{db: db},
		content:       &ContentRepo{db: db},
		media:         &MediaRepo{db: db},
		subscriptions: &SubscriptionRepo{db: db},
		jobs:          &JobRepo{db: db},
		notifications: &NotificationRepo{db: db},
	}
}

func (s *Store) Identities() engine.IdentityStore        { return s.identities }
func (s *Store) Content() engine.ContentStore            { return s.content }
func (s *Store) Media() engine.MediaStore                { return s.media }
func (s *Store) Subscriptions() engine.SubscriptionStore { return s.subscriptions }
func (s *Store) Jobs() engine.JobStore                   { return s.jobs }
func (s *Store) Notifications() engine.NotificationStore { return s.notifications }

// Checkpoint runs fn inside one transaction.  The transaction travels on the
// context: repository methods called with the derived context join it, calls
// with a plain context hit the pool directly.
func (s *Store) Checkpoint(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin checkpoint: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}
	return nil
}

// q resolves the active querier: the context's transaction when inside a
// checkpoint, the pool otherwise.
func q(ctx context.Context, db *sql.DB) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}
