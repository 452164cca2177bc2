package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/DATAHOARDERS/UltimaScraperDB/internal/model"
	"github.com/DATAHOARDERS/UltimaScraperDB/internal/snapshot"
)

// Ledger tracks who has access to a creator's content: subscriptions,
// one-off purchases and credential holders.  It answers the buyer question
// that drives paid-content fan-out.
type Ledger struct {
	identities    IdentityStore
	subscriptions SubscriptionStore
}

// NewLedger builds a ledger over the given stores.
func NewLedger(identities IdentityStore, subscriptions SubscriptionStore) *Ledger {
	return &Ledger{identities: identities, subscriptions: subscriptions}
}

// ReconcileSubscription overwrites the subscription edge from subscriber to
// owner with the snapshot's state.  The edge is keyed by the identity pair,
// so repeated reconciliations update in place.  A previously recorded
// downloaded-at stamp survives the overwrite.
func (l *Ledger) ReconcileSubscription(ctx context.Context, ownerID, subscriberID int64, snap snapshot.Subscription) (*model.SubscriptionEdge, error) {
	edge, err := l.subscriptions.Get(ctx, ownerID, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("load subscription %d->%d: %w", subscriberID, ownerID, err)
	}
	if edge == nil {
		edge = &model.SubscriptionEdge{UserID: ownerID, SubscriberID: subscriberID}
	}
	edge.PaidContent = snap.PaidContent
	edge.Active = snap.Active
	edge.ExpiresAt = snap.ExpiresAt
	edge.RenewedAt = snap.RenewedAt
	if err := l.subscriptions.Save(ctx, edge); err != nil {
		return nil, fmt.Errorf("save subscription %d->%d: %w", subscriberID, ownerID, err)
	}
	return edge, nil
}

// RecordPurchase records that buyer bought paid content from supplier.  The
// edge is created exactly once; it reports whether this call created it.
func (l *Ledger) RecordPurchase(ctx context.Context, supplierID, buyerID int64) (bool, error) {
	ok, err := l.subscriptions.HasPurchase(ctx, supplierID, buyerID)
	if err != nil {
		return false, fmt.Errorf("load purchase %d->%d: %w", buyerID, supplierID, err)
	}
	if ok {
		return false, nil
	}
	if err := l.subscriptions.AddPurchase(ctx, supplierID, buyerID); err != nil {
		return false, fmt.Errorf("record purchase %d->%d: %w", buyerID, supplierID, err)
	}
	return true, nil
}

// MarkDownloaded stamps the subscription edge and the owner identity with the
// time the subscriber finished downloading the owner's content.
func (l *Ledger) MarkDownloaded(ctx context.Context, ownerID, subscriberID int64, at time.Time) error {
	edge, err := l.subscriptions.Get(ctx, ownerID, subscriberID)
	if err != nil {
		return fmt.Errorf("load subscription %d->%d: %w", subscriberID, ownerID, err)
	}
	if edge != nil {
		t := at
		edge.DownloadedAt = &t
		if err := l.subscriptions.Save(ctx, edge); err != nil {
			return fmt.Errorf("save subscription %d->%d: %w", subscriberID, ownerID, err)
		}
	}
	owner, err := l.identities.Get(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("load identity %d: %w", ownerID, err)
	}
	if owner == nil {
		return fmt.Errorf("identity %d: %w", ownerID, ErrNotFound)
	}
	t := at
	owner.DownloadedAt = &t
	if err := l.identities.Save(ctx, owner); err != nil {
		return fmt.Errorf("save identity %d: %w", ownerID, err)
	}
	return nil
}

// BuyerFilter narrows a FindBuyers query.
type BuyerFilter struct {
	// ActiveCredential keeps only buyers holding at least one active
	// credential.
	ActiveCredential bool
	// ActiveSubscription keeps only buyers whose subscription to the owner
	// has not expired.  Buyers present through purchase or credential alone
	// are kept regardless.
	ActiveSubscription bool
}

// FindBuyers returns every identity with access to the owner's paid content:
// the owner's own credential holders, recorded purchase buyers and current
// subscribers, deduplicated.  The owner itself sorts first when present,
// the rest ascend by id.
func (l *Ledger) FindBuyers(ctx context.Context, ownerID int64, filter BuyerFilter) ([]int64, error) {
	seen := map[int64]bool{}

	creds, err := l.identities.Credentials(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load credentials of %d: %w", ownerID, err)
	}
	for _, c := range creds {
		if !filter.ActiveCredential || c.Active {
			seen[ownerID] = true
			break
		}
	}

	buyers, err := l.subscriptions.BuyerIDs(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load buyers of %d: %w", ownerID, err)
	}
	for _, id := range buyers {
		seen[id] = true
	}

	subscribers, err := l.subscriptions.SubscriberIDs(ctx, ownerID, filter.ActiveSubscription)
	if err != nil {
		return nil, fmt.Errorf("load subscribers of %d: %w", ownerID, err)
	}
	for _, id := range subscribers {
		seen[id] = true
	}

	if filter.ActiveCredential {
		for id := range seen {
			if id == ownerID {
				continue
			}
			creds, err := l.identities.Credentials(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("load credentials of %d: %w", id, err)
			}
			active := false
			for _, c := range creds {
				if c.Active {
					active = true
					break
				}
			}
			if !active {
				delete(seen, id)
			}
		}
	}

	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i] == ownerID {
			return true
		}
		if ids[j] == ownerID {
			return false
		}
		return ids[i] < ids[j]
	})
	return ids, nil
}
