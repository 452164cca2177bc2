package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/DATAHOARDERS/UltimaScraperDB/internal/model"
)

// Resolver maps a remote creator's numeric id or any of its historical
// usernames onto exactly one archive identity.
type Resolver struct {
	identities IdentityStore
}

// NewResolver returns a Resolver backed by the given identity store.
func NewResolver(identities IdentityStore) *Resolver {
	return &Resolver{identities: identities}
}

// ResolveByID looks an identity up by its platform-native numeric id.
func (r *Resolver) ResolveByID(ctx context.Context, id int64) (*model.Identity, error) {
	identity, err := r.identities.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolve identity %d: %w", id, err)
	}
	if identity == nil {
		return nil, ErrNotFound
	}
	return identity, nil
}

// ResolveByName looks an identity up by name: current display name first,
// then the alias table.  An alias claimed by more than one identity is a
// data-integrity error, reported as AmbiguousAliasError.
func (r *Resolver) ResolveByName(ctx context.Context, name string) (*model.Identity, error) {
	identity, err := r.identities.GetByUsername(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("resolve identity %q: %w", name, err)
	}
	if identity != nil {
		return identity, nil
	}
	owners, err := r.identities.AliasOwners(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("resolve alias %q: %w", name, err)
	}
	switch len(owners) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return r.ResolveByID(ctx, owners[0])
	default:
		sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })
		return nil, &AmbiguousAliasError{Alias: name, OwnerIDs: owners}
	}
}

// ReconcileName applies an incoming display name to the identity and records
// the superseded name as an alias.  The synthetic placeholder "u<id>" is
// treated as "no name yet": it is never persisted as an alias, and when the
// incoming name is the placeholder while real names are already known, the
// newest known alias is kept as the display name instead.  Alias creation is
// idempotent.  The identity is mutated but not saved; the caller persists it.
func (r *Resolver) ReconcileName(ctx context.Context, identity *model.Identity, incoming string) error {
	placeholder := model.PlaceholderName(identity.ID)
	if incoming == "" {
		incoming = placeholder
	}
	if incoming == placeholder {
		if identity.Username != "" && identity.Username != placeholder {
			return nil // keep the real name we already have
		}
		aliases, err := r.identities.Aliases(ctx, identity.ID)
		if err != nil {
			return fmt.Errorf("load aliases for %d: %w", identity.ID, err)
		}
		// Promote the newest real alias rather than storing the placeholder.
		for i := len(aliases) - 1; i >= 0; i-- {
			if aliases[i].Username != placeholder {
				identity.Username = aliases[i].Username
				return nil
			}
		}
		identity.Username = placeholder
		return nil
	}
	if identity.Username == incoming {
		return nil
	}
	old := identity.Username
	if old != "" && old != placeholder {
		if err := r.identities.AddAlias(ctx, identity.ID, old); err != nil {
			return fmt.Errorf("record alias %q for %d: %w", old, identity.ID, err)
		}
	}
	identity.Username = incoming
	return nil
}
