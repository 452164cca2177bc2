package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/DATAHOARDERS/UltimaScraperDB/internal/model"
	"github.com/DATAHOARDERS/UltimaScraperDB/internal/snapshot"
)

// Options tune a Reconciler.  Zero values select sane defaults.
type Options struct {
	// Fanout bounds the number of content items transformed concurrently
	// within one kind.  Defaults to 8.
	Fanout int
	// CheckpointRetries is how many times a failed per-kind checkpoint is
	// retried before the kind is given up.  Defaults to 2.
	CheckpointRetries int
	// Cache is the optional cross-session media cache.
	Cache *MediaCache
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Reconciler merges remote snapshots into the archive for one tenant.  It is
// safe for concurrent use; reconciliations of the same identity serialize on
// an in-process lock while different identities proceed in parallel.
type Reconciler struct {
	tenant     string
	store      Store
	resolver   *Resolver
	classifier *Classifier
	notifier   *Notifier
	ledger     *Ledger

	cache   *MediaCache
	locks   *identityLocks
	fanout  int
	retries int
	now     func() time.Time
}

// Report summarizes one identity reconciliation.  ItemErrors carries the
// integrity errors of individual items that were skipped while their
// siblings continued.
type Report struct {
	IdentityID int64
	SessionID  string
	Created    int
	Updated    int
	Media      int
	ItemErrors []error
}

// NewReconciler wires the engine together for one tenant.
func NewReconciler(tenant string, store Store, classifier *Classifier, notifier *Notifier, opts Options) *Reconciler {
	if opts.Fanout <= 0 {
		opts.Fanout = 8
	}
	if opts.CheckpointRetries <= 0 {
		opts.CheckpointRetries = 2
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Reconciler{
		tenant:     tenant,
		store:      store,
		resolver:   NewResolver(store.Identities()),
		classifier: classifier,
		notifier:   notifier,
		ledger:     NewLedger(store.Identities(), store.Subscriptions()),
		cache:      opts.Cache,
		locks:      newIdentityLocks(),
		fanout:     opts.Fanout,
		retries:    opts.CheckpointRetries,
		now:        opts.Now,
	}
}

// Resolver exposes identity resolution to callers of the engine.
func (r *Reconciler) Resolver() *Resolver { return r.resolver }

// Ledger exposes the subscription/buyer ledger.
func (r *Reconciler) Ledger() *Ledger { return r.ledger }

// ReconcileIdentity is the single entry point: it merges one remote snapshot
// into the archive, covering identity, profile, credentials, all content
// kinds, media, subscriptions, purchases and notification side effects.
// Content kinds commit at per-kind checkpoints in a fixed order (stories,
// posts, messages, mass messages); a failure in a later kind never rolls
// back an earlier one.
func (r *Reconciler) ReconcileIdentity(ctx context.Context, snap *snapshot.User) (*model.Identity, *Report, error) {
	release := r.locks.acquire(snap.ID)
	defer release()

	identity, err := r.loadOrCreateIdentity(ctx, snap)
	if err != nil {
		return nil, nil, err
	}
	report := &Report{IdentityID: identity.ID}

	hadSubscribers, hadCredentials, err := r.reconcileProfile(ctx, identity, snap)
	if err != nil {
		return nil, nil, err
	}
	if snap.Authed != nil {
		if err := r.reconcileCredential(ctx, identity, snap.Authed.Credential); err != nil {
			return nil, nil, err
		}
	}

	registry, err := LoadRegistry(ctx, r.store.Media(), r.cache, identity.ID)
	if err != nil {
		return nil, nil, err
	}
	report.SessionID = registry.SessionID

	assos, err := r.loadAssociations(ctx, identity.ID)
	if err != nil {
		return nil, nil, err
	}

	for _, kind := range model.Kinds() {
		items := snap.Content(kind)
		if len(items) == 0 {
			continue
		}
		if err := r.reconcileKind(ctx, identity, kind, items, registry, assos, report); err != nil {
			return nil, report, fmt.Errorf("reconcile %s checkpoint for %d: %w", kind, identity.ID, err)
		}
	}

	if snap.Authed != nil {
		if err := r.reconcileMassStats(ctx, identity, snap.Authed.MassStats); err != nil {
			return nil, report, err
		}
		for _, sub := range snap.Authed.Subscriptions {
			// The subscribed-to creator may never have been reconciled;
			// the edge needs an owner row to attach to.
			if _, err := r.ensureIdentity(ctx, sub.UserID); err != nil {
				return nil, report, err
			}
			if _, err := r.ledger.ReconcileSubscription(ctx, sub.UserID, identity.ID, sub); err != nil {
				return nil, report, err
			}
		}
		for _, purchase := range snap.Authed.Purchases {
			if err := r.reconcilePurchase(ctx, identity, purchase); err != nil {
				return nil, report, err
			}
		}
	}

	if r.notifier != nil && r.notifyWorthy(snap, identity, hadSubscribers, hadCredentials) {
		if err := r.notifier.MaybeNotify(ctx, identity.ID, model.NotifyNewPerformer, nil); err != nil {
			return nil, report, err
		}
	}

	if err := r.finalize(ctx, identity); err != nil {
		return nil, report, err
	}
	if len(report.ItemErrors) > 0 {
		log.Printf("reconcile %s/%d: session %s finished with %d skipped items",
			r.tenant, identity.ID, report.SessionID, len(report.ItemErrors))
	}
	return identity, report, nil
}

// loadOrCreateIdentity resolves the archive identity for the snapshot,
// creating it on first sight, and applies name/alias reconciliation plus the
// unconditional identity fields.
func (r *Reconciler) loadOrCreateIdentity(ctx context.Context, snap *snapshot.User) (*model.Identity, error) {
	identity, err := r.store.Identities().Get(ctx, snap.ID)
	if err != nil {
		return nil, fmt.Errorf("load identity %d: %w", snap.ID, err)
	}
	if identity == nil {
		identity = &model.Identity{
			ID:        snap.ID,
			Active:    true,
			CreatedAt: r.now().UTC(),
		}
	}
	if err := r.resolver.ReconcileName(ctx, identity, snap.Username); err != nil {
		return nil, err
	}
	identity.Balance = snap.Balance
	identity.Performer = snap.Performer
	identity.Active = true
	identity.JoinDate = snap.JoinDate
	if err := r.store.Identities().Save(ctx, identity); err != nil {
		return nil, fmt.Errorf("save identity %d: %w", identity.ID, err)
	}
	return identity, nil
}

// reconcileProfile overwrites the profile info from the snapshot and appends
// a history entry when anything changed.  It reports whether the identity
// already had subscribers and credentials before this run, which feeds the
// new-performer notification decision.
func (r *Reconciler) reconcileProfile(ctx context.Context, identity *model.Identity, snap *snapshot.User) (hadSubscribers, hadCredentials bool, err error) {
	ids := r.store.Identities()

	subscribers, err := r.store.Subscriptions().SubscriberIDs(ctx, identity.ID, false)
	if err != nil {
		return false, false, fmt.Errorf("load subscribers of %d: %w", identity.ID, err)
	}
	hadSubscribers = len(subscribers) > 0
	creds, err := ids.Credentials(ctx, identity.ID)
	if err != nil {
		return false, false, fmt.Errorf("load credentials of %d: %w", identity.ID, err)
	}
	hadCredentials = len(creds) > 0

	info, err := ids.Profile(ctx, identity.ID)
	if err != nil {
		return false, false, fmt.Errorf("load profile of %d: %w", identity.ID, err)
	}
	if info == nil {
		info = &model.ProfileInfo{UserID: identity.ID}
	}
	p := snap.Profile
	changed := info.Name != p.Name || info.Description != p.Description ||
		info.Price != p.Price || info.PostCount != p.PostCount ||
		info.MediaCount != p.MediaCount || info.SubscriberCount != p.SubscriberCount
	info.Name = p.Name
	info.Description = p.Description
	info.Price = p.Price
	info.Promotion = p.Promotion
	info.PostCount = p.PostCount
	info.MediaCount = p.MediaCount
	info.ImageCount = p.ImageCount
	info.VideoCount = p.VideoCount
	info.AudioCount = p.AudioCount
	info.ArchivedCount = p.ArchivedCount
	info.FavoritedCount = p.FavoritedCount
	info.SubscriberCount = p.SubscriberCount
	info.Location = p.Location
	info.Website = p.Website
	if err := ids.SaveProfile(ctx, info); err != nil {
		return false, false, fmt.Errorf("save profile of %d: %w", identity.ID, err)
	}
	if changed {
		histo := &model.ProfileSnapshot{
			UserID:          identity.ID,
			Name:            p.Name,
			Description:     p.Description,
			Price:           p.Price,
			PostCount:       p.PostCount,
			MediaCount:      p.MediaCount,
			SubscriberCount: p.SubscriberCount,
			Size:            info.Size,
			CreatedAt:       r.now().UTC(),
		}
		if err := ids.AppendProfileSnapshot(ctx, histo); err != nil {
			return false, false, fmt.Errorf("append profile history of %d: %w", identity.ID, err)
		}
	}
	return hadSubscribers, hadCredentials, nil
}

// reconcileCredential matches the snapshot's session material against stored
// credentials by cookie/authorization equality, updating the match or
// appending a new credential.  History is preserved for audit.
func (r *Reconciler) reconcileCredential(ctx context.Context, identity *model.Identity, info snapshot.CredentialInfo) error {
	ids := r.store.Identities()
	creds, err := ids.Credentials(ctx, identity.ID)
	if err != nil {
		return fmt.Errorf("load credentials of %d: %w", identity.ID, err)
	}
	var match *model.Credential
	for i := range creds {
		c := &creds[i]
		if info.Cookie != nil && c.Cookie != nil && *c.Cookie == *info.Cookie {
			match = c
			break
		}
		if info.Authorization != nil && c.Authorization != nil && *c.Authorization == *info.Authorization {
			match = c
			break
		}
	}
	if match == nil {
		match = &model.Credential{UserID: identity.ID}
	}
	match.Cookie = info.Cookie
	match.Authorization = info.Authorization
	match.UserAgent = info.UserAgent
	match.Email = info.Email
	match.Active = info.Valid && !sessionExpired(info, r.now())
	if err := ids.SaveCredential(ctx, match); err != nil {
		return fmt.Errorf("save credential of %d: %w", identity.ID, err)
	}
	return nil
}

type assoKey struct {
	ref     model.ContentRef
	mediaID int64
}

func (r *Reconciler) loadAssociations(ctx context.Context, userID int64) (map[assoKey]struct{}, error) {
	existing, err := r.store.Content().Associations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load associations of %d: %w", userID, err)
	}
	assos := make(map[assoKey]struct{}, len(existing))
	for _, a := range existing {
		assos[assoKey{ref: a.Content, mediaID: a.MediaID}] = struct{}{}
	}
	return assos, nil
}

// itemPlan is the outcome of transforming one snapshot item, produced by the
// parallel fan-out and applied by the serialized commit.
type itemPlan struct {
	item    *model.ContentItem
	created bool
	snap    snapshot.Content
	err     error
}

// reconcileKind transforms all items of one kind with bounded parallel
// fan-out, then applies the surviving plans in snapshot order inside one
// checkpoint transaction.  Item-level integrity errors skip the item and
// are collected on the report; transient checkpoint failures retry the
// whole (idempotent) checkpoint.
func (r *Reconciler) reconcileKind(ctx context.Context, identity *model.Identity, kind model.ContentKind, items []snapshot.Content, registry *Registry, assos map[assoKey]struct{}, report *Report) error {
	plans := make([]itemPlan, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.fanout)
	for i := range items {
		g.Go(func() error {
			plans[i] = r.planItem(gctx, identity, kind, items[i])
			return nil
		})
	}
	_ = g.Wait()

	commit := func(ctx context.Context) error {
		for i := range plans {
			plan := &plans[i]
			if plan.err != nil {
				continue
			}
			if err := r.commitItem(ctx, plan, registry, assos); err != nil {
				return err
			}
		}
		return nil
	}
	if err := r.checkpoint(ctx, kind.String(), commit); err != nil {
		return err
	}
	registry.FlushCache(ctx)
	for i := range plans {
		if plans[i].err != nil {
			log.Printf("reconcile %s/%d: skipping %s %d: %v",
				r.tenant, identity.ID, kind, items[i].ID, plans[i].err)
			report.ItemErrors = append(report.ItemErrors, plans[i].err)
			continue
		}
		if plans[i].created {
			report.Created++
		} else {
			report.Updated++
		}
		report.Media += len(plans[i].snap.Media)
	}
	return nil
}

// planItem merges one snapshot item with the stored content item, enforcing
// the receiver invariant and running paid classification.  It performs reads
// only; writes happen in commitItem under the checkpoint transaction.
func (r *Reconciler) planItem(ctx context.Context, identity *model.Identity, kind model.ContentKind, snap snapshot.Content) itemPlan {
	ref := model.ContentRef{Kind: kind, ID: snap.ID}
	existing, err := r.store.Content().Get(ctx, ref)
	if err != nil {
		return itemPlan{err: fmt.Errorf("load %s %d: %w", kind, snap.ID, err), snap: snap}
	}
	item := existing
	created := false
	if item == nil {
		created = true
		item = &model.ContentItem{Kind: kind, ID: snap.ID, UserID: identity.ID}
	}

	if kind == model.KindMessage {
		if item.ReceiverID != nil && snap.ReceiverID != nil &&
			*item.ReceiverID != *snap.ReceiverID && *item.ReceiverID != snap.AuthorID {
			return itemPlan{
				err:  &ReceiverMismatchError{MessageID: snap.ID, Stored: *item.ReceiverID, Incoming: *snap.ReceiverID},
				snap: snap,
			}
		}
		if item.ReceiverID == nil {
			item.ReceiverID = snap.ReceiverID
		}
		// The queue id comes from the originating mass message only when the
		// snapshot itself is mass-message-derived.
		if snap.MassDerived {
			item.QueueID = snap.QueueID
		}
	}

	item.Text = snap.Text
	item.Price = snap.Price
	item.MediaCount = snap.MediaCount
	if item.MediaCount == 0 {
		item.MediaCount = len(snap.Media)
	}
	item.Deleted = snap.Deleted
	item.Archived = snap.Archived
	item.ExpiresAt = snap.ExpiresAt
	item.CreatedAt = snap.CreatedAt

	if kind == model.KindPost || kind == model.KindMessage {
		item.Paid = r.classifier.Classify(item.Paid, snap)
	}
	return itemPlan{item: item, created: created, snap: snap}
}

// commitItem persists one planned item: the content row, its media (in
// snapshot order), the media associations and, when a local filename is
// resolvable and an association exists to hang it on, the filepath.
func (r *Reconciler) commitItem(ctx context.Context, plan *itemPlan, registry *Registry, assos map[assoKey]struct{}) error {
	item := plan.item
	if err := r.store.Content().Save(ctx, item); err != nil {
		return fmt.Errorf("save %s %d: %w", item.Kind, item.ID, err)
	}
	for _, ms := range plan.snap.Media {
		media, err := registry.Upsert(ctx, ms)
		if err != nil {
			return err
		}
		if media == nil {
			continue
		}
		key := assoKey{ref: item.Ref(), mediaID: media.ID}
		if _, ok := assos[key]; !ok {
			asso := model.ContentMediaAssociation{Content: item.Ref(), MediaID: media.ID}
			if err := r.store.Content().AddAssociation(ctx, asso); err != nil {
				return fmt.Errorf("associate media %d with %s %d: %w", media.ID, item.Kind, item.ID, err)
			}
			assos[key] = struct{}{}
		}
		if ms.Filename != "" {
			if fp := registry.FilePaths().Find(item.Ref(), media.ID); fp == nil {
				fp := &model.FilePath{
					Content: item.Ref(),
					MediaID: media.ID,
					Path:    ms.Filename,
					Preview: ms.Preview,
				}
				if err := registry.AttachFilePath(ctx, fp); err != nil {
					return err
				}
			}
		}
	}
	for _, cs := range plan.snap.Comments {
		ok, err := r.store.Content().HasComment(ctx, cs.ID)
		if err != nil {
			return fmt.Errorf("load comment %d: %w", cs.ID, err)
		}
		if ok {
			continue
		}
		comment := &model.Comment{
			ID:         cs.ID,
			PostID:     item.ID,
			ReplyID:    cs.ReplyID,
			UserID:     cs.UserID,
			Text:       cs.Text,
			LikesCount: cs.LikesCount,
			CreatedAt:  cs.CreatedAt,
		}
		if err := r.store.Content().AddComment(ctx, comment); err != nil {
			return fmt.Errorf("save comment %d: %w", cs.ID, err)
		}
	}
	return nil
}

// reconcileMassStats upserts performer-side mass message statistics and
// makes sure a mass message row exists for each.
func (r *Reconciler) reconcileMassStats(ctx context.Context, identity *model.Identity, stats []snapshot.MassMessageStat) error {
	for _, st := range stats {
		stat := &model.MassMessageStat{
			ID:         st.ID,
			UserID:     identity.ID,
			MediaCount: st.MediaCount,
			BuyerCount: st.BuyerCount,
			SentCount:  st.SentCount,
			ViewCount:  st.ViewCount,
		}
		if err := r.store.Content().SaveMassStat(ctx, stat); err != nil {
			return fmt.Errorf("save mass message stat %d: %w", st.ID, err)
		}
		ref := model.ContentRef{Kind: model.KindMassMessage, ID: st.ID}
		existing, err := r.store.Content().Get(ctx, ref)
		if err != nil {
			return fmt.Errorf("load mass message %d: %w", st.ID, err)
		}
		if existing == nil {
			statID := st.ID
			item := &model.ContentItem{
				Kind:        model.KindMassMessage,
				ID:          st.ID,
				UserID:      identity.ID,
				Text:        st.Text,
				Price:       st.Price,
				MediaCount:  st.MediaCount,
				StatisticID: &statID,
				ExpiresAt:   st.ExpiresAt,
				CreatedAt:   st.CreatedAt,
			}
			if err := r.store.Content().Save(ctx, item); err != nil {
				return fmt.Errorf("save mass message %d: %w", st.ID, err)
			}
		} else if existing.StatisticID == nil {
			statID := st.ID
			existing.StatisticID = &statID
			if err := r.store.Content().Save(ctx, existing); err != nil {
				return fmt.Errorf("save mass message %d: %w", st.ID, err)
			}
		}
	}
	return nil
}

// ensureIdentity returns the identity with the given id, creating a
// placeholder performer row when the archive has never seen it.  The
// placeholder name is replaced by the real one the first time the creator
// itself is reconciled.
func (r *Reconciler) ensureIdentity(ctx context.Context, id int64) (*model.Identity, error) {
	identity, err := r.store.Identities().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load identity %d: %w", id, err)
	}
	if identity != nil {
		return identity, nil
	}
	identity = &model.Identity{
		ID:        id,
		Username:  model.PlaceholderName(id),
		Performer: true,
		Active:    true,
		CreatedAt: r.now().UTC(),
	}
	if err := r.store.Identities().Save(ctx, identity); err != nil {
		return nil, fmt.Errorf("save identity %d: %w", id, err)
	}
	return identity, nil
}

// reconcilePurchase records a purchase edge exactly once and emits the
// paid-purchase notification on first sight.  The supplier identity is
// created as a placeholder when the archive has never seen it.
func (r *Reconciler) reconcilePurchase(ctx context.Context, buyer *model.Identity, purchase snapshot.Purchase) error {
	supplier, err := r.ensureIdentity(ctx, purchase.SupplierID)
	if err != nil {
		return err
	}
	recorded, err := r.ledger.RecordPurchase(ctx, supplier.ID, buyer.ID)
	if err != nil {
		return err
	}
	if recorded && r.notifier != nil {
		observer := buyer.ID
		if err := r.notifier.MaybeNotify(ctx, supplier.ID, model.NotifyNewPaidContent, &observer); err != nil {
			return err
		}
	}
	return nil
}

// notifyWorthy decides whether this reconciliation should raise the
// new-performer notification: a performer with anything to archive that is
// either new to the archive, still has no subscribers, or just connected its
// first credential.
func (r *Reconciler) notifyWorthy(snap *snapshot.User, identity *model.Identity, hadSubscribers, hadCredentials bool) bool {
	if !snap.Performer {
		return false
	}
	archivable := snap.Profile.MediaCount > 0 || snap.Profile.PostCount > 0
	if !archivable {
		return false
	}
	if identity.LastCheckedAt == nil {
		return true
	}
	if !hadSubscribers {
		return true
	}
	return snap.Authed != nil && !hadCredentials
}

// finalize rolls the archived-size aggregate into the profile and stamps the
// identity's last-checked time.
func (r *Reconciler) finalize(ctx context.Context, identity *model.Identity) error {
	size, err := r.store.Media().SizeSum(ctx, identity.ID)
	if err != nil {
		return fmt.Errorf("sum media size of %d: %w", identity.ID, err)
	}
	info, err := r.store.Identities().Profile(ctx, identity.ID)
	if err != nil {
		return fmt.Errorf("load profile of %d: %w", identity.ID, err)
	}
	if info != nil && info.Size != size {
		info.Size = size
		if err := r.store.Identities().SaveProfile(ctx, info); err != nil {
			return fmt.Errorf("save profile of %d: %w", identity.ID, err)
		}
	}
	now := r.now().UTC()
	identity.LastCheckedAt = &now
	if err := r.store.Identities().Save(ctx, identity); err != nil {
		return fmt.Errorf("save identity %d: %w", identity.ID, err)
	}
	return nil
}

// checkpoint commits fn as one transaction, retrying transient failures.
// Checkpoint bodies are idempotent (all writes are natural-id upserts), so a
// retry redoes the kind from the top safely.
func (r *Reconciler) checkpoint(ctx context.Context, label string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 250 * time.Millisecond):
			}
			log.Printf("reconcile %s: retrying %s checkpoint (attempt %d): %v", r.tenant, label, attempt+1, err)
		}
		err = r.store.Checkpoint(ctx, fn)
		if err == nil {
			return nil
		}
	}
	return err
}
