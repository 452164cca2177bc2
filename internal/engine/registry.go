package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/DATAHOARDERS/UltimaScraperDB/internal/model"
	"github.com/DATAHOARDERS/UltimaScraperDB/internal/snapshot"
)

// Registry is the per-reconciliation-session media cache for one identity.
// It is primed from archive state at session start and discarded at session
// end; it is never the source of truth.  An optional Redis-backed cache may
// serve individual misses across sessions, but a cache miss always falls
// back to storage.
type Registry struct {
	SessionID string

	ownerID int64
	store   MediaStore
	cache   *MediaCache

	medias    map[int64]*model.Media
	filepaths *FilePathManager

	// pending holds media merged inside the current checkpoint transaction.
	// They reach the cross-session cache only after the checkpoint commits;
	// a rolled-back merge must never be served to other sessions.
	pending map[int64]*model.Media
}

// LoadRegistry builds a registry for one identity, priming the media map and
// the filepath index from the archive.
func LoadRegistry(ctx context.Context, store MediaStore, cache *MediaCache, ownerID int64) (*Registry, error) {
	r := &Registry{
		SessionID: uuid.NewString(),
		ownerID:   ownerID,
		store:     store,
		cache:     cache,
		medias:    make(map[int64]*model.Media),
		pending:   make(map[int64]*model.Media),
	}
	medias, err := store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("prime media registry for %d: %w", ownerID, err)
	}
	for i := range medias {
		m := medias[i]
		r.medias[m.ID] = &m
	}
	fps, err := store.FilePaths(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("prime filepath index for %d: %w", ownerID, err)
	}
	r.filepaths = NewFilePathManager(fps)
	return r, nil
}

// Get returns the media with the given id, or nil when unknown.  Lookup
// order is session map, cross-session cache, storage; hits from the latter
// two are pulled into the session map.
func (r *Registry) Get(ctx context.Context, mediaID int64) (*model.Media, error) {
	if m, ok := r.medias[mediaID]; ok {
		return m, nil
	}
	if r.cache != nil {
		if m, ok := r.cache.Get(ctx, mediaID); ok {
			r.medias[m.ID] = m
			return m, nil
		}
	}
	m, err := r.store.Get(ctx, mediaID)
	if err != nil {
		return nil, err
	}
	if m != nil {
		r.medias[m.ID] = m
	}
	return m, nil
}

// Upsert merges one remote media reference into the archive:
//   - the first observation creates the row;
//   - size only moves up, never down;
//   - preview URLs never overwrite a known URL, non-preview URLs always win;
//   - created_at is corrected to the earliest known timestamp;
//   - the preview flag clears once a non-preview rendition is seen.
//
// The merged entity is persisted through the media store (joining any
// checkpoint transaction on ctx) and returned.
func (r *Registry) Upsert(ctx context.Context, snap snapshot.Media) (*model.Media, error) {
	if snap.URL == "" {
		// A media reference without a resolvable URL carries nothing to
		// archive yet.
		if m, ok := r.medias[snap.ID]; ok {
			return m, nil
		}
		return nil, nil
	}
	existing, err := r.Get(ctx, snap.ID)
	if err != nil {
		return nil, fmt.Errorf("media %d: %w", snap.ID, err)
	}
	m := existing
	if m == nil {
		url := snap.URL
		m = &model.Media{
			ID:        snap.ID,
			UserID:    r.ownerID,
			URL:       &url,
			Size:      snap.Size,
			Category:  snap.Category,
			Preview:   snap.Preview,
			CreatedAt: snap.CreatedAt,
		}
		r.medias[m.ID] = m
	} else {
		if snap.Size >= m.Size {
			m.Size = snap.Size
		}
		if !snap.Preview {
			url := snap.URL
			m.URL = &url
			m.Preview = false
		} else if m.URL == nil {
			url := snap.URL
			m.URL = &url
		}
		if m.Category == "" {
			m.Category = snap.Category
		}
		m.CreatedAt = earliest(m.CreatedAt, snap.CreatedAt)
	}
	if err := r.store.Save(ctx, m); err != nil {
		return nil, fmt.Errorf("save media %d: %w", m.ID, err)
	}
	if r.cache != nil {
		r.pending[m.ID] = m
	}
	return m, nil
}

// FlushCache pushes media merged since the last flush into the cross-session
// cache.  Callers invoke it after a checkpoint commits; until then the
// merged state only exists in the session and the open transaction.
func (r *Registry) FlushCache(ctx context.Context) {
	for id, m := range r.pending {
		r.cache.Put(ctx, m)
		delete(r.pending, id)
	}
}

// FilePaths returns the session's filepath index.
func (r *Registry) FilePaths() *FilePathManager {
	return r.filepaths
}

// AttachFilePath records a resolved storage location for a media under one
// content association and indexes it in the session.
func (r *Registry) AttachFilePath(ctx context.Context, fp *model.FilePath) error {
	if err := r.store.AddFilePath(ctx, fp); err != nil {
		return fmt.Errorf("save filepath %q: %w", fp.Path, err)
	}
	r.filepaths.Add(fp)
	return nil
}

// earliest returns the earlier of two optional timestamps; previews often
// surface before the canonical item, so min semantics apply once both are
// present.
func earliest(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if b.Before(*a) {
		return b
	}
	return a
}

// FilePathManager indexes known filepaths by id and by basename so later
// reconciliation can map a bare filename back to its media/content pair.
type FilePathManager struct {
	byID   map[int64]*model.FilePath
	byName map[string]*model.FilePath
}

// NewFilePathManager builds the index from existing filepath rows.
func NewFilePathManager(fps []model.FilePath) *FilePathManager {
	m := &FilePathManager{
		byID:   make(map[int64]*model.FilePath, len(fps)),
		byName: make(map[string]*model.FilePath, len(fps)),
	}
	for i := range fps {
		m.Add(&fps[i])
	}
	return m
}

// Add indexes one filepath.
func (m *FilePathManager) Add(fp *model.FilePath) {
	if fp.ID != 0 {
		m.byID[fp.ID] = fp
	}
	m.byName[path.Base(fp.Path)] = fp
}

// ResolveID returns the filepath with the given row id, or nil.
func (m *FilePathManager) ResolveID(id int64) *model.FilePath {
	return m.byID[id]
}

// ResolveName returns the filepath whose basename matches, or nil.
func (m *FilePathManager) ResolveName(name string) *model.FilePath {
	return m.byName[path.Base(name)]
}

// Find returns the filepath recorded for a (content, media) pair, or nil.
func (m *FilePathManager) Find(ref model.ContentRef, mediaID int64) *model.FilePath {
	for _, fp := range m.byName {
		if fp.MediaID == mediaID && fp.Content == ref {
			return fp
		}
	}
	return nil
}

// MediaCache is the bounded cross-session media cache backed by Redis.  It
// is purely a performance optimization: entries expire, writes are
// best-effort and a miss always falls back to storage.  Media ids are only
// unique within one site, so every key carries the site name; one Redis
// instance may safely serve all tenants.
type MediaCache struct {
	client *redis.Client
	prefix string
	site   string
	ttl    time.Duration
}

// NewMediaCache wraps a Redis client for one site.  A nil client disables
// the cache; the registry then reads straight from storage.
func NewMediaCache(client *redis.Client, prefix, site string, ttl time.Duration) *MediaCache {
	if client == nil {
		return nil
	}
	if prefix == "" {
		prefix = "media"
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &MediaCache{client: client, prefix: prefix, site: site, ttl: ttl}
}

func (c *MediaCache) key(mediaID int64) string {
	return c.prefix + ":" + c.site + ":" + strconv.FormatInt(mediaID, 10)
}

// Get returns the cached media, if any.  Errors are treated as misses.
func (c *MediaCache) Get(ctx context.Context, mediaID int64) (*model.Media, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, c.key(mediaID)).Bytes()
	if err != nil {
		return nil, false
	}
	var m model.Media
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, false
	}
	return &m, true
}

// Put caches the media with the configured TTL.  Failures are ignored.
func (c *MediaCache) Put(ctx context.Context, m *model.Media) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.key(m.ID), raw, c.ttl).Err()
}
