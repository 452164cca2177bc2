package engine_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/DATAHOARDERS/UltimaScraperDB/internal/engine"
	"github.com/DATAHOARDERS/UltimaScraperDB/internal/model"
)

// memStore is an in-memory engine.Store used by the engine tests.  It keeps
// the same nil-on-absence and upsert semantics as the MySQL repositories.
type memStore struct {
	identities map[int64]model.Identity
	aliases    []model.Alias
	profiles   map[int64]model.ProfileInfo
	history    []model.ProfileSnapshot
	creds      map[int64][]model.Credential

	content   map[model.ContentRef]model.ContentItem
	assos     []model.ContentMediaAssociation
	comments  map[int64]model.Comment
	massStats map[int64]model.MassMessageStat

	medias    map[int64]model.Media
	filepaths []model.FilePath

	subs      map[[2]int64]model.SubscriptionEdge
	purchases map[[2]int64]bool

	jobs          []model.Job
	notifications []model.Notification

	seq int64

	checkpoints     int
	failCheckpoints int // fail the first N checkpoint commits
}

func newMemStore() *memStore {
	return &memStore{
		identities: map[int64]model.Identity{},
		profiles:   map[int64]model.ProfileInfo{},
		creds:      map[int64][]model.Credential{},
		content:    map[model.ContentRef]model.ContentItem{},
		comments:   map[int64]model.Comment{},
		massStats:  map[int64]model.MassMessageStat{},
		medias:     map[int64]model.Media{},
		subs:       map[[2]int64]model.SubscriptionEdge{},
		purchases:  map[[2]int64]bool{},
	}
}

func (s *memStore) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *memStore) Identities() engine.IdentityStore        { return (*memIdentities)(s) }
func (s *memStore) Content() engine.ContentStore            { return (*memContent)(s) }
func (s *memStore) Media() engine.MediaStore                { return (*memMedia)(s) }
func (s *memStore) Subscriptions() engine.SubscriptionStore { return (*memSubs)(s) }
func (s *memStore) Jobs() engine.JobStore                   { return (*memJobs)(s) }
func (s *memStore) Notifications() engine.NotificationStore { return (*memNotifications)(s) }

func (s *memStore) Checkpoint(ctx context.Context, fn func(ctx context.Context) error) error {
	s.checkpoints++
	if s.failCheckpoints > 0 {
		s.failCheckpoints--
		return errors.New("checkpoint failed")
	}
	return fn(ctx)
}

type memIdentities memStore

func (s *memIdentities) Get(_ context.Context, id int64) (*model.Identity, error) {
	if u, ok := s.identities[id]; ok {
		cp := u
		return &cp, nil
	}
	return nil, nil
}

func (s *memIdentities) GetByUsername(_ context.Context, username string) (*model.Identity, error) {
	for _, u := range s.identities {
		if u.Username == username {
			cp := u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memIdentities) Save(_ context.Context, u *model.Identity) error {
	s.identities[u.ID] = *u
	return nil
}

func (s *memIdentities) Aliases(_ context.Context, userID int64) ([]model.Alias, error) {
	var out []model.Alias
	for _, a := range s.aliases {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memIdentities) AliasOwners(_ context.Context, username string) ([]int64, error) {
	var out []int64
	for _, a := range s.aliases {
		if a.Username == username {
			out = append(out, a.UserID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *memIdentities) AddAlias(_ context.Context, userID int64, username string) error {
	for _, a := range s.aliases {
		if a.UserID == userID && a.Username == username {
			return nil
		}
	}
	s.aliases = append(s.aliases, model.Alias{ID: (*memStore)(s).nextID(), UserID: userID, Username: username})
	return nil
}

func (s *memIdentities) Profile(_ context.Context, userID int64) (*model.ProfileInfo, error) {
	if p, ok := s.profiles[userID]; ok {
		cp := p
		return &cp, nil
	}
	return nil, nil
}

func (s *memIdentities) SaveProfile(_ context.Context, p *model.ProfileInfo) error {
	if p.ID == 0 {
		p.ID = (*memStore)(s).nextID()
	}
	s.profiles[p.UserID] = *p
	return nil
}

func (s *memIdentities) AppendProfileSnapshot(_ context.Context, h *model.ProfileSnapshot) error {
	h.ID = (*memStore)(s).nextID()
	s.history = append(s.history, *h)
	return nil
}

func (s *memIdentities) Credentials(_ context.Context, userID int64) ([]model.Credential, error) {
	return append([]model.Credential(nil), s.creds[userID]...), nil
}

func (s *memIdentities) SaveCredential(_ context.Context, c *model.Credential) error {
	if c.ID == 0 {
		c.ID = (*memStore)(s).nextID()
		s.creds[c.UserID] = append(s.creds[c.UserID], *c)
		return nil
	}
	for i, existing := range s.creds[c.UserID] {
		if existing.ID == c.ID {
			s.creds[c.UserID][i] = *c
			return nil
		}
	}
	return errors.New("credential not found")
}

type memContent memStore

func (s *memContent) Get(_ context.Context, ref model.ContentRef) (*model.ContentItem, error) {
	if item, ok := s.content[ref]; ok {
		cp := item
		return &cp, nil
	}
	return nil, nil
}

func (s *memContent) Save(_ context.Context, item *model.ContentItem) error {
	s.content[item.Ref()] = *item
	return nil
}

func (s *memContent) Associations(_ context.Context, userID int64) ([]model.ContentMediaAssociation, error) {
	var out []model.ContentMediaAssociation
	for _, a := range s.assos {
		if m, ok := s.medias[a.MediaID]; ok && m.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memContent) AddAssociation(_ context.Context, asso model.ContentMediaAssociation) error {
	for _, a := range s.assos {
		if a.Content == asso.Content && a.MediaID == asso.MediaID {
			return nil
		}
	}
	asso.ID = (*memStore)(s).nextID()
	s.assos = append(s.assos, asso)
	return nil
}

func (s *memContent) HasComment(_ context.Context, id int64) (bool, error) {
	_, ok := s.comments[id]
	return ok, nil
}

func (s *memContent) AddComment(_ context.Context, c *model.Comment) error {
	s.comments[c.ID] = *c
	return nil
}

func (s *memContent) SaveMassStat(_ context.Context, st *model.MassMessageStat) error {
	s.massStats[st.ID] = *st
	return nil
}

type memMedia memStore

func (s *memMedia) Get(_ context.Context, id int64) (*model.Media, error) {
	if m, ok := s.medias[id]; ok {
		cp := m
		return &cp, nil
	}
	return nil, nil
}

func (s *memMedia) ListByOwner(_ context.Context, userID int64) ([]model.Media, error) {
	var out []model.Media
	for _, m := range s.medias {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memMedia) Save(_ context.Context, m *model.Media) error {
	s.medias[m.ID] = *m
	return nil
}

func (s *memMedia) FilePaths(_ context.Context, userID int64) ([]model.FilePath, error) {
	var out []model.FilePath
	for _, fp := range s.filepaths {
		if m, ok := s.medias[fp.MediaID]; ok && m.UserID == userID {
			out = append(out, fp)
		}
	}
	return out, nil
}

func (s *memMedia) AddFilePath(_ context.Context, fp *model.FilePath) error {
	for _, existing := range s.filepaths {
		if existing.Content == fp.Content && existing.MediaID == fp.MediaID {
			return nil
		}
	}
	fp.ID = (*memStore)(s).nextID()
	s.filepaths = append(s.filepaths, *fp)
	return nil
}

func (s *memMedia) SizeSum(_ context.Context, userID int64) (int64, error) {
	var sum int64
	for _, m := range s.medias {
		if m.UserID == userID {
			sum += m.Size
		}
	}
	return sum, nil
}

func (s *memMedia) CountByCategory(_ context.Context, userID int64, category string) (int, error) {
	n := 0
	for _, m := range s.medias {
		if m.UserID != userID || m.Category != category {
			continue
		}
		for _, fp := range s.filepaths {
			if fp.MediaID == m.ID {
				n++
				break
			}
		}
	}
	return n, nil
}

func (s *memMedia) PaidMedia(_ context.Context, userID int64) ([]model.Media, error) {
	var out []model.Media
	for _, fp := range s.filepaths {
		m, ok := s.medias[fp.MediaID]
		if !ok || m.UserID != userID || m.Preview || fp.Preview {
			continue
		}
		if fp.Content.Kind != model.KindPost && fp.Content.Kind != model.KindMessage {
			continue
		}
		item, ok := s.content[fp.Content]
		if !ok || item.Price <= 0 || item.Paid != model.PaidYes {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memSubs memStore

func (s *memSubs) Get(_ context.Context, ownerID, subscriberID int64) (*model.SubscriptionEdge, error) {
	if e, ok := s.subs[[2]int64{ownerID, subscriberID}]; ok {
		cp := e
		return &cp, nil
	}
	return nil, nil
}

func (s *memSubs) Save(_ context.Context, e *model.SubscriptionEdge) error {
	// Mirrors the schema: both ends of the edge reference the users table.
	if _, ok := s.identities[e.UserID]; !ok {
		return fmt.Errorf("subscription owner %d: foreign key violation", e.UserID)
	}
	if _, ok := s.identities[e.SubscriberID]; !ok {
		return fmt.Errorf("subscriber %d: foreign key violation", e.SubscriberID)
	}
	key := [2]int64{e.UserID, e.SubscriberID}
	if existing, ok := s.subs[key]; ok {
		e.ID = existing.ID
		e.CreatedAt = existing.CreatedAt
	} else {
		e.ID = (*memStore)(s).nextID()
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now().UTC()
		}
	}
	s.subs[key] = *e
	return nil
}

func (s *memSubs) SubscriberIDs(_ context.Context, ownerID int64, unexpiredOnly bool) ([]int64, error) {
	var out []int64
	for key, e := range s.subs {
		if key[0] != ownerID {
			continue
		}
		if unexpiredOnly && !e.ExpiresAt.After(time.Now()) {
			continue
		}
		out = append(out, key[1])
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *memSubs) HasPurchase(_ context.Context, supplierID, buyerID int64) (bool, error) {
	return s.purchases[[2]int64{supplierID, buyerID}], nil
}

func (s *memSubs) AddPurchase(_ context.Context, supplierID, buyerID int64) error {
	s.purchases[[2]int64{supplierID, buyerID}] = true
	return nil
}

func (s *memSubs) BuyerIDs(_ context.Context, supplierID int64) ([]int64, error) {
	var out []int64
	for key := range s.purchases {
		if key[0] == supplierID {
			out = append(out, key[1])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

type memJobs memStore

func (s *memJobs) Find(_ context.Context, siteID, userID int64, category string) (*model.Job, error) {
	for _, j := range s.jobs {
		if j.SiteID == siteID && j.UserID == userID && j.Category == category {
			cp := j
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memJobs) Save(_ context.Context, j *model.Job) error {
	if j.ID == 0 {
		j.ID = (*memStore)(s).nextID()
		s.jobs = append(s.jobs, *j)
		return nil
	}
	for i, existing := range s.jobs {
		if existing.ID == j.ID {
			s.jobs[i] = *j
			return nil
		}
	}
	return errors.New("job not found")
}

func (s *memJobs) List(_ context.Context, siteID int64, f engine.JobFilter) ([]model.Job, error) {
	var out []model.Job
	for _, j := range s.jobs {
		if j.SiteID != siteID {
			continue
		}
		if f.ServerID != 0 && j.ServerID != f.ServerID {
			continue
		}
		if f.UserID != 0 && j.UserID != f.UserID {
			continue
		}
		if f.Category != "" && j.Category != f.Category {
			continue
		}
		if f.Priority != nil && j.Priority != *f.Priority {
			continue
		}
		if f.Active != nil && j.Active != *f.Active {
			continue
		}
		out = append(out, j)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority
		}
		return out[i].ID < out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *memJobs) Complete(_ context.Context, jobID int64, at time.Time) error {
	for i, j := range s.jobs {
		if j.ID == jobID {
			s.jobs[i].Active = false
			s.jobs[i].CompletedAt = &at
			return nil
		}
	}
	return errors.New("job not found")
}

type memNotifications memStore

func sameObserver(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *memNotifications) Find(_ context.Context, subjectID int64, category string, observerID *int64) (*model.Notification, error) {
	for _, n := range s.notifications {
		if n.UserID == subjectID && n.Category == category && sameObserver(n.ObserverID, observerID) {
			cp := n
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memNotifications) ListBySubject(_ context.Context, subjectID int64, category string) ([]model.Notification, error) {
	var out []model.Notification
	for _, n := range s.notifications {
		if n.UserID == subjectID && n.Category == category {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *memNotifications) Save(_ context.Context, n *model.Notification) error {
	if n.ID == 0 {
		n.ID = (*memStore)(s).nextID()
		if n.CreatedAt.IsZero() {
			n.CreatedAt = time.Now().UTC()
		}
		s.notifications = append(s.notifications, *n)
		return nil
	}
	for i, existing := range s.notifications {
		if existing.ID == n.ID {
			s.notifications[i] = *n
			return nil
		}
	}
	return errors.New("notification not found")
}

func (s *memNotifications) ListUnsent(_ context.Context, channel string, page, limit int) ([]model.Notification, error) {
	var out []model.Notification
	for _, n := range s.notifications {
		sent := n.SentDiscord
		if channel == model.ChannelTelegram {
			sent = n.SentTelegram
		}
		if !sent {
			out = append(out, n)
		}
	}
	if limit > 0 {
		start := (page - 1) * limit
		if start > len(out) {
			start = len(out)
		}
		end := start + limit
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	return out, nil
}

func (s *memNotifications) MarkSent(_ context.Context, id int64, channel string) error {
	for i, n := range s.notifications {
		if n.ID == id {
			switch channel {
			case model.ChannelDiscord:
				s.notifications[i].SentDiscord = true
			case model.ChannelTelegram:
				s.notifications[i].SentTelegram = true
			}
			return nil
		}
	}
	return errors.New("notification not found")
}
