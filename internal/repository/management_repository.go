package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/DATAHOARDERS/UltimaScraperDB/internal/model"
	"github.com/DATAHOARDERS/UltimaScraperDB/internal/utils"
)

// ManagementStore covers the cross-tenant management schema: the site
// registry, download servers and registered hosts.
type ManagementStore struct{ db *sql.DB }

// NewManagementStore returns a ManagementStore bound to the management
// database.
func NewManagementStore(db *sql.DB) *ManagementStore { return &ManagementStore{db: db} }

// GetByDBName fetches a site by its tenant database name.
func (r *ManagementStore) GetByDBName(ctx context.Context, dbName string) (*model.Site, error) {
	var s model.Site
	err := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, name, db_name, url, active, size, user_id_checkpoint FROM sites WHERE db_name=? LIMIT 1`,
		dbName).Scan(&s.ID, &s.Name, &s.DBName, &s.URL, &s.Active, &s.Size, &s.UserIDCheckpoint)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Save upserts a site, keyed by db_name.
func (r *ManagementStore) Save(ctx context.Context, s *model.Site) error {
	const query = `INSERT INTO sites (name, db_name, url, active, size, user_id_checkpoint)
VALUES (?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  name=VALUES(name), url=VALUES(url), active=VALUES(active),
  size=VALUES(size), user_id_checkpoint=VALUES(user_id_checkpoint)`
	res, err := q(ctx, r.db).ExecContext(ctx, query,
		s.Name, s.DBName, s.URL, s.Active, s.Size, s.UserIDCheckpoint)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil && id > 0 {
		s.ID = id
	}
	return nil
}

// ListSites lists all registered sites, id ascending.
func (r *ManagementStore) ListSites(ctx context.Context) ([]model.Site, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT id, name, db_name, url, active, size, user_id_checkpoint FROM sites ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Site
	for rows.Next() {
		var s model.Site
		if err := rows.Scan(&s.ID, &s.Name, &s.DBName, &s.URL, &s.Active, &s.Size, &s.UserIDCheckpoint); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// EnsureDefaultSites seeds the site registry on first boot.
func (r *ManagementStore) EnsureDefaultSites(ctx context.Context) error {
	defaults := []model.Site{
		{Name: "OnlyFans", DBName: "onlyfans", URL: "https://onlyfans.com", Active: true},
		{Name: "Fansly", DBName: "fansly", URL: "https://fansly.com", Active: true},
	}
	for i := range defaults {
		existing, err := r.GetByDBName(ctx, defaults[i].DBName)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if err := r.Save(ctx, &defaults[i]); err != nil {
			return err
		}
	}
	return nil
}

// GetServer fetches a download server by name.
func (r *ManagementStore) GetServer(ctx context.Context, name string) (*model.Server, error) {
	var s model.Server
	err := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, name, ip, job_limit, active FROM servers WHERE name=? LIMIT 1`,
		name).Scan(&s.ID, &s.Name, &s.IP, &s.JobLimit, &s.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveServer upserts a download server, keyed by name.
func (r *ManagementStore) SaveServer(ctx context.Context, s *model.Server) error {
	const query = `INSERT INTO servers (name, ip, job_limit, active) VALUES (?,?,?,?)
ON DUPLICATE KEY UPDATE ip=VALUES(ip), job_limit=VALUES(job_limit), active=VALUES(active)`
	res, err := q(ctx, r.db).ExecContext(ctx, query, s.Name, s.IP, s.JobLimit, s.Active)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil && id > 0 {
		s.ID = id
	}
	return nil
}

// RegisterHost creates a host under a unique identifier and returns the raw
// secret exactly once.  Registering a taken identifier fails with
// ErrConflict.
func (r *ManagementStore) RegisterHost(ctx context.Context, name, identifier, source string, bcryptCost int) (*model.Host, string, error) {
	secret, err := utils.NewHostSecret()
	if err != nil {
		return nil, "", err
	}
	hash, err := utils.HashSecret(secret, bcryptCost)
	if err != nil {
		return nil, "", err
	}
	res, err := q(ctx, r.db).ExecContext(ctx,
		`INSERT INTO hosts (name, identifier, secret_hash, source, active) VALUES (?,?,?,?,1)`,
		name, identifier, hash, source)
	if err != nil {
		if isDuplicate(err) {
			return nil, "", ErrConflict
		}
		return nil, "", err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, "", err
	}
	host := &model.Host{ID: id, Name: name, Identifier: identifier, SecretHash: hash, Source: source, Active: true}
	return host, secret, nil
}

// AuthenticateHost verifies a host identifier and secret, returning the host
// on success and (nil, nil) on any mismatch.
func (r *ManagementStore) AuthenticateHost(ctx context.Context, identifier, secret string) (*model.Host, error) {
	var h model.Host
	err := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, name, identifier, secret_hash, source, active FROM hosts WHERE identifier=? AND active=1 LIMIT 1`,
		identifier).Scan(&h.ID, &h.Name, &h.Identifier, &h.SecretHash, &h.Source, &h.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !utils.VerifySecret(h.SecretHash, secret) {
		return nil, nil
	}
	return &h, nil
}
