package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/DATAHOARDERS/UltimaScraperDB/internal/model"
)

// IdentityRepo persists identities and their satellites: aliases, profile
// info, profile history and credentials.  Identities keep their upstream id
// as primary key, so Save is always an upsert on that id.
type IdentityRepo struct{ db *sql.DB }

// NewIdentityRepo returns an IdentityRepo bound to the given database.
func NewIdentityRepo(db *sql.DB) *IdentityRepo { return &IdentityRepo{db: db} }

const identityCols = `id, username, balance, performer, favorite, active, downloaded_at, last_checked_at, join_date, created_at, updated_at`

func scanIdentity(row *sql.Row) (*model.Identity, error) {
	var u model.Identity
	var downloaded, checked, joined sql.NullTime
	err := row.Scan(&u.ID, &u.Username, &u.Balance, &u.Performer, &u.Favorite, &u.Active,
		&downloaded, &checked, &joined, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.DownloadedAt = nullTime(downloaded)
	u.LastCheckedAt = nullTime(checked)
	u.JoinDate = nullTime(joined)
	return &u, nil
}

// Get fetches an identity by its upstream id.
func (r *IdentityRepo) Get(ctx context.Context, id int64) (*model.Identity, error) {
	return scanIdentity(q(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+identityCols+` FROM users WHERE id=? LIMIT 1`, id))
}

// GetByUsername fetches an identity by its current username.
func (r *IdentityRepo) GetByUsername(ctx context.Context, username string) (*model.Identity, error) {
	return scanIdentity(q(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+identityCols+` FROM users WHERE username=? LIMIT 1`, username))
}

// Save upserts the identity under its upstream id.
func (r *IdentityRepo) Save(ctx context.Context, u *model.Identity) error {
	const query = `INSERT INTO users (id, username, balance, performer, favorite, active, downloaded_at, last_checked_at, join_date)
VALUES (?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  username=VALUES(username), balance=VALUES(balance), performer=VALUES(performer),
  favorite=VALUES(favorite), active=VALUES(active), downloaded_at=VALUES(downloaded_at),
  last_checked_at=VALUES(last_checked_at), join_date=VALUES(join_date)`
	_, err := q(ctx, r.db).ExecContext(ctx, query,
		u.ID, u.Username, u.Balance, u.Performer, u.Favorite, u.Active,
		bindTime(u.DownloadedAt), bindTime(u.LastCheckedAt), bindTime(u.JoinDate))
	return err
}

// Aliases lists the alias names an identity has previously gone by.
func (r *IdentityRepo) Aliases(ctx context.Context, userID int64) ([]model.Alias, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT id, user_id, username FROM user_aliases WHERE user_id=? ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Alias
	for rows.Next() {
		var a model.Alias
		if err := rows.Scan(&a.ID, &a.UserID, &a.Username); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AliasOwners returns the ids of all identities claiming the alias name.
func (r *IdentityRepo) AliasOwners(ctx context.Context, username string) ([]int64, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT user_id FROM user_aliases WHERE username=? ORDER BY user_id`, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// AddAlias records an alias name for the identity.  Re-adding the same name
// is a no-op.
func (r *IdentityRepo) AddAlias(ctx context.Context, userID int64, username string) error {
	_, err := q(ctx, r.db).ExecContext(ctx,
		`INSERT IGNORE INTO user_aliases (user_id, username) VALUES (?,?)`, userID, username)
	return err
}

// Profile fetches the identity's current profile info.
func (r *IdentityRepo) Profile(ctx context.Context, userID int64) (*model.ProfileInfo, error) {
	var p model.ProfileInfo
	var location, website sql.NullString
	var downloaded, first sql.NullTime
	err := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, user_id, name, description, price, promotion, post_count, media_count,
image_count, video_count, audio_count, archived_post_count, favourited_count,
subscribers_count, size, location, website, downloaded_at, first_downloaded_at
FROM user_infos WHERE user_id=? LIMIT 1`, userID).
		Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.Price, &p.Promotion,
			&p.PostCount, &p.MediaCount, &p.ImageCount, &p.VideoCount, &p.AudioCount,
			&p.ArchivedCount, &p.FavoritedCount, &p.SubscriberCount, &p.Size,
			&location, &website, &downloaded, &first)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Location = nullStr(location)
	p.Website = nullStr(website)
	p.DownloadedAt = nullTime(downloaded)
	p.FirstDownloadedAt = nullTime(first)
	return &p, nil
}

// SaveProfile upserts the identity's profile info, keyed by user_id.
func (r *IdentityRepo) SaveProfile(ctx context.Context, p *model.ProfileInfo) error {
	const query = `INSERT INTO user_infos (user_id, name, description, price, promotion, post_count,
media_count, image_count, video_count, audio_count, archived_post_count, favourited_count,
subscribers_count, size, location, website, downloaded_at, first_downloaded_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  name=VALUES(name), description=VALUES(description), price=VALUES(price),
  promotion=VALUES(promotion), post_count=VALUES(post_count), media_count=VALUES(media_count),
  image_count=VALUES(image_count), video_count=VALUES(video_count), audio_count=VALUES(audio_count),
  archived_post_count=VALUES(archived_post_count), favourited_count=VALUES(favourited_count),
  subscribers_count=VALUES(subscribers_count), size=VALUES(size), location=VALUES(location),
  website=VALUES(website), downloaded_at=VALUES(downloaded_at),
  first_downloaded_at=COALESCE(first_downloaded_at, VALUES(first_downloaded_at))`
	_, err := q(ctx, r.db).ExecContext(ctx, query,
		p.UserID, p.Name, p.Description, p.Price, p.Promotion, p.PostCount,
		p.MediaCount, p.ImageCount, p.VideoCount, p.AudioCount, p.ArchivedCount,
		p.FavoritedCount, p.SubscriberCount, p.Size, bindStr(p.Location), bindStr(p.Website),
		bindTime(p.DownloadedAt), bindTime(p.FirstDownloadedAt))
	return err
}

// AppendProfileSnapshot writes one append-only history row.
func (r *IdentityRepo) AppendProfileSnapshot(ctx context.Context, h *model.ProfileSnapshot) error {
	res, err := q(ctx, r.db).ExecContext(ctx,
		`INSERT INTO histo_user_infos (user_id, name, description, price, post_count, media_count, subscribers_count, size, created_at)
VALUES (?,?,?,?,?,?,?,?,?)`,
		h.UserID, h.Name, h.Description, h.Price, h.PostCount, h.MediaCount, h.SubscriberCount, h.Size, h.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = id
	return nil
}

// Credentials lists the identity's stored session credentials, oldest first.
func (r *IdentityRepo) Credentials(ctx context.Context, userID int64) ([]model.Credential, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT id, user_id, cookie, authorization, user_agent, email, active FROM user_auths WHERE user_id=? ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Credential
	for rows.Next() {
		var c model.Credential
		var cookie, auth, email sql.NullString
		if err := rows.Scan(&c.ID, &c.UserID, &cookie, &auth, &c.UserAgent, &email, &c.Active); err != nil {
			return nil, err
		}
		c.Cookie = nullStr(cookie)
		c.Authorization = nullStr(auth)
		c.Email = nullStr(email)
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveCredential inserts a new credential or updates an existing one by its
// surrogate id.
func (r *IdentityRepo) SaveCredential(ctx context.Context, c *model.Credential) error {
	if c.ID == 0 {
		res, err := q(ctx, r.db).ExecContext(ctx,
			`INSERT INTO user_auths (user_id, cookie, authorization, user_agent, email, active) VALUES (?,?,?,?,?,?)`,
			c.UserID, bindStr(c.Cookie), bindStr(c.Authorization), c.UserAgent, bindStr(c.Email), c.Active)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		c.ID = id
		return nil
	}
	_, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE user_auths SET cookie=?, authorization=?, user_agent=?, email=?, active=? WHERE id=?`,
		bindStr(c.Cookie), bindStr(c.Authorization), c.UserAgent, bindStr(c.Email), c.Active, c.ID)
	return err
}
