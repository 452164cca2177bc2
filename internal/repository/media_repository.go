package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/DATAHOARDERS/UltimaScraperDB/internal/model"
)

// MediaRepo persists media rows and the filepaths of their local copies.
// Media keep their upstream id as primary key; one media row may be linked
// to many content items across kinds.
type MediaRepo struct{ db *sql.DB }

// NewMediaRepo returns a MediaRepo bound to the given database.
func NewMediaRepo(db *sql.DB) *MediaRepo { return &MediaRepo{db: db} }

const mediaCols = `id, user_id, url, size, category, preview, created_at`

func scanMedia(scan func(dest ...any) error) (*model.Media, error) {
	var m model.Media
	var url sql.NullString
	var created sql.NullTime
	if err := scan(&m.ID, &m.UserID, &url, &m.Size, &m.Category, &m.Preview, &created); err != nil {
		return nil, err
	}
	m.URL = nullStr(url)
	m.CreatedAt = nullTime(created)
	return &m, nil
}

// Get fetches one media row by its upstream id.
func (r *MediaRepo) Get(ctx context.Context, id int64) (*model.Media, error) {
	row := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+mediaCols+` FROM medias WHERE id=? LIMIT 1`, id)
	m, err := scanMedia(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

// ListByOwner lists every media row of one identity.
func (r *MediaRepo) ListByOwner(ctx context.Context, userID int64) ([]model.Media, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT `+mediaCols+` FROM medias WHERE user_id=? ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Media
	for rows.Next() {
		m, err := scanMedia(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// Save upserts a media row under its upstream id.
func (r *MediaRepo) Save(ctx context.Context, m *model.Media) error {
	const query = `INSERT INTO medias (id, user_id, url, size, category, preview, created_at)
VALUES (?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  user_id=VALUES(user_id), url=VALUES(url), size=VALUES(size),
  category=VALUES(category), preview=VALUES(preview), created_at=VALUES(created_at)`
	_, err := q(ctx, r.db).ExecContext(ctx, query,
		m.ID, m.UserID, bindStr(m.URL), m.Size, m.Category, m.Preview, bindTime(m.CreatedAt))
	return err
}

// FilePaths lists the filepaths of one identity's media.
func (r *MediaRepo) FilePaths(ctx context.Context, userID int64) ([]model.FilePath, error) {
	const query = `SELECT f.id, f.story_id, f.post_id, f.message_id, f.mass_message_id,
f.media_id, f.filepath, f.preview, f.downloaded
FROM filepaths f JOIN medias m ON m.id = f.media_id
WHERE m.user_id=? ORDER BY f.id`
	rows, err := q(ctx, r.db).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.FilePath
	for rows.Next() {
		var fp model.FilePath
		var story, post, message, mass sql.NullInt64
		if err := rows.Scan(&fp.ID, &story, &post, &message, &mass,
			&fp.MediaID, &fp.Path, &fp.Preview, &fp.Downloaded); err != nil {
			return nil, err
		}
		switch {
		case story.Valid:
			fp.Content = model.ContentRef{Kind: model.KindStory, ID: story.Int64}
		case post.Valid:
			fp.Content = model.ContentRef{Kind: model.KindPost, ID: post.Int64}
		case message.Valid:
			fp.Content = model.ContentRef{Kind: model.KindMessage, ID: message.Int64}
		case mass.Valid:
			fp.Content = model.ContentRef{Kind: model.KindMassMessage, ID: mass.Int64}
		}
		out = append(out, fp)
	}
	return out, rows.Err()
}

// AddFilePath records a local filepath for a (content, media) pair.  The
// pair is unique; re-adding is a no-op that leaves fp.ID zero.
func (r *MediaRepo) AddFilePath(ctx context.Context, fp *model.FilePath) error {
	col, err := assoColumn(fp.Content.Kind)
	if err != nil {
		return err
	}
	query := `INSERT IGNORE INTO filepaths (` + col + `, media_id, filepath, preview, downloaded) VALUES (?,?,?,?,?)`
	res, err := q(ctx, r.db).ExecContext(ctx, query,
		fp.Content.ID, fp.MediaID, fp.Path, fp.Preview, fp.Downloaded)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil && id > 0 {
		fp.ID = id
	}
	return nil
}

// SizeSum returns the byte total of the identity's media.
func (r *MediaRepo) SizeSum(ctx context.Context, userID int64) (int64, error) {
	var sum sql.NullInt64
	err := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT SUM(size) FROM medias WHERE user_id=?`, userID).Scan(&sum)
	if err != nil {
		return 0, err
	}
	return sum.Int64, nil
}

// TotalSize returns the byte total of every media row in the tenant.  The
// worker rolls this up into the management site registry.
func (r *MediaRepo) TotalSize(ctx context.Context) (int64, error) {
	var sum sql.NullInt64
	err := q(ctx, r.db).QueryRowContext(ctx, `SELECT SUM(size) FROM medias`).Scan(&sum)
	if err != nil {
		return 0, err
	}
	return sum.Int64, nil
}

// CountByCategory counts the identity's media of one category that have at
// least one filepath on disk.
func (r *MediaRepo) CountByCategory(ctx context.Context, userID int64, category string) (int, error) {
	const query = `SELECT COUNT(DISTINCT m.id) FROM medias m
JOIN filepaths f ON f.media_id = m.id
WHERE m.user_id=? AND m.category=?`
	var n int
	err := q(ctx, r.db).QueryRowContext(ctx, query, userID, category).Scan(&n)
	return n, err
}

// PaidMedia lists the identity's non-preview media with filepaths that hang
// off priced, paid posts or messages.
func (r *MediaRepo) PaidMedia(ctx context.Context, userID int64) ([]model.Media, error) {
	const query = `SELECT DISTINCT m.id, m.user_id, m.url, m.size, m.category, m.preview, m.created_at
FROM medias m
JOIN filepaths f ON f.media_id = m.id
LEFT JOIN posts p ON p.id = f.post_id
LEFT JOIN messages g ON g.id = f.message_id
WHERE m.user_id=? AND m.preview=0 AND f.preview=0
  AND ((p.id IS NOT NULL AND p.price > 0 AND p.paid=1)
    OR (g.id IS NOT NULL AND g.price > 0 AND g.paid=1))
ORDER BY m.id`
	rows, err := q(ctx, r.db).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Media
	for rows.Next() {
		m, err := scanMedia(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}
