package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/DATAHOARDERS/UltimaScraperDB/internal/engine"
	"github.com/DATAHOARDERS/UltimaScraperDB/internal/model"
)

// JobRepo persists the per-site work queue.  Jobs live in the tenant schema
// with a site_id pointing into the management registry; a (site, user,
// category) triple identifies at most one job.
type JobRepo struct{ db *sql.DB }

// NewJobRepo returns a JobRepo bound to the given database.
func NewJobRepo(db *sql.DB) *JobRepo { return &JobRepo{db: db} }

const jobCols = `j.id, j.site_id, j.user_id, j.user_username, j.category, j.server_id, j.host_id, j.priority, j.skippable, j.active, j.completed_at`

func scanJob(scan func(dest ...any) error) (*model.Job, error) {
	var j model.Job
	var host sql.NullInt64
	var completed sql.NullTime
	if err := scan(&j.ID, &j.SiteID, &j.UserID, &j.Username, &j.Category,
		&j.ServerID, &host, &j.Priority, &j.Skippable, &j.Active, &completed); err != nil {
		return nil, err
	}
	j.HostID = nullInt(host)
	j.CompletedAt = nullTime(completed)
	return &j, nil
}

// Find fetches the job for one (site, user, category) triple.
func (r *JobRepo) Find(ctx context.Context, siteID, userID int64, category string) (*model.Job, error) {
	row := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+jobCols+` FROM jobs j WHERE j.site_id=? AND j.user_id=? AND j.category=? LIMIT 1`,
		siteID, userID, category)
	j, err := scanJob(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return j, err
}

// Save inserts a new job or updates an existing one by its surrogate id.
func (r *JobRepo) Save(ctx context.Context, j *model.Job) error {
	if j.ID == 0 {
		res, err := q(ctx, r.db).ExecContext(ctx,
			`INSERT INTO jobs (site_id, user_id, user_username, category, server_id, host_id, priority, skippable, active, completed_at)
VALUES (?,?,?,?,?,?,?,?,?,?)`,
			j.SiteID, j.UserID, j.Username, j.Category, j.ServerID, bindInt(j.HostID),
			j.Priority, j.Skippable, j.Active, bindTime(j.CompletedAt))
		if err != nil {
			if isDuplicate(err) {
				return ErrConflict
			}
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		j.ID = id
		return nil
	}
	_, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE jobs SET user_username=?, server_id=?, host_id=?, priority=?, skippable=?, active=?, completed_at=? WHERE id=?`,
		j.Username, j.ServerID, bindInt(j.HostID), j.Priority, j.Skippable, j.Active,
		bindTime(j.CompletedAt), j.ID)
	return err
}

// List returns jobs of one site in dequeue order: priority first, then id
// ascending, ties broken by the identity's downloaded_at descending so the
// longest-stale accounts do not starve behind fresh ones.
func (r *JobRepo) List(ctx context.Context, siteID int64, f engine.JobFilter) ([]model.Job, error) {
	query := `SELECT ` + jobCols + ` FROM jobs j LEFT JOIN users u ON u.id = j.user_id WHERE j.site_id=?`
	args := []any{siteID}
	if f.ServerID != 0 {
		query += ` AND j.server_id=?`
		args = append(args, f.ServerID)
	}
	if f.UserID != 0 {
		query += ` AND j.user_id=?`
		args = append(args, f.UserID)
	}
	if f.Category != "" {
		query += ` AND j.category=?`
		args = append(args, f.Category)
	}
	if f.Priority != nil {
		query += ` AND j.priority=?`
		args = append(args, *f.Priority)
	}
	if f.Active != nil {
		query += ` AND j.active=?`
		args = append(args, *f.Active)
	}
	query += ` ORDER BY j.priority DESC, j.id ASC, u.downloaded_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		page := f.Page
		if page < 1 {
			page = 1
		}
		args = append(args, f.Limit, (page-1)*f.Limit)
	}
	rows, err := q(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Job
	for rows.Next() {
		j, err := scanJob(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

// Complete soft-finishes a job: clears active, stamps completed_at.
func (r *JobRepo) Complete(ctx context.Context, jobID int64, at time.Time) error {
	_, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE jobs SET active=0, completed_at=? WHERE id=?`, at, jobID)
	return err
}
