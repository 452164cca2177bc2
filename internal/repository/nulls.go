package repository

import (
	"database/sql"
	"time"
)

// Scan/bind helpers for nullable columns. Pointers in the models map to
// NULL in the schema.

func nullStr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullInt(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func bindStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func bindInt(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func bindTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return *p
}
