package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"sync"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Registry holds one pool per tenant database plus the shared management
// pool.  Pools are opened lazily and reused.
type Registry struct {
	user string
	pass string
	host string
	port string

	mu         sync.Mutex
	management *sql.DB
	tenants    map[string]*sql.DB
}

// NewRegistry builds a registry over one MySQL server.
func NewRegistry(user, pass, host, port string) *Registry {
	return &Registry{
		user:    user,
		pass:    pass,
		host:    host,
		port:    port,
		tenants: map[string]*sql.DB{},
	}
}

// Management returns the pool for the management schema, opening it on first
// use.
func (r *Registry) Management(name string) (*sql.DB, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.management != nil {
		return r.management, nil
	}
	db, err := Open(r.user, r.pass, r.host, r.port, name)
	if err != nil {
		return nil, fmt.Errorf("open management database %s: %w", name, err)
	}
	r.management = db
	return db, nil
}

// Tenant returns the pool for one tenant database, opening it on first use.
func (r *Registry) Tenant(name string) (*sql.DB, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if db, ok := r.tenants[name]; ok {
		return db, nil
	}
	db, err := Open(r.user, r.pass, r.host, r.port, name)
	if err != nil {
		return nil, fmt.Errorf("open tenant database %s: %w", name, err)
	}
	r.tenants[name] = db
	return db, nil
}

// Close closes every open pool.  Safe to call once at shutdown.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	if r.management != nil {
		if err := r.management.Close(); err != nil && first == nil {
			first = err
		}
		r.management = nil
	}
	for name, db := range r.tenants {
		if err := db.Close(); err != nil && first == nil {
			first = err
		}
		delete(r.tenants, name)
	}
	return first
}

// ApplyTenantSchema creates the tenant tables when missing.
func ApplyTenantSchema(ctx context.Context, db *sql.DB) error {
	return applySchema(ctx, db, "schema/tenant.sql")
}

// ApplyManagementSchema creates the management tables when missing.
func ApplyManagementSchema(ctx context.Context, db *sql.DB) error {
	return applySchema(ctx, db, "schema/management.sql")
}

func applySchema(ctx context.Context, db *sql.DB, file string) error {
	ddl, err := schemaFS.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read schema %s: %w", file, err)
	}
	for _, stmt := range strings.Split(string(ddl), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema %s: %w", file, err)
		}
	}
	return nil
}
