// Package pg implementa el UserRepository sobre PostgreSQL usando pgxpool.
package pg

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/antiforge/internal/store"
	migrations "github.com/dropDatabas3/antiforge/migrations/postgres"
)

type Repository struct {
	pool *pgxpool.Pool
}

// New abre el pool, verifica la conexión y aplica las migraciones embebidas.
func New(ctx context.Context, dsn string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	r := &Repository{pool: pool}
	if err := r.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

// migrate aplica los .sql embebidos en orden lexicográfico.
// Los statements son idempotentes (IF NOT EXISTS), no hace falta tabla de versiones.
func (r *Repository) migrate(ctx context.Context) error {
	entries, err := fs.ReadDir(migrations.FS, migrations.Dir)
	if err != nil {
		return fmt.Errorf("pg: read migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		b, err := fs.ReadFile(migrations.FS, migrations.Dir+"/"+name)
		if err != nil {
			return fmt.Errorf("pg: read migration %s: %w", name, err)
		}
		if _, err := r.pool.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("pg: apply migration %s: %w", name, err)
		}
	}
	return nil
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*store.User, error) {
	const q = `SELECT id, email, password_hash, created_at FROM users WHERE lower(email) = lower($1)`

	var u store.User
	err := r.pool.QueryRow(ctx, q, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: find user: %w", err)
	}
	return &u, nil
}

func (r *Repository) Create(ctx context.Context, u *store.User) error {
	const q = `INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3)`

	if _, err := r.pool.Exec(ctx, q, u.ID, u.Email, u.PasswordHash); err != nil {
		return fmt.Errorf("pg: create user: %w", err)
	}
	return nil
}

func (r *Repository) Close() {
	r.pool.Close()
}
