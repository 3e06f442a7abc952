// Package migrations applies the embedded SQL schema migrations and
// scaffolds new ones.
package migrations

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed sql/*.sql
var embedded embed.FS

// Dir is the source directory of the embedded migrations, relative to the repo root.
const Dir = "internal/adapters/postgres/migrations/sql"

// advisoryLockID serializes migrators across processes sharing a database.
const advisoryLockID int64 = 0x70726f66696c65

var fileRE = regexp.MustCompile(`^(\d{8}_\d{6})_([a-z0-9_]+)\.(up|down)\.sql$`)

// Migration is one versioned schema change.
type Migration struct {
	Version string
	Name    string
	Up      string
	Down    string
}

// Status describes a migration and whether it has been applied.
type Status struct {
	Version   string
	Name      string
	AppliedAt *time.Time
}

// Migrator tracks applied versions in schema_migrations. Each migration runs
// in its own transaction.
type Migrator struct {
	pool       *pgxpool.Pool
	migrations []Migration
	log        *slog.Logger
}

// New returns a Migrator over the embedded migrations.
func New(pool *pgxpool.Pool, log *slog.Logger) (*Migrator, error) {
	sub, err := fs.Sub(embedded, "sql")
	if err != nil {
		return nil, err
	}
	return NewFromFS(pool, sub, log)
}

func NewFromFS(pool *pgxpool.Pool, fsys fs.FS, log *slog.Logger) (*Migrator, error) {
	ms, err := Load(fsys)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Migrator{pool: pool, migrations: ms, log: log}, nil
}

// Embedded returns the migrations compiled into the binary.
func Embedded() ([]Migration, error) {
	sub, err := fs.Sub(embedded, "sql")
	if err != nil {
		return nil, err
	}
	return Load(sub)
}

// Load parses migration files at the root of fsys, sorted by version.
// Every version needs an up file; the down file is optional.
func Load(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	byVersion := map[string]*Migration{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		m := fileRE.FindStringSubmatch(e.Name())
		if m == nil {
			return nil, fmt.Errorf("migration %q: name must look like YYYYMMDD_NNNNNN_name.up.sql", e.Name())
		}
		version, name, dir := m[1], m[2], m[3]

		raw, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", e.Name(), err)
		}

		mig, ok := byVersion[version]
		if !ok {
			mig = &Migration{Version: version, Name: name}
			byVersion[version] = mig
		} else if mig.Name != name {
			return nil, fmt.Errorf("migration %s: conflicting names %q and %q", version, mig.Name, name)
		}
		if dir == "up" {
			mig.Up = string(raw)
		} else {
			mig.Down = string(raw)
		}
	}

	out := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if strings.TrimSpace(m.Up) == "" {
			return nil, fmt.Errorf("migration %s_%s: missing up.sql", m.Version, m.Name)
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Up applies every pending migration and returns how many ran.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	applied := 0
	err := m.withLock(ctx, func(conn *pgxpool.Conn) error {
		done, err := appliedVersions(ctx, conn)
		if err != nil {
			return err
		}
		for _, mig := range m.migrations {
			if _, ok := done[mig.Version]; ok {
				continue
			}
			if err := pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
				if _, err := tx.Exec(ctx, mig.Up); err != nil {
					return err
				}
				_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, mig.Version, mig.Name)
				return err
			}); err != nil {
				return fmt.Errorf("apply migration %s_%s: %w", mig.Version, mig.Name, err)
			}
			applied++
			m.log.InfoContext(ctx, "migration applied", "version", mig.Version, "name", mig.Name)
		}
		return nil
	})
	return applied, err
}

// Down reverts the most recent steps applied migrations.
func (m *Migrator) Down(ctx context.Context, steps int) (int, error) {
	if steps <= 0 {
		return 0, errors.New("steps must be positive")
	}
	byVersion := make(map[string]Migration, len(m.migrations))
	for _, mig := range m.migrations {
		byVersion[mig.Version] = mig
	}

	reverted := 0
	err := m.withLock(ctx, func(conn *pgxpool.Conn) error {
		done, err := appliedVersions(ctx, conn)
		if err != nil {
			return err
		}
		versions := make([]string, 0, len(done))
		for v := range done {
			versions = append(versions, v)
		}
		sort.Sort(sort.Reverse(sort.StringSlice(versions)))

		for _, v := range versions {
			if reverted == steps {
				break
			}
			mig, ok := byVersion[v]
			if !ok {
				return fmt.Errorf("applied migration %s is not known to this binary", v)
			}
			if strings.TrimSpace(mig.Down) == "" {
				return fmt.Errorf("migration %s_%s has no down.sql", mig.Version, mig.Name)
			}
			if err := pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
				if _, err := tx.Exec(ctx, mig.Down); err != nil {
					return err
				}
				_, err := tx.Exec(ctx, `DELETE FROM schema_migrations WHERE version = $1`, mig.Version)
				return err
			}); err != nil {
				return fmt.Errorf("revert migration %s_%s: %w", mig.Version, mig.Name, err)
			}
			reverted++
			m.log.InfoContext(ctx, "migration reverted", "version", mig.Version, "name", mig.Name)
		}
		return nil
	})
	return reverted, err
}

// Status lists every known migration in version order.
func (m *Migrator) Status(ctx context.Context) ([]Status, error) {
	var out []Status
	err := m.withLock(ctx, func(conn *pgxpool.Conn) error {
		done, err := appliedVersions(ctx, conn)
		if err != nil {
			return err
		}
		out = make([]Status, 0, len(m.migrations))
		for _, mig := range m.migrations {
			st := Status{Version: mig.Version, Name: mig.Name}
			if at, ok := done[mig.Version]; ok {
				st.AppliedAt = &at
			}
			out = append(out, st)
		}
		return nil
	})
	return out, err
}

func (m *Migrator) withLock(ctx context.Context, fn func(conn *pgxpool.Conn) error) error {
	if m.pool == nil {
		return errors.New("nil postgres pool")
	}
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, advisoryLockID); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.Exec(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, advisoryLockID)
	}()

	if _, err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return fn(conn)
}

func appliedVersions(ctx context.Context, conn *pgxpool.Conn) (map[string]time.Time, error) {
	rows, err := conn.Query(ctx, `SELECT version, applied_at FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	out := map[string]time.Time{}
	for rows.Next() {
		var v string
		var at time.Time
		if err := rows.Scan(&v, &at); err != nil {
			return nil, err
		}
		out[v] = at.UTC()
	}
	return out, rows.Err()
}
