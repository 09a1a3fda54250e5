// Package migrations feeds the embedded ai_sync_logs schema into a host
// migration runner, one callback per dialect.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	aisync "github.com/goliatone/go-aisync"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// SourceLabel identifies this module's migrations in the host runner.
const SourceLabel = "go-aisync"

// RegisterFunc receives one validated dialect tree. Implementations usually
// call the persistence client's RegisterSQLMigrations.
type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type Registration struct {
	SourceLabel string
	Dialects    []string
}

type Option func(*Registration)

func WithSourceLabel(label string) Option {
	return func(r *Registration) {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			r.SourceLabel = trimmed
		}
	}
}

// WithValidationTargets restricts registration to the named dialects.
func WithValidationTargets(dialects ...string) Option {
	return func(r *Registration) {
		next := make([]string, 0, len(dialects))
		for _, dialect := range dialects {
			trimmed := strings.TrimSpace(strings.ToLower(dialect))
			if trimmed == "" {
				continue
			}
			next = append(next, trimmed)
		}
		if len(next) > 0 {
			r.Dialects = next
		}
	}
}

// DialectFS returns the embedded migration tree for one dialect. The postgres
// tree is the canonical one; sqlite lives in its subdirectory.
func DialectFS(dialect string) (fs.FS, error) {
	base, err := fs.Sub(aisync.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve embedded tree: %w", err)
	}
	switch strings.TrimSpace(strings.ToLower(dialect)) {
	case DialectPostgres:
		return base, nil
	case DialectSQLite:
		sqliteFS, err := fs.Sub(base, "sqlite")
		if err != nil {
			return nil, fmt.Errorf("migrations: resolve sqlite tree: %w", err)
		}
		return sqliteFS, nil
	default:
		return nil, fmt.Errorf("migrations: unknown dialect %q", dialect)
	}
}

// Register validates each requested dialect tree and hands it to registerFn.
// A tree with no *.up.sql files fails fast rather than migrating to nothing.
func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) (Registration, error) {
	reg := Registration{
		SourceLabel: SourceLabel,
		Dialects:    []string{DialectPostgres, DialectSQLite},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&reg)
	}

	if registerFn == nil {
		return reg, fmt.Errorf("migrations: register function is required")
	}
	if strings.TrimSpace(reg.SourceLabel) == "" {
		return reg, fmt.Errorf("migrations: source label is required")
	}

	seen := make(map[string]struct{}, len(reg.Dialects))
	for _, dialect := range reg.Dialects {
		dialect = strings.TrimSpace(strings.ToLower(dialect))
		if _, done := seen[dialect]; done {
			continue
		}
		seen[dialect] = struct{}{}

		fsys, err := DialectFS(dialect)
		if err != nil {
			return reg, err
		}
		matches, err := fs.Glob(fsys, "*.up.sql")
		if err != nil {
			return reg, fmt.Errorf("migrations: glob %s tree: %w", dialect, err)
		}
		if len(matches) == 0 {
			return reg, fmt.Errorf("migrations: %s tree has no *.up.sql files", dialect)
		}
		if err := registerFn(ctx, dialect, reg.SourceLabel, fsys); err != nil {
			return reg, fmt.Errorf("migrations: register %s: %w", dialect, err)
		}
	}

	return reg, nil
}
