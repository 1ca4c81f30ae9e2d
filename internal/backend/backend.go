// Package backend selects and constructs the activity store binding named in
// the configuration.
package backend

import (
	"context"
	"fmt"

	"daylog/internal/config"
	"daylog/internal/store"
	"daylog/internal/store/memory"
	"daylog/internal/store/postgres"
	"daylog/internal/store/sqlite"
)

type Type string

const (
	TypeSQLite   Type = "sqlite"
	TypePostgres Type = "postgres"
	TypeMemory   Type = "memory"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeSQLite, TypePostgres, TypeMemory:
		return true
	}
	return false
}

// Options carries the binding-specific settings the factory needs.
type Options struct {
	SQLiteDBPath string
	PostgresURL  string
}

func FromAppConfig(cfg *config.Config) (Type, Options) {
	return Type(cfg.DataBackend), Options{
		SQLiteDBPath: cfg.SQLiteDBPath,
		PostgresURL:  cfg.PostgresURL,
	}
}

// Create builds the store for the given backend type. The returned cleanup
// releases the binding's resources and is never nil.
func Create(ctx context.Context, t Type, opts Options) (store.Store, func(), error) {
	switch t {
	case TypeSQLite:
		s, err := sqlite.New(opts.SQLiteDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite backend: %w", err)
		}
		return s, func() { s.Close() }, nil
	case TypePostgres:
		s, err := postgres.New(ctx, opts.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres backend: %w", err)
		}
		return s, func() { s.Close() }, nil
	case TypeMemory:
		s := memory.New()
		return s, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend type %q", t)
	}
}
