package storage

import (
	"context"
	"fmt"

	"webappbot/internal/shared"
)

// Options selects and configures the backend.
type Options struct {
	Driver      string // sqlite, postgres or none
	SQLitePath  string
	DatabaseURL string
}

// Open returns the Store for opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "sqlite":
		return OpenSQLite(ctx, opts.SQLitePath)
	case "postgres":
		return OpenPostgres(ctx, opts.DatabaseURL)
	case "none", "":
		return Nop{}, nil
	default:
		return nil, shared.MarkKind(fmt.Errorf("unknown storage driver %q", opts.Driver), shared.KindValidation)
	}
}
