package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/evercrm/cadence/pkg/persistence"
	"github.com/evercrm/cadence/pkg/persistence/memory"
	"github.com/evercrm/cadence/pkg/persistence/postgresql"
)

// NewPersistence selects the storage backend from the database URL scheme.
// postgres:// and postgresql:// select PostgreSQL; anything else gets the
// in-memory store, which is for development only.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parseProvider(databaseURL) {
	case "postgres", "postgresql":
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(err)
		}

		return store
	default:
		logger.Warn("Using in-memory persistence, data will not survive restarts")

		return memory.NewPersistence()
	}
}

func parseProvider(databaseURL string) string {
	parts := strings.SplitN(databaseURL, "://", 2)

	return parts[0]
}
