package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pipewise/pipewise/pkg/persistence"
	"github.com/pipewise/pipewise/pkg/persistence/file"
	"github.com/pipewise/pipewise/pkg/persistence/postgresql"
)

// NewPersistence selects a persistence backend from the database URL
// scheme. postgres:// and postgresql:// go to PostgreSQL; anything else is
// treated as a file path.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parseProvider(databaseURL) {
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parseProvider(databaseURL string) string {
	parts := strings.SplitN(databaseURL, "://", 2)
	if len(parts) < 2 {
		return "file"
	}

	return parts[0]
}
