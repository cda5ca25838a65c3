package store

import (
	"context"
	"strings"
)

// New creates a postgres-backed document store when a database URL is
// configured, otherwise a file-backed one in dataDir.
func New(ctx context.Context, dataDir, databaseURL string) (Documents, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewFileStore(dataDir)
	}
	return NewPostgresStore(ctx, databaseURL)
}
