package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/mileage-audit/internal/common"
	"github.com/Veraticus/mileage-audit/internal/config"
	"github.com/Veraticus/mileage-audit/internal/storage"
)

// initStorage opens the run ledger and brings its schema up to date.
func initStorage(ctx context.Context, dbPath string) (*storage.SQLiteStorage, error) {
	if dbPath == "" {
		return nil, common.NewUserError("no run ledger configured (set database.path)", common.ErrMissingConfig)
	}

	// Expand tilde and environment variables
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// nowLayouts are tried in order by parseNow.
var nowLayouts = []string{
	"2/1/2006",
	time.DateOnly,
	time.RFC3339,
}

// parseNow parses the --now flag. Empty text means the wall clock. Dates
// without a time are midnight local time.
func parseNow(text string) (time.Time, error) {
	if text == "" {
		return time.Time{}, nil
	}
	for _, layout := range nowLayouts {
		if t, err := time.ParseInLocation(layout, text, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, common.NewUserError(
		fmt.Sprintf("invalid --now %q (use day/month/year, YYYY-MM-DD or RFC 3339)", text), nil)
}
