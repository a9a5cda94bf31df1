package testsupport

import (
	"context"
	"testing"

	"podscribe/internal/config"
	"podscribe/internal/ledger"
)

// MustOpenLedger opens a ledger.Store for tests and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// RegisterEpisode records an episode row for tests using the provided store.
func RegisterEpisode(t testing.TB, store *ledger.Store, runID, podcast, guid, title string) *ledger.Episode {
	t.Helper()

	row, err := store.Register(context.Background(), runID, ledger.Episode{
		Podcast:     podcast,
		EpisodeGUID: guid,
		Title:       title,
	})
	if err != nil {
		t.Fatalf("store.Register: %v", err)
	}
	return row
}
