package testsupport

import (
	"testing"

	"compositor/internal/config"
	"compositor/internal/history"
)

// MustOpenHistory opens the history ledger configured in cfg and registers
// cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg.HistoryPath(), nil)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
