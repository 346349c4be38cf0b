package testsupport

import (
	"context"
	"testing"

	"paceline/internal/config"
	"paceline/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SeedActivity stores a minimal activity for tests and returns it.
func SeedActivity(t testing.TB, st *store.Store, id int64, name string) *store.Activity {
	t.Helper()

	activity := &store.Activity{
		ID:        id,
		Name:      name,
		Type:      "Ride",
		StartDate: "2020-01-01T08:00:00Z",
		Distance:  25000,
	}
	if err := st.UpsertActivity(context.Background(), activity); err != nil {
		t.Fatalf("store.UpsertActivity: %v", err)
	}
	return activity
}
