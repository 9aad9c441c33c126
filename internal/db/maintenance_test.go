package db

import (
	"context"
	"testing"

	"github.com/toeirei/keymaster-blacklist/internal/model"
)

func TestRunMaintenance_Sqlite(t *testing.T) {
	WithTestStore(t, func(s *BunStore) {
		ctx := context.Background()
		if err := s.SaveEntry(ctx, &model.BlacklistEntry{Type: model.KindPublicKey, Value: fpA}); err != nil {
			t.Fatalf("SaveEntry failed: %v", err)
		}
		// Run maintenance; should complete without error.
		if err := s.RunMaintenance(ctx); err != nil {
			t.Fatalf("RunMaintenance(sqlite) failed: %v", err)
		}
		// Make sure we can still use the DB after maintenance.
		if _, err := s.ListEntries(ctx, ""); err != nil {
			t.Fatalf("ListEntries after maintenance failed: %v", err)
		}
	})
}

func TestRunMaintenance_UnknownType(t *testing.T) {
	WithTestStore(t, func(s *BunStore) {
		bogus := &BunStore{bun: s.bun, dbType: "oracle"}
		if err := bogus.RunMaintenance(context.Background()); err == nil {
			t.Fatalf("expected error for unsupported db type")
		}
	})
}
