package store

import (
	"context"
	"path/filepath"
	"testing"
)

func openSQLite(t *testing.T) Store {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "concord.db"))
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, openSQLite)
}

func TestSQLiteStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "concord.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	m := &Member{Name: "ada", Skills: []string{"go"}}
	if err := s.CreateMember(ctx, m); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.GetMember(ctx, m.ID)
	if err != nil || got == nil {
		t.Fatalf("member lost across reopen: %v, %v", got, err)
	}
	if !got.CreatedAt.Equal(m.CreatedAt) {
		t.Errorf("created_at drifted: %v vs %v", got.CreatedAt, m.CreatedAt)
	}
}
