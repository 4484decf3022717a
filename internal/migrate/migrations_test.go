package migrate

import (
	"context"
	"testing"

	"sitefeed/internal/db"
)

func TestApplyIsIdempotent(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()
	ctx := context.Background()
	first, err := Apply(ctx, conn)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if first < 1 {
		t.Fatalf("expected schema version >= 1, got %d", first)
	}
	second, err := Apply(ctx, conn)
	if err != nil {
		t.Fatalf("reapply: %v", err)
	}
	if second != first {
		t.Fatalf("expected version %d after reapply, got %d", first, second)
	}
	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='daily_logs'`).Scan(&n); err != nil {
		t.Fatalf("query tables: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected daily_logs table")
	}
}
