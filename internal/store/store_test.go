package store

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/Priya8975/activity-logger/migrations"
	"github.com/alicebob/miniredis/v2"
)

func TestMigrationFiles_OrderAndFilter(t *testing.T) {
	fsys := fstest.MapFS{
		"002_add_index.up.sql":   {Data: []byte("SELECT 2")},
		"001_create.up.sql":      {Data: []byte("SELECT 1")},
		"001_create.down.sql":    {Data: []byte("SELECT 0")},
		"README.md":              {Data: []byte("notes")},
		"nested/003_more.up.sql": {Data: []byte("SELECT 3")},
	}

	files, err := migrationFiles(fsys)
	if err != nil {
		t.Fatalf("migrationFiles: %v", err)
	}

	want := []string{"001_create.up.sql", "002_add_index.up.sql", "nested/003_more.up.sql"}
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestMigrationFiles_EmbeddedSchema(t *testing.T) {
	files, err := migrationFiles(migrations.FS)
	if err != nil {
		t.Fatalf("migrationFiles: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("expected embedded migrations")
	}
	if files[0] != "001_create_activity_events.up.sql" {
		t.Errorf("first migration = %q", files[0])
	}
}

func TestRedisStore_Connect(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	rs, err := NewRedis(ctx, "redis://"+mr.Addr())
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	defer rs.Close()

	if err := rs.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
	if rs.Client().Options().Addr != mr.Addr() {
		t.Errorf("client addr = %q, want %q", rs.Client().Options().Addr, mr.Addr())
	}
}

func TestNewRedis_BadURL(t *testing.T) {
	if _, err := NewRedis(context.Background(), "not a url"); err == nil {
		t.Error("expected error for invalid redis URL")
	}
}
