package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCreateAtWritesTemplateOnce(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	path, err := createAt(dir, "Add order notes", now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if filepath.Base(path) != "20250601090000_add_order_notes.sql" {
		t.Fatalf("unexpected file %s", path)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(body), "-- rollback add_order_notes") {
		t.Fatalf("template not rendered: %s", body)
	}

	if _, err := createAt(dir, "add order notes", now); err == nil {
		t.Fatal("expected second create with the same version to fail")
	}
}

func TestMigrationSlug(t *testing.T) {
	cases := map[string]string{
		"  Add Product Tags! ": "add_product_tags",
		"orders--v2":           "orders_v2",
		"###":                  "",
	}
	for in, want := range cases {
		if got := migrationSlug(in); got != want {
			t.Fatalf("migrationSlug(%q) = %q, want %q", in, got, want)
		}
	}
}
