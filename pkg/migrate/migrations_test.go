package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/angelmondragon/herbstore-backend/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestProductsMigrationContainsSchemas(t *testing.T) {
	content := readMigration(t, "*_create_products_table.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS products",
		"CONSTRAINT products_name_key UNIQUE (name)",
		"products_kind_matches_category",
		"CREATE INDEX IF NOT EXISTS idx_products_display_price",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOrdersMigrationKeepsLinesAfterProductDelete(t *testing.T) {
	content := readMigration(t, "*_create_orders_tables.sql")

	if !strings.Contains(content, "CREATE TABLE IF NOT EXISTS order_lines") {
		t.Fatalf("order_lines table missing")
	}
	if strings.Contains(content, "REFERENCES products") {
		t.Fatalf("order lines must not reference products")
	}
	if !strings.Contains(content, "orders_amount_total") {
		t.Fatalf("expected amount total constraint")
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Product Tags!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_product_tags.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	src := migrate.Embedded()
	if err := migrate.Validate(src.FS, src.Dir); err != nil {
		t.Fatalf("validate embedded migrations: %v", err)
	}
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	embedded, err := fs.Glob(src.FS, src.Dir+"/*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	if len(onDisk) != len(embedded) {
		t.Fatalf("expected %d embedded migrations, got %d", len(onDisk), len(embedded))
	}
}

func TestValidateRejectsBrokenFiles(t *testing.T) {
	cases := map[string]string{
		"bad_name.sql":                  "-- +goose Up\n-- +goose Down\n",
		"20250101000000_no_down.sql":    "-- +goose Up\nSELECT 1;\n",
		"20250101000000_reversed.sql":   "-- +goose Down\n-- +goose Up\n",
		"20250101000000_unbalanced.sql": "-- +goose Up\n-- +goose StatementBegin\n-- +goose Down\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			fsys := fstest.MapFS{name: {Data: []byte(body)}}
			if err := migrate.Validate(fsys, "."); err == nil {
				t.Fatalf("expected %s to fail validation", name)
			}
		})
	}
}

func TestValidateRejectsDuplicateVersions(t *testing.T) {
	body := []byte("-- +goose Up\n-- +goose Down\n")
	fsys := fstest.MapFS{
		"20250101000000_a.sql": {Data: body},
		"20250101000000_b.sql": {Data: body},
	}
	if err := migrate.Validate(fsys, "."); err == nil {
		t.Fatal("expected duplicate versions to fail")
	}
}

func TestCreateSQLMigrationRejectsEmptyName(t *testing.T) {
	if _, err := migrate.CreateSQLMigration(t.TempDir(), " !! "); err == nil {
		t.Fatal("expected empty slug to fail")
	}
}
