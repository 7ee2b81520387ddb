package sqlitemigrate

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func TestApplyMigrationsInNameOrder(t *testing.T) {
	db := openInMemoryDB(t)
	migrations := fstest.MapFS{
		"002_index.sql":  {Data: []byte("-- +migrate Up\nCREATE INDEX idx_items_name ON items(name);\n-- +migrate Down\nDROP INDEX idx_items_name;")},
		"001_create.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE items(id TEXT PRIMARY KEY, name TEXT);")},
		"README.md":      {Data: []byte("not a migration")},
	}

	applied, err := ApplyMigrations(context.Background(), db, migrations, "")
	if err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if strings.Join(applied, ",") != "001_create.sql,002_index.sql" {
		t.Fatalf("applied = %v", applied)
	}
	if !tableExists(t, db, "items") {
		t.Fatal("expected items table")
	}
}

func TestApplyMigrationsSkipsRecorded(t *testing.T) {
	db := openInMemoryDB(t)
	migrations := fstest.MapFS{
		"001_create.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE items(id TEXT PRIMARY KEY);")},
	}
	if _, err := ApplyMigrations(context.Background(), db, migrations, ""); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	applied, err := ApplyMigrations(context.Background(), db, migrations, "")
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("expected nothing applied on replay, got %v", applied)
	}
	keys, err := Applied(context.Background(), db)
	if err != nil {
		t.Fatalf("applied: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("recorded = %v", keys)
	}
}

func TestApplyMigrationsLeavesFailedUnrecorded(t *testing.T) {
	db := openInMemoryDB(t)
	bad := fstest.MapFS{
		"001_things.sql": {Data: []byte("-- +migrate Up\nCREAT TABLE things(id INT);")},
	}
	if _, err := ApplyMigrations(context.Background(), db, bad, ""); err == nil {
		t.Fatal("expected bad migration to fail")
	}
	if keys, _ := Applied(context.Background(), db); len(keys) != 0 {
		t.Fatalf("failed migration recorded: %v", keys)
	}

	good := fstest.MapFS{
		"001_things.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE things(id INTEGER PRIMARY KEY);")},
	}
	if _, err := ApplyMigrations(context.Background(), db, good, ""); err != nil {
		t.Fatalf("apply fixed migration: %v", err)
	}
	if !tableExists(t, db, "things") {
		t.Fatal("expected things table")
	}
}

func TestApplyMigrationsToleratesExistingSingleStatement(t *testing.T) {
	db := openInMemoryDB(t)
	if _, err := db.Exec("CREATE TABLE widgets(id INTEGER PRIMARY KEY)"); err != nil {
		t.Fatalf("create widgets: %v", err)
	}
	migrations := fstest.MapFS{
		"001_widgets.sql": {Data: []byte("-- +migrate Up\n-- widgets table\nCREATE TABLE widgets(id INTEGER PRIMARY KEY);\n")},
	}
	applied, err := ApplyMigrations(context.Background(), db, migrations, "")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(applied) != 1 {
		t.Fatalf("applied = %v", applied)
	}
}

func TestApplyMigrationsFailsOnExistingTableInLongerFile(t *testing.T) {
	db := openInMemoryDB(t)
	if _, err := db.Exec("CREATE TABLE widgets(id INTEGER PRIMARY KEY)"); err != nil {
		t.Fatalf("create widgets: %v", err)
	}
	migrations := fstest.MapFS{
		"001_parts.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE gadgets(id INTEGER PRIMARY KEY);\nCREATE TABLE widgets(id INTEGER PRIMARY KEY);\nCREATE TABLE gears(id INTEGER PRIMARY KEY);\n")},
	}
	if _, err := ApplyMigrations(context.Background(), db, migrations, ""); err == nil {
		t.Fatal("expected already-exists error in a multi-statement migration")
	}
	if keys, _ := Applied(context.Background(), db); len(keys) != 0 {
		t.Fatalf("failed migration recorded: %v", keys)
	}
	if tableExists(t, db, "gadgets") || tableExists(t, db, "gears") {
		t.Fatal("expected partial migration to be rolled back")
	}
}

func TestStatementCount(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{in: "CREATE TABLE a(id INT);", want: 1},
		{in: "CREATE TABLE a(id INT)", want: 1},
		{in: "-- note; with semicolon\nCREATE TABLE a(id INT);", want: 1},
		{in: "CREATE TABLE a(id INT);\nCREATE TABLE b(id INT);", want: 2},
		{in: "  \n-- only a comment\n", want: 0},
	}
	for _, tc := range cases {
		if got := statementCount(tc.in); got != tc.want {
			t.Errorf("statementCount(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestApplyMigrationsKeysIncludeRoot(t *testing.T) {
	db := openInMemoryDB(t)
	migrations := fstest.MapFS{
		"catalog/001_systems.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE systems(id TEXT PRIMARY KEY);")},
	}
	applied, err := ApplyMigrations(context.Background(), db, migrations, "catalog")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(applied) != 1 || applied[0] != "catalog/001_systems.sql" {
		t.Fatalf("applied = %v", applied)
	}
}

func TestApplyMigrationsRequiresDB(t *testing.T) {
	if _, err := ApplyMigrations(context.Background(), nil, fstest.MapFS{}, ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestExtractUpMigration(t *testing.T) {
	cases := map[string]string{
		"CREATE TABLE a(id INT);":                                  "CREATE TABLE a(id INT);",
		"-- +migrate Up\nCREATE TABLE a(id INT);":                  "\nCREATE TABLE a(id INT);",
		"-- +migrate Up\nCREATE TABLE a(id INT);\n-- +migrate Down\nDROP TABLE a;": "\nCREATE TABLE a(id INT);\n",
	}
	for in, want := range cases {
		if got := ExtractUpMigration(in); got != want {
			t.Errorf("ExtractUpMigration(%q) = %q, want %q", in, got, want)
		}
	}
}

func openInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	// Every pooled connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatalf("close db: %v", err)
		}
	})
	return db
}

func tableExists(t *testing.T, db *sql.DB, tableName string) bool {
	t.Helper()
	var name string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name = ?", tableName).Scan(&name)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		t.Fatalf("check table exists: %v", err)
	}
	return name == tableName
}
