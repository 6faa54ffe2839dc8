package postgres

import (
	"strings"
	"testing"
	"testing/fstest"
)

func migrationFile(body string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(body)}
}

func TestLoadEmbeddedMigrations_Ordering(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/migrations/0002_add_index.up.sql":   migrationFile("CREATE INDEX idx ON t (a)"),
		"sql/migrations/0002_add_index.down.sql": migrationFile("DROP INDEX idx"),
		"sql/migrations/0001_init.up.sql":        migrationFile("CREATE TABLE t (a INT)"),
		"sql/migrations/0001_init.down.sql":      migrationFile("DROP TABLE t"),
	}

	migrations, err := loadEmbeddedMigrations(fsys)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[1].Version != 2 {
		t.Fatalf("migrations must be sorted by version: %+v", migrations)
	}
	if migrations[0].Name != "init" || migrations[0].UpSQL == "" || migrations[0].DownSQL == "" {
		t.Fatalf("unexpected first migration: %+v", migrations[0])
	}
}

func TestLoadEmbeddedMigrations_Errors(t *testing.T) {
	tests := []struct {
		name    string
		fsys    fstest.MapFS
		wantErr string
	}{
		{
			name:    "empty directory",
			fsys:    fstest.MapFS{},
			wantErr: "no migration files found",
		},
		{
			name: "missing down file",
			fsys: fstest.MapFS{
				"sql/migrations/0001_init.up.sql": migrationFile("CREATE TABLE t (a INT)"),
			},
			wantErr: "must have both up and down files",
		},
		{
			name: "empty script",
			fsys: fstest.MapFS{
				"sql/migrations/0001_init.up.sql":   migrationFile("   "),
				"sql/migrations/0001_init.down.sql": migrationFile("DROP TABLE t"),
			},
			wantErr: "migration file is empty",
		},
		{
			name: "bad file name",
			fsys: fstest.MapFS{
				"sql/migrations/init.sql": migrationFile("CREATE TABLE t (a INT)"),
			},
			wantErr: "invalid migration file name",
		},
		{
			name: "name mismatch within version",
			fsys: fstest.MapFS{
				"sql/migrations/0001_init.up.sql":    migrationFile("CREATE TABLE t (a INT)"),
				"sql/migrations/0001_other.down.sql": migrationFile("DROP TABLE t"),
			},
			wantErr: "migration name mismatch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadEmbeddedMigrations(tt.fsys)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadEmbeddedMigrations_Bundled(t *testing.T) {
	// Встроенный каталог миграций обязан парситься без ошибок.
	migrations, err := loadEmbeddedMigrations(migrationsFS)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("expected at least one bundled migration")
	}
	if migrations[0].Version != 1 {
		t.Fatalf("expected first bundled version 1, got %d", migrations[0].Version)
	}
}
