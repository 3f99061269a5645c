package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// PostgresFS embeds the PostgreSQL schema: transactions, detected trades, monitor cursors.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS embeds the ClickHouse schema for pipeline snapshots.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS

// migrationFile is one non-empty embedded SQL file.
type migrationFile struct {
	Name string
	SQL  string
}

// readMigrations returns the .sql files under dir in lexical order, skipping blank ones.
func readMigrations(fsys fs.FS, dir string) ([]migrationFile, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s migrations: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	files := make([]migrationFile, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, dir+"/"+name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		files = append(files, migrationFile{Name: name, SQL: string(data)})
	}
	return files, nil
}
