package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMigrations_OrderAndSkipBlank(t *testing.T) {
	fsys := fstest.MapFS{
		"pg/002_b.sql":  {Data: []byte("CREATE TABLE b (id INT);")},
		"pg/001_a.sql":  {Data: []byte("CREATE TABLE a (id INT);")},
		"pg/003_c.sql":  {Data: []byte("   \n")},
		"pg/README.txt": {Data: []byte("ignored")},
	}

	files, err := readMigrations(fsys, "pg")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "001_a.sql", files[0].Name)
	assert.Equal(t, "002_b.sql", files[1].Name)
}

func TestEmbeddedSchemas(t *testing.T) {
	pg, err := readMigrations(PostgresFS, "postgres")
	require.NoError(t, err)
	assert.Len(t, pg, 3)

	ch, err := readMigrations(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	require.Len(t, ch, 1)
	require.NoError(t, validateNoSemicolonInStrings(ch[0].SQL))
	assert.Len(t, splitStatements(ch[0].SQL), 1)
}

func TestSplitStatements(t *testing.T) {
	sql := `-- header
CREATE TABLE a (x Int64);

-- second
CREATE TABLE b (y String);
`
	stmts := splitStatements(sql)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x Int64)", stmts[0])
	assert.Equal(t, "CREATE TABLE b (y String)", stmts[1])
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	assert.NoError(t, validateNoSemicolonInStrings("SELECT 'it''s'; SELECT 1;"))
	assert.Error(t, validateNoSemicolonInStrings("SELECT 'a;b';"))
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default:@localhost:9000/swapbot")
	require.NoError(t, err)
	assert.Equal(t, "swapbot", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}
