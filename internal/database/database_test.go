package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, SQLite, db.Dialect)
	_, err = db.ExecContext(ctx, `CREATE TABLE t (code TEXT, "KMID" REAL)`)
	require.NoError(t, err)

	cols, err := db.ColumnNames(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, []string{"code", "KMID"}, cols)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "x")
	assert.Error(t, err)
}

func TestPlaceholders(t *testing.T) {
	lite := &DB{Dialect: SQLite}
	pg := &DB{Dialect: Postgres}
	assert.Equal(t, "?, ?, ?", lite.Placeholders(1, 3))
	assert.Equal(t, "$3, $4", pg.Placeholders(3, 2))
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"alpha_1"`, QuoteIdent("alpha_1"))
	assert.Equal(t, `"a""b"`, QuoteIdent(`a"b`))
}

func TestParseTime(t *testing.T) {
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	for _, v := range []any{"2024-03-05", []byte("2024-03-05"), "20240305", want, int64(want.Unix())} {
		got, err := ParseTime(v)
		require.NoError(t, err)
		assert.True(t, want.Equal(got), "%v", v)
	}
	_, err := ParseTime(3.5)
	assert.Error(t, err)
	_, err = ParseTime("yesterday")
	assert.Error(t, err)
}
