package pager

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kavelabs/litesql/internal/sqlitetest"
	"github.com/kavelabs/litesql/sqlvalue"
)

func writeTempDB(t *testing.T, tables []sqlitetest.Table) string {
	t.Helper()
	buf := sqlitetest.Build(512, tables)
	path := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

func TestOpenParsesHeader(t *testing.T) {
	path := writeTempDB(t, nil)
	p, err := Open(path, true)
	require.NoError(t, err)
	defer p.Close()

	require.Equal(t, uint32(512), p.PageSize())
	require.Equal(t, uint32(1), p.PageCount())
}

func TestReadPageReturnsPageBytes(t *testing.T) {
	path := writeTempDB(t, []sqlitetest.Table{{
		Name: "t", RootPage: 2, SQL: "CREATE TABLE t (a INT)",
		Rows: []sqlitetest.Row{{Rowid: 1, Values: []sqlvalue.Value{sqlvalue.Int(7)}}},
	}})
	p, err := Open(path, true)
	require.NoError(t, err)
	defer p.Close()

	lease, err := p.ReadPage(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, lease.Bytes(), 512)
	require.Equal(t, byte(0x0D), lease.Bytes()[0])
	lease.Release()
}

func TestWritePageRejectedWhenReadOnly(t *testing.T) {
	path := writeTempDB(t, nil)
	p, err := Open(path, true)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.WritePage(context.Background(), 1)
	require.Error(t, err)
}

func TestReadPageOutOfRange(t *testing.T) {
	path := writeTempDB(t, nil)
	p, err := Open(path, true)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.ReadPage(context.Background(), 99)
	require.Error(t, err)
}

func TestConcurrentReadsDoNotBlockEachOther(t *testing.T) {
	path := writeTempDB(t, nil)
	p, err := Open(path, true)
	require.NoError(t, err)
	defer p.Close()

	l1, err := p.ReadPage(context.Background(), 1)
	require.NoError(t, err)
	l2, err := p.ReadPage(context.Background(), 1)
	require.NoError(t, err)
	l1.Release()
	l2.Release()
}
