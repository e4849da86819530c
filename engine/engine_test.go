package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kavelabs/litesql/dberr"
	"github.com/kavelabs/litesql/internal/sqlitetest"
	"github.com/kavelabs/litesql/sqlvalue"
)

func openTestDB(t *testing.T, tables []sqlitetest.Table) *Engine {
	t.Helper()
	buf := sqlitetest.Build(512, tables)
	path := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	eng, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	return eng
}

func usersTable() sqlitetest.Table {
	return sqlitetest.Table{
		Name:     "users",
		RootPage: 2,
		SQL:      "CREATE TABLE users (id INT, name TEXT)",
		Rows: []sqlitetest.Row{
			{Rowid: 1, Values: []sqlvalue.Value{sqlvalue.Int(1), sqlvalue.Text("alice")}},
			{Rowid: 2, Values: []sqlvalue.Value{sqlvalue.Int(2), sqlvalue.Text("bob")}},
		},
	}
}

func TestScenarioSelectStar(t *testing.T) {
	eng := openTestDB(t, []sqlitetest.Table{usersTable()})
	rs, err := eng.Run(context.Background(), "SELECT * FROM users;")
	require.NoError(t, err)
	require.Equal(t, []string{"id", "name"}, rs.Columns)
	require.Len(t, rs.Rows, 2)
	require.Equal(t, "alice", rs.Rows[0][1].S)
}

func TestScenarioSelectColumnsWithWhere(t *testing.T) {
	eng := openTestDB(t, []sqlitetest.Table{usersTable()})
	rs, err := eng.Run(context.Background(), "SELECT name FROM users WHERE id = 2;")
	require.NoError(t, err)
	require.Equal(t, []string{"name"}, rs.Columns)
	require.Len(t, rs.Rows, 1)
	require.Equal(t, "bob", rs.Rows[0][0].S)
}

func TestScenarioFromLessConstantSelect(t *testing.T) {
	eng := openTestDB(t, nil)
	rs, err := eng.Run(context.Background(), "SELECT 1+2*3;")
	require.NoError(t, err)
	require.Len(t, rs.Rows, 1)
	require.Equal(t, int64(7), rs.Rows[0][0].I)
}

func TestScenarioUnknownTable(t *testing.T) {
	eng := openTestDB(t, nil)
	_, err := eng.Run(context.Background(), "SELECT * FROM missing;")
	require.Error(t, err)
}

func TestScenarioInsertThenSelect(t *testing.T) {
	eng := openTestDB(t, []sqlitetest.Table{usersTable()})
	_, err := eng.Run(context.Background(), "INSERT INTO users VALUES (3, 'carol');")
	require.NoError(t, err)

	rs, err := eng.Run(context.Background(), "SELECT name FROM users WHERE id = 3;")
	require.NoError(t, err)
	require.Len(t, rs.Rows, 1)
	require.Equal(t, "carol", rs.Rows[0][0].S)
}

func TestScenarioTablesLists(t *testing.T) {
	eng := openTestDB(t, []sqlitetest.Table{usersTable()})
	require.Equal(t, []string{"users"}, eng.Tables())
}

func strictCountsTable() sqlitetest.Table {
	return sqlitetest.Table{
		Name:     "counts",
		RootPage: 2,
		SQL:      "CREATE TABLE counts (n INT) STRICT",
		Rows:     []sqlitetest.Row{{Rowid: 1, Values: []sqlvalue.Value{sqlvalue.Int(1)}}},
	}
}

func TestScenarioStrictInsertTypeMismatchRejected(t *testing.T) {
	eng := openTestDB(t, []sqlitetest.Table{strictCountsTable()})
	_, err := eng.Run(context.Background(), "INSERT INTO counts VALUES ('x');")
	require.Error(t, err)
	require.True(t, dberr.Is(err, dberr.KindTypeMismatch))

	// The rejected insert must not have mutated the table.
	rs, err := eng.Run(context.Background(), "SELECT * FROM counts;")
	require.NoError(t, err)
	require.Len(t, rs.Rows, 1)
}

func TestScenarioStrictInsertMatchingTypeAccepted(t *testing.T) {
	eng := openTestDB(t, []sqlitetest.Table{strictCountsTable()})
	_, err := eng.Run(context.Background(), "INSERT INTO counts VALUES (2);")
	require.NoError(t, err)

	rs, err := eng.Run(context.Background(), "SELECT * FROM counts;")
	require.NoError(t, err)
	require.Len(t, rs.Rows, 2)
}

func TestScenarioStrictInsertNullAlwaysAccepted(t *testing.T) {
	eng := openTestDB(t, []sqlitetest.Table{strictCountsTable()})
	_, err := eng.Run(context.Background(), "INSERT INTO counts VALUES (NULL);")
	require.NoError(t, err)
}
