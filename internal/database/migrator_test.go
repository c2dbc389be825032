package database

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListMigrations_EmbeddedSchema(t *testing.T) {
	names, err := ListMigrations(Migrations(), ".")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"0001_users.up.sql",
		"0002_adverts.up.sql",
		"0003_chats.up.sql",
		"0004_user_statuses.up.sql",
	}, names)
}

func TestListMigrations_SkipsOtherFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_b.up.sql":   {Data: []byte("SELECT 2")},
		"0001_a.up.sql":   {Data: []byte("SELECT 1")},
		"0001_a.down.sql": {Data: []byte("SELECT 0")},
		"README.md":       {Data: []byte("docs")},
	}

	names, err := ListMigrations(fsys, ".")
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_a.up.sql", "0002_b.up.sql"}, names)
}

func TestMigrator_AppliesOnlyPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	fsys := fstest.MapFS{
		"0001_a.up.sql": {Data: []byte("CREATE TABLE a (id INT)")},
		"0002_b.up.sql": {Data: []byte("CREATE TABLE b (id INT)")},
	}

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM schema_migrations")).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_a.up.sql"))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE b (id INT)")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_migrations (name) VALUES ($1)")).
		WithArgs("0002_b.up.sql").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewMigrator(db, nil).Apply(context.Background(), fsys))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrator_RollsBackFailedMigration(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	fsys := fstest.MapFS{"0001_a.up.sql": {Data: []byte("CREATE TABLE a (")}}

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM schema_migrations")).
		WillReturnRows(sqlmock.NewRows([]string{"name"}))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE a (")).WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	err = NewMigrator(db, nil).Apply(context.Background(), fsys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `execute migration "0001_a.up.sql"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}
