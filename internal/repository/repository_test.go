package repository

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitwiz/miniapp-backend/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})

	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestUserRepository_FindByID_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db, testLogger())

	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	user, err := repo.FindByID(context.Background(), 42)
	assert.Nil(t, user)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_FindByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db, testLogger())

	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "name", "username", "balance", "blocked", "deals", "adverts", "user_pic", "created_at"}).
		AddRow(int64(7), "Анна", "anna", int64(0), false, int64(0), int64(2), nil, created)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	user, err := repo.FindByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Анна", user.Name)
	assert.Equal(t, int64(2), user.Adverts)
	assert.Nil(t, user.UserPic)
	assert.Equal(t, created, user.CreatedAt)
}

func TestUserRepository_IncrementAdverts(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	columns := []string{"id", "name", "username", "balance", "blocked", "deals", "adverts", "user_pic", "created_at"}

	t.Run("existing user", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewUserRepository(db, testLogger())

		mock.ExpectQuery(regexp.QuoteMeta("UPDATE users SET adverts = adverts + 1")).
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(5), "Ivan", "ivan", int64(0), false, int64(0), int64(3), nil, created))

		user, err := repo.IncrementAdverts(context.Background(), 5)
		require.NoError(t, err)
		assert.Equal(t, int64(3), user.Adverts)
	})

	t.Run("missing user", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewUserRepository(db, testLogger())

		mock.ExpectQuery(regexp.QuoteMeta("UPDATE users SET adverts = adverts + 1")).
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows(columns))

		user, err := repo.IncrementAdverts(context.Background(), 5)
		assert.Nil(t, user)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestAdvertRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAdvertRepository(db, testLogger())

	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO adverts")).
		WithArgs(int64(1), "Ivan", "Drill", "", int64(500), int64(0), "day", "tools", true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(11), created))

	advert := &domain.Advert{
		OwnerID:   1,
		OwnerName: "Ivan",
		Title:     "Drill",
		Price:     500,
		Period:    domain.DefaultAdvertPeriod,
		Category:  "tools",
		Available: true,
	}

	require.NoError(t, repo.Create(context.Background(), advert))
	assert.Equal(t, int64(11), advert.ID)
	assert.Equal(t, created, advert.CreatedAt)
}

func TestAdvertRepository_Delete_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAdvertRepository(db, testLogger())

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM adverts")).
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), 99), ErrNotFound)
}

func TestAdvertRepository_ListEmpty(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAdvertRepository(db, testLogger())

	mock.ExpectQuery(regexp.QuoteMeta("FROM adverts ORDER BY id")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	adverts, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, adverts)
	assert.Empty(t, adverts)
}

func TestChatRepository_SearchEscapesWildcards(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewChatRepository(db, testLogger())

	mock.ExpectQuery(regexp.QuoteMeta("ILIKE")).
		WithArgs(int64(3), `%50\%\_off%`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	chats, err := repo.SearchByPartnerName(context.Background(), 3, "50%_off")
	require.NoError(t, err)
	assert.Empty(t, chats)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `a\\b`, EscapeLike(`a\b`))
	assert.Equal(t, `\%\_`, EscapeLike(`%_`))
	assert.Equal(t, "Иван", EscapeLike("Иван"))
}

func TestChatRepository_FindForParticipant_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewChatRepository(db, testLogger())

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND (user1_id = $2 OR user2_id = $2)")).
		WithArgs(int64(10), int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	chat, err := repo.FindForParticipant(context.Background(), 10, 4)
	assert.Nil(t, chat)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMessageRepository_MarkRead(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewMessageRepository(db, testLogger())

	mock.ExpectExec(regexp.QuoteMeta("UPDATE messages SET read = TRUE")).
		WithArgs(int64(10), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.MarkRead(context.Background(), 10, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestMessageRepository_LastOnEmptyChat(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewMessageRepository(db, testLogger())

	mock.ExpectQuery(regexp.QuoteMeta("FROM messages WHERE chat_id = $1 ORDER BY created_at DESC")).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	msg, err := repo.Last(context.Background(), 10)
	assert.Nil(t, msg)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatusRepository_Upsert(t *testing.T) {
	testCases := []struct {
		name     string
		inserted bool
	}{
		{name: "first report creates the row", inserted: true},
		{name: "subsequent report updates it", inserted: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := NewStatusRepository(db, testLogger())

			seen := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
			rows := sqlmock.NewRows([]string{"id", "user_id", "user_name", "online", "last_seen", "inserted"}).
				AddRow(int64(1), int64(8), "Oleg", true, seen, tc.inserted)

			mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (user_id) DO UPDATE")).
				WithArgs(int64(8), "Oleg", true).
				WillReturnRows(rows)

			status, created, err := repo.Upsert(context.Background(), 8, "Oleg", true)
			require.NoError(t, err)
			assert.Equal(t, tc.inserted, created)
			assert.True(t, status.Online)
			assert.Equal(t, seen, status.LastSeen)
		})
	}
}
