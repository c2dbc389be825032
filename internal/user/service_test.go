package user

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/kitwiz/miniapp-backend/internal/domain"
	"github.com/kitwiz/miniapp-backend/internal/repository"
	"github.com/kitwiz/miniapp-backend/internal/testutil"
	"github.com/kitwiz/miniapp-backend/internal/usercache"
	appredis "github.com/kitwiz/miniapp-backend/pkg/redis"
)

func newCache(t *testing.T) *usercache.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return usercache.NewCache(appredis.Wrap(rdb))
}

// racingUsers runs a concurrent writer between the profile SELECT and its return.
type racingUsers struct {
	repository.UserRepository
	afterRead func()
}

func (r *racingUsers) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := r.UserRepository.FindByID(ctx, id)
	if r.afterRead != nil {
		write := r.afterRead
		r.afterRead = nil
		write()
	}
	return user, err
}

func TestGetOrCreate(t *testing.T) {
	store := testutil.NewStore()
	svc := NewService(store.Users(), nil, testutil.Logger())
	ctx := context.Background()

	created, isNew, err := svc.GetOrCreate(ctx, &telebot.User{ID: 7, FirstName: "Анна", Username: "anna"})
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, "Анна", created.Name)

	again, isNew, err := svc.GetOrCreate(ctx, &telebot.User{ID: 7, FirstName: "Other"})
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, "Анна", again.Name)

	_, _, err = svc.GetOrCreate(ctx, nil)
	assert.Error(t, err)
}

func TestGet_NotFound(t *testing.T) {
	svc := NewService(testutil.NewStore().Users(), nil, testutil.Logger())

	_, err := svc.Get(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.IncrementAdverts(context.Background(), 404), ErrNotFound)
}

func TestIncrementAdverts_RefreshesCachedProfile(t *testing.T) {
	store := testutil.NewStore()
	store.AddUser(domain.User{ID: 7, Name: "Анна"})
	svc := NewService(store.Users(), newCache(t), testutil.Logger())
	ctx := context.Background()

	before, err := svc.Get(ctx, 7)
	require.NoError(t, err)
	assert.Zero(t, before.Adverts)

	require.NoError(t, svc.IncrementAdverts(ctx, 7))
	require.NoError(t, svc.IncrementAdverts(ctx, 7))

	after, err := svc.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), after.Adverts)
}

func TestGet_ReadRacingIncrementServesFreshValue(t *testing.T) {
	store := testutil.NewStore()
	store.AddUser(domain.User{ID: 7, Name: "Анна"})
	users := &racingUsers{UserRepository: store.Users()}
	svc := NewService(users, newCache(t), testutil.Logger())
	ctx := context.Background()

	users.afterRead = func() {
		require.NoError(t, svc.IncrementAdverts(ctx, 7))
	}

	stale, err := svc.Get(ctx, 7)
	require.NoError(t, err)
	assert.Zero(t, stale.Adverts)

	got, err := svc.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Adverts)
}
