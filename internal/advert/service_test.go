package advert

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitwiz/miniapp-backend/internal/domain"
	apperrors "github.com/kitwiz/miniapp-backend/internal/errors"
	"github.com/kitwiz/miniapp-backend/internal/testutil"
	"github.com/kitwiz/miniapp-backend/internal/user"
)

func newService(store *testutil.Store) *Service {
	users := user.NewService(store.Users(), nil, testutil.Logger())
	return NewService(store.Adverts(), users, testutil.Logger())
}

func ptr[T any](v T) *T { return &v }

func TestCreate_DefaultsAndCounter(t *testing.T) {
	store := testutil.NewStore()
	store.AddUser(domain.User{ID: 1, Name: "Ivan"})
	svc := newService(store)

	advert, err := svc.Create(context.Background(), CreateInput{
		OwnerID:   1,
		OwnerName: "Ivan",
		Title:     "Drill",
		Price:     500,
	})
	require.NoError(t, err)

	assert.NotZero(t, advert.ID)
	assert.Equal(t, "day", advert.Period)
	assert.True(t, advert.Available)
	assert.False(t, advert.CreatedAt.IsZero())

	owner, _ := store.User(1)
	assert.Equal(t, int64(1), owner.Adverts)
}

func TestCreate_TwoAdvertsBumpCounterByTwo(t *testing.T) {
	store := testutil.NewStore()
	store.AddUser(domain.User{ID: 1, Name: "Ivan", Adverts: 4})
	svc := newService(store)
	ctx := context.Background()

	for _, title := range []string{"Drill", "Ladder"} {
		_, err := svc.Create(ctx, CreateInput{OwnerID: 1, OwnerName: "Ivan", Title: title})
		require.NoError(t, err)
	}

	owner, _ := store.User(1)
	assert.Equal(t, int64(6), owner.Adverts)

	adverts, err := svc.ListByOwner(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, adverts, 2)
}

func TestCreate_ExplicitPeriodAndAvailability(t *testing.T) {
	store := testutil.NewStore()
	store.AddUser(domain.User{ID: 1, Name: "Ivan"})
	svc := newService(store)

	advert, err := svc.Create(context.Background(), CreateInput{
		OwnerID:   1,
		OwnerName: "Ivan",
		Title:     "Tent",
		Period:    ptr("week"),
		Available: ptr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "week", advert.Period)
	assert.False(t, advert.Available)
}

func TestCreate_UnknownOwnerKeepsAdvert(t *testing.T) {
	store := testutil.NewStore()
	svc := newService(store)

	_, err := svc.Create(context.Background(), CreateInput{OwnerID: 404, OwnerName: "Ghost", Title: "Bike"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperrors.StatusCode(err))
	assert.Equal(t, MsgOwnerNotFound, apperrors.PublicMessage(err))
	assert.Equal(t, 1, store.AdvertCount())
}

func TestCreate_Validation(t *testing.T) {
	testCases := []struct {
		name    string
		in      CreateInput
		wantMsg string
	}{
		{name: "missing owner", in: CreateInput{OwnerName: "A", Title: "T"}, wantMsg: "owner_id is required"},
		{name: "missing title", in: CreateInput{OwnerID: 1, OwnerName: "A"}, wantMsg: "title is required"},
		{name: "negative price", in: CreateInput{OwnerID: 1, OwnerName: "A", Title: "T", Price: -1}, wantMsg: "price must be >= 0"},
		{name: "long title", in: CreateInput{OwnerID: 1, OwnerName: "A", Title: strings.Repeat("т", 129)}, wantMsg: "title must be at most 128 characters"},
		{name: "long owner name", in: CreateInput{OwnerID: 1, OwnerName: strings.Repeat("ж", 65), Title: "T"}, wantMsg: "owner_name must be at most 64 characters"},
		{name: "long period", in: CreateInput{OwnerID: 1, OwnerName: "A", Title: "T", Period: ptr(strings.Repeat("d", 29))}, wantMsg: "period must be at most 28 characters"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			store := testutil.NewStore()
			_, err := newService(store).Create(context.Background(), tc.in)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
			assert.Contains(t, apperrors.PublicMessage(err), tc.wantMsg)
			assert.Zero(t, store.AdvertCount())
		})
	}
}

func TestUpdate_AppliesOnlyPatchedFields(t *testing.T) {
	store := testutil.NewStore()
	store.AddUser(domain.User{ID: 1, Name: "Ivan"})
	svc := newService(store)

	created, err := svc.Create(context.Background(), CreateInput{OwnerID: 1, OwnerName: "Ivan", Title: "Drill", Price: 500, Category: "tools"})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, domain.AdvertPatch{Price: ptr(int64(700)), Available: ptr(false)})
	require.NoError(t, err)

	assert.Equal(t, int64(700), updated.Price)
	assert.False(t, updated.Available)
	assert.Equal(t, "Drill", updated.Title)
	assert.Equal(t, "tools", updated.Category)
	assert.Equal(t, int64(1), updated.OwnerID)
}

func TestUpdate_RejectsOverlongFields(t *testing.T) {
	store := testutil.NewStore()
	store.AddUser(domain.User{ID: 1, Name: "Ivan"})
	svc := newService(store)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{OwnerID: 1, OwnerName: "Ivan", Title: "Drill", Description: strings.Repeat("я", 512)})
	require.NoError(t, err)

	_, err = svc.Update(ctx, created.ID, domain.AdvertPatch{Description: ptr(strings.Repeat("я", 513))})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperrors.StatusCode(err))
	assert.Equal(t, "description must be at most 512 characters", apperrors.PublicMessage(err))

	stored, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("я", 512), stored.Description)
}

func TestGetUpdateDelete_NotFound(t *testing.T) {
	svc := newService(testutil.NewStore())
	ctx := context.Background()

	_, err := svc.Get(ctx, 9)
	assert.Equal(t, http.StatusNotFound, apperrors.StatusCode(err))
	assert.Equal(t, MsgNotFound, apperrors.PublicMessage(err))

	_, err = svc.Update(ctx, 9, domain.AdvertPatch{Title: ptr("x")})
	assert.Equal(t, http.StatusNotFound, apperrors.StatusCode(err))

	err = svc.Delete(ctx, 9)
	assert.Equal(t, http.StatusNotFound, apperrors.StatusCode(err))
}

func TestListByOwner_NewestFirst(t *testing.T) {
	store := testutil.NewStore()
	store.AddUser(domain.User{ID: 1, Name: "Ivan"})
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	store.Now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	svc := newService(store)

	first, err := svc.Create(context.Background(), CreateInput{OwnerID: 1, OwnerName: "Ivan", Title: "A"})
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), CreateInput{OwnerID: 1, OwnerName: "Ivan", Title: "B"})
	require.NoError(t, err)

	adverts, err := svc.ListByOwner(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, adverts, 2)
	assert.Equal(t, second.ID, adverts[0].ID)
	assert.Equal(t, first.ID, adverts[1].ID)
}

func TestList_StorageFailure(t *testing.T) {
	store := testutil.NewStore()
	store.Err = errors.New("connection reset")

	_, err := newService(store).List(context.Background())
	assert.Equal(t, http.StatusInternalServerError, apperrors.StatusCode(err))
	assert.True(t, apperrors.Is(err, apperrors.CodeDatabase))
}
