package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/kitwiz/miniapp-backend/internal/advert"
	"github.com/kitwiz/miniapp-backend/internal/auth"
	"github.com/kitwiz/miniapp-backend/internal/chat"
	"github.com/kitwiz/miniapp-backend/internal/domain"
	apperrors "github.com/kitwiz/miniapp-backend/internal/errors"
	"github.com/kitwiz/miniapp-backend/internal/i18n"
	"github.com/kitwiz/miniapp-backend/internal/idempotency"
	"github.com/kitwiz/miniapp-backend/internal/lifecycle"
	"github.com/kitwiz/miniapp-backend/internal/middleware"
	"github.com/kitwiz/miniapp-backend/internal/testutil"
	"github.com/kitwiz/miniapp-backend/internal/user"
	appredis "github.com/kitwiz/miniapp-backend/pkg/redis"
)

const testBotToken = "123456:TEST-TOKEN"

var fixedNow = time.Date(2024, 5, 1, 12, 34, 0, 0, time.UTC)

type recordingBot struct {
	secret  string
	updates []telebot.Update
}

func (b *recordingBot) ProcessUpdate(u telebot.Update) { b.updates = append(b.updates, u) }
func (b *recordingBot) SecretToken() string            { return b.secret }

type readiness struct{ err error }

func (r readiness) Ready(context.Context) error { return r.err }

type apiFixture struct {
	t       *testing.T
	store   *testutil.Store
	bot     *recordingBot
	handler http.Handler
}

type fixtureOption func(*Deps)

func newFixture(t *testing.T, opts ...fixtureOption) *apiFixture {
	t.Helper()

	log := testutil.Logger()
	store := testutil.NewStore()
	store.Now = func() time.Time { return fixedNow }

	translations, err := i18n.Load("ru")
	require.NoError(t, err)

	users := user.NewService(store.Users(), nil, log)
	bot := &recordingBot{}

	deps := Deps{
		Adverts:      advert.NewService(store.Adverts(), users, log),
		Chats:        chat.NewService(store.Chats(), store.Messages(), store.Statuses(), nil, log),
		Auth:         auth.NewAuthenticator(testBotToken, 0, users, user.ErrNotFound, log),
		Bot:          bot,
		Health:       lifecycle.NewMonitor(nil, log),
		Translations: translations,
		ErrHandler:   apperrors.NewHandler(log, false),
		Location:     time.UTC,
		Log:          log,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	return &apiFixture{t: t, store: store, bot: bot, handler: NewRouter(deps)}
}

func (f *apiFixture) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	f.t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(f.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (f *apiFixture) seedChat(advertID, user1, user2 int64, name1, name2 string) domain.Chat {
	f.t.Helper()
	c := &domain.Chat{AdvertID: advertID, User1ID: user1, User2ID: user2, User1Name: name1, User2Name: name2}
	require.NoError(f.t, f.store.Chats().Create(context.Background(), c))
	return *c
}

func TestAdverts_CreateGetListDelete(t *testing.T) {
	f := newFixture(t)
	f.store.AddUser(domain.User{ID: 7, Name: "Oleg"})

	rec := f.do(http.MethodPost, "/api/advert/create", map[string]any{
		"owner_id": 7, "owner_name": "Oleg", "title": "Drill", "description": "Bosch",
		"price": 300, "deposit": 1000, "category": "tools",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	assert.Equal(t, "Advert created successfully", created["message"])

	ad := created["advert"].(map[string]any)
	assert.Equal(t, "day", ad["period"])
	assert.Equal(t, true, ad["available"])
	assert.Equal(t, fixedNow.Format(time.RFC3339), ad["created_at"])
	id := int64(ad["id"].(float64))

	u, _ := f.store.User(7)
	assert.Equal(t, int64(1), u.Adverts)

	rec = f.do(http.MethodGet, "/api/advert/get/all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["adverts"], 1)

	rec = f.do(http.MethodGet, "/api/advert/get/user-adverts?owner_id=7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["adverts"], 1)

	rec = f.do(http.MethodDelete, "/api/advert/delete?id="+itoa(id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	deleted := decode(t, rec)
	assert.Equal(t, "Advert deleted successfully", deleted["message"])
	assert.Equal(t, float64(id), deleted["deleted_id"])

	rec = f.do(http.MethodGet, "/api/advert/get/"+itoa(id), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, map[string]any{"error": "Advert not found"}, decode(t, rec))
}

func TestAdverts_CreateForUnknownOwnerKeepsAdvert(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/advert/create", map[string]any{
		"owner_id": 99, "owner_name": "Ghost", "title": "Tent",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "owner not found", decode(t, rec)["error"])
	assert.Equal(t, 1, f.store.AdvertCount())
}

func TestAdverts_QueryParameterErrors(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		method, path string
		status       int
		msg          string
	}{
		{http.MethodGet, "/api/advert/get/user-adverts", http.StatusBadRequest, "owner_id parameter is required"},
		{http.MethodGet, "/api/advert/get/user-adverts?owner_id=abc", http.StatusBadRequest, "Invalid owner_id format"},
		{http.MethodDelete, "/api/advert/delete", http.StatusBadRequest, "ID parameter is required"},
		{http.MethodDelete, "/api/advert/delete?id=x1", http.StatusBadRequest, "Invalid ID format"},
		{http.MethodDelete, "/api/advert/delete?id=404", http.StatusNotFound, "Advert not found"},
		{http.MethodGet, "/api/advert/get/abc", http.StatusBadRequest, "Invalid ID format"},
	}

	for _, tc := range cases {
		rec := f.do(tc.method, tc.path, nil)
		assert.Equal(t, tc.status, rec.Code, tc.path)
		assert.Equal(t, tc.msg, decode(t, rec)["error"], tc.path)
	}
}

func TestAdverts_UpdateAppliesAllowedFieldsOnly(t *testing.T) {
	f := newFixture(t)
	a := &domain.Advert{OwnerID: 7, OwnerName: "Oleg", Title: "Drill", Price: 300, Period: "day", Available: true}
	require.NoError(t, f.store.Adverts().Create(context.Background(), a))

	rec := f.do(http.MethodPut, "/api/advert/update/"+itoa(a.ID), map[string]any{
		"title": "Hammer drill", "available": false, "owner_id": 1, "unknown": "x",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, "Advert updated successfully", body["message"])
	ad := body["advert"].(map[string]any)
	assert.Equal(t, "Hammer drill", ad["title"])
	assert.Equal(t, false, ad["available"])
	assert.Equal(t, float64(7), ad["owner_id"])
	assert.Equal(t, float64(300), ad["price"])

	rec = f.do(http.MethodPut, "/api/advert/update/"+itoa(a.ID), `{"price":"cheap"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPut, "/api/advert/update/9999", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChats_CreateReuseAndList(t *testing.T) {
	f := newFixture(t)

	body := map[string]any{"advert_id": 5, "user1_id": 1, "user2_id": 2, "user1_name": "Anna", "user2_name": "Boris"}

	rec := f.do(http.MethodPost, "/api/chats/create", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decode(t, rec)
	assert.Equal(t, true, first["is_new"])
	chatObj := first["chat"].(map[string]any)
	assert.Equal(t, "Boris", chatObj["name"])
	assert.Equal(t, float64(2), chatObj["partner_id"])

	rec = f.do(http.MethodPost, "/api/chats/create", body)
	second := decode(t, rec)
	assert.Equal(t, false, second["is_new"])
	assert.Equal(t, chatObj["id"], second["chat"].(map[string]any)["id"])
	assert.Equal(t, 1, f.store.ChatCount())

	rec = f.do(http.MethodGet, "/api/chats/2", nil, "Accept-Language", "en-US,en;q=0.9")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec)
	assert.Equal(t, true, list["success"])
	chats := list["chats"].([]any)
	require.Len(t, chats, 1)
	item := chats[0].(map[string]any)
	assert.Equal(t, "Anna", item["name"])
	assert.Equal(t, "No messages", item["last_message"])
	assert.Equal(t, "", item["last_message_time"])
	assert.Equal(t, float64(0), item["unread_count"])
	assert.Equal(t, false, item["online"])
}

func TestChats_CreateRequiresAllFields(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/chats/create", map[string]any{"advert_id": 5, "user1_id": 1})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Необходимы advert_id, user1_id, user2_id, user1_name, user2_name", body["error"])
}

func TestMessages_SendListAndReadState(t *testing.T) {
	f := newFixture(t)
	c := f.seedChat(5, 1, 2, "Anna", "Boris")

	rec := f.do(http.MethodPost, "/api/messages/send", map[string]any{"chat_id": c.ID, "text": "Привет", "sender_id": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sent := decode(t, rec)["message"].(map[string]any)
	assert.Equal(t, true, sent["is_own"])
	assert.Equal(t, "12:34", sent["timestamp"])
	assert.Equal(t, false, sent["read"])

	rec = f.do(http.MethodGet, "/api/chats/2", nil)
	item := decode(t, rec)["chats"].([]any)[0].(map[string]any)
	assert.Equal(t, "Привет", item["last_message"])
	assert.Equal(t, "12:34", item["last_message_time"])
	assert.Equal(t, float64(1), item["unread_count"])

	rec = f.do(http.MethodGet, "/api/chats/"+itoa(c.ID)+"/messages/2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	msgs := decode(t, rec)["messages"].([]any)
	require.Len(t, msgs, 1)
	m := msgs[0].(map[string]any)
	assert.Equal(t, false, m["is_own"])
	assert.Equal(t, false, m["read"], "response carries the state before marking")

	assert.True(t, f.store.MessagesOf(c.ID)[0].Read)

	rec = f.do(http.MethodGet, "/api/chats/2", nil)
	item = decode(t, rec)["chats"].([]any)[0].(map[string]any)
	assert.Equal(t, float64(0), item["unread_count"])
}

func TestMessages_TwoMessagesReadByRecipient(t *testing.T) {
	f := newFixture(t)
	c := f.seedChat(5, 10, 20, "Anna", "Boris")

	for _, text := range []string{"first", "second"} {
		rec := f.do(http.MethodPost, "/api/messages/send", map[string]any{"chat_id": c.ID, "text": text, "sender_id": 10})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := f.do(http.MethodGet, "/api/chats/20", nil)
	item := decode(t, rec)["chats"].([]any)[0].(map[string]any)
	assert.Equal(t, float64(2), item["unread_count"])
	assert.Equal(t, "second", item["last_message"])

	rec = f.do(http.MethodGet, "/api/chats/"+itoa(c.ID)+"/messages/20", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode(t, rec)["messages"].([]any), 2)

	stored := f.store.MessagesOf(c.ID)
	require.Len(t, stored, 2)
	assert.True(t, stored[0].Read)
	assert.True(t, stored[1].Read)

	rec = f.do(http.MethodGet, "/api/chats/"+itoa(c.ID)+"/messages/20", nil)
	msgs := decode(t, rec)["messages"].([]any)
	require.Len(t, msgs, 2)
	for _, raw := range msgs {
		m := raw.(map[string]any)
		assert.Equal(t, true, m["read"])
		assert.Equal(t, false, m["is_own"])
	}

	rec = f.do(http.MethodGet, "/api/chats/20", nil)
	item = decode(t, rec)["chats"].([]any)[0].(map[string]any)
	assert.Equal(t, float64(0), item["unread_count"])

	rec = f.do(http.MethodGet, "/api/chats/10", nil)
	item = decode(t, rec)["chats"].([]any)[0].(map[string]any)
	assert.Equal(t, float64(0), item["unread_count"])
}

func TestAdverts_TwoCreatesBumpOwnerCounter(t *testing.T) {
	f := newFixture(t)
	f.store.AddUser(domain.User{ID: 1, Name: "A"})

	for _, title := range []string{"Bike", "Tent"} {
		rec := f.do(http.MethodPost, "/api/advert/create", map[string]any{
			"owner_id": 1, "owner_name": "A", "title": title, "description": "x",
			"price": 100, "deposit": 50, "category": "tools",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	owner, ok := f.store.User(1)
	require.True(t, ok)
	assert.Equal(t, int64(2), owner.Adverts)

	rec := f.do(http.MethodGet, "/api/advert/get/user-adverts?owner_id=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["adverts"].([]any), 2)
}

func TestMessages_NonParticipantGetsNotFound(t *testing.T) {
	f := newFixture(t)
	c := f.seedChat(5, 1, 2, "Anna", "Boris")

	rec := f.do(http.MethodGet, "/api/chats/"+itoa(c.ID)+"/messages/3", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, map[string]any{"success": false, "error": "Чат не найден"}, decode(t, rec))

	rec = f.do(http.MethodPost, "/api/messages/send", map[string]any{"chat_id": c.ID, "text": "hi", "sender_id": 3},
		"Accept-Language", "en")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Chat not found", decode(t, rec)["error"])
	assert.Empty(t, f.store.MessagesOf(c.ID))
}

func TestMessages_SendValidation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/messages/send", map[string]any{"chat_id": 1, "text": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Необходимы chat_id, text и sender_id", decode(t, rec)["error"])

	rec = f.do(http.MethodPost, "/api/messages/send", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, decode(t, rec)["success"])
}

func TestMessages_SendIsIdempotentWithKey(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := testutil.Logger()
	manager := idempotency.NewManager(idempotency.NewRedisStore(appredis.Wrap(rdb), log), log)

	f := newFixture(t, func(d *Deps) { d.Idempotency = manager })
	c := f.seedChat(5, 1, 2, "Anna", "Boris")
	body := map[string]any{"chat_id": c.ID, "text": "once", "sender_id": 1}

	first := f.do(http.MethodPost, "/api/messages/send", body, middleware.IdempotencyKeyHeader, "k-1")
	second := f.do(http.MethodPost, "/api/messages/send", body, middleware.IdempotencyKeyHeader, "k-1")

	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "true", second.Header().Get(middleware.ReplayedHeader))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Len(t, f.store.MessagesOf(c.ID), 1)

	f.do(http.MethodPost, "/api/messages/send", body)
	assert.Len(t, f.store.MessagesOf(c.ID), 2)
}

func TestMarkRead(t *testing.T) {
	f := newFixture(t)
	c := f.seedChat(5, 1, 2, "Anna", "Boris")
	f.store.AddMessage(domain.Message{ChatID: c.ID, SenderID: 1, Text: "a"})
	f.store.AddMessage(domain.Message{ChatID: c.ID, SenderID: 2, Text: "b"})

	rec := f.do(http.MethodPost, "/api/messages/mark-read", map[string]any{"chat_id": c.ID, "user_id": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"success": true, "message": "Сообщения помечены как прочитанные"}, decode(t, rec))

	for _, m := range f.store.MessagesOf(c.ID) {
		assert.Equal(t, m.SenderID == 1, m.Read, "message from %d", m.SenderID)
	}

	rec = f.do(http.MethodPost, "/api/messages/mark-read", map[string]any{"chat_id": c.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchChats(t *testing.T) {
	f := newFixture(t)
	f.seedChat(5, 1, 2, "Anna", "Boris")
	f.seedChat(6, 3, 1, "Vera", "Anna")

	rec := f.do(http.MethodGet, "/api/chats/search/1?query=bor", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	chats := decode(t, rec)["chats"].([]any)
	require.Len(t, chats, 1)
	assert.Equal(t, "Boris", chats[0].(map[string]any)["name"])

	rec = f.do(http.MethodGet, "/api/chats/search/1?query=", nil)
	assert.Len(t, decode(t, rec)["chats"], 2)

	rec = f.do(http.MethodGet, "/api/chats/search/1?query=%25", nil)
	assert.Len(t, decode(t, rec)["chats"], 0)

	rec = f.do(http.MethodGet, "/api/chats/search/1?query=%20", nil)
	assert.Len(t, decode(t, rec)["chats"], 0, "a space is a search term, not an empty query")
}

func TestUserStatus_UpsertAndGet(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/user-status/2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Пользователь не найден", decode(t, rec)["error"])

	rec = f.do(http.MethodPost, "/api/user-status/update", map[string]any{"user_id": 2, "user_name": "Boris", "online": true})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["is_new"])
	assert.Equal(t, map[string]any{
		"user_id": float64(2), "user_name": "Boris", "online": true, "last_seen": fixedNow.Format(time.RFC3339),
	}, body["status"])

	rec = f.do(http.MethodPost, "/api/user-status/update", map[string]any{"user_id": 2, "user_name": "Boris"})
	body = decode(t, rec)
	assert.Equal(t, false, body["is_new"])
	assert.Equal(t, false, body["status"].(map[string]any)["online"])

	rec = f.do(http.MethodGet, "/api/user-status/2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Boris", decode(t, rec)["status"].(map[string]any)["user_name"])

	rec = f.do(http.MethodPost, "/api/user-status/update", map[string]any{"user_id": 2})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatList_ShowsPartnerOnline(t *testing.T) {
	f := newFixture(t)
	f.seedChat(5, 1, 2, "Anna", "Boris")
	f.do(http.MethodPost, "/api/user-status/update", map[string]any{"user_id": 2, "user_name": "Boris", "online": true})

	rec := f.do(http.MethodGet, "/api/chats/1", nil)
	item := decode(t, rec)["chats"].([]any)[0].(map[string]any)
	assert.Equal(t, true, item["online"])
}

func TestChats_StorageFailureIs500(t *testing.T) {
	f := newFixture(t)
	f.store.Err = errors.New("connection reset")

	rec := f.do(http.MethodGet, "/api/chats/1", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]any{"success": false, "error": "connection reset"}, decode(t, rec))
}

func TestUsersGet_RequiresInitData(t *testing.T) {
	f := newFixture(t)
	f.store.AddUser(domain.User{ID: 42, Name: "Анна", Username: "anna", Adverts: 2})

	rec := f.do(http.MethodGet, "/api/users/get", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, map[string]any{"error": "Unauthorized"}, decode(t, rec))

	forged := testutil.SignInitData("999:OTHER", 42, "Анна", time.Now())
	rec = f.do(http.MethodGet, "/api/users/get", nil, middleware.InitDataHeader, forged)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	unknown := testutil.SignInitData(testBotToken, 43, "Кто-то", time.Now())
	rec = f.do(http.MethodGet, "/api/users/get", nil, middleware.InitDataHeader, unknown)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	valid := testutil.SignInitData(testBotToken, 42, "Анна", time.Now())
	rec = f.do(http.MethodGet, "/api/users/get", nil, middleware.InitDataHeader, valid)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	u := decode(t, rec)["user"].(map[string]any)
	assert.Equal(t, float64(42), u["id"])
	assert.Equal(t, "anna", u["username"])
	assert.Equal(t, float64(2), u["adverts"])
	assert.Nil(t, u["user_pic"])
}

func TestWebhook_ChecksSecretAndForwardsUpdate(t *testing.T) {
	f := newFixture(t)
	f.bot.secret = "s3cret"

	update := `{"update_id":7,"message":{"message_id":1,"date":0,"text":"/start","chat":{"id":42,"type":"private"},"from":{"id":42,"first_name":"Анна"}}}`

	rec := f.do(http.MethodPost, "/webhook", update)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, f.bot.updates)

	rec = f.do(http.MethodPost, "/webhook", update, SecretTokenHeader, "s3cret")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.bot.updates, 1)
	assert.Equal(t, 7, f.bot.updates[0].ID)
	assert.Equal(t, "/start", f.bot.updates[0].Message.Text)

	rec = f.do(http.MethodPost, "/webhook", "garbage", SecretTokenHeader, "s3cret")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnmatchedRoutesAnswerJSON(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/nothing/here", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, map[string]any{"error": "Not found"}, decode(t, rec))

	rec = f.do(http.MethodGet, "/api/messages/send", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, map[string]any{"error": "Method not allowed"}, decode(t, rec))

	rec = f.do(http.MethodPost, "/api/advert/get/all", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestHealthEndpointsAndCORS(t *testing.T) {
	f := newFixture(t, func(d *Deps) {
		d.Health = lifecycle.NewMonitor(readiness{err: errors.New("database: down")}, nil)
		d.AllowedOrigins = []string{"https://app.example.com"}
	})

	rec := f.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "database: down")

	rec = f.do(http.MethodOptions, "/api/messages/send", nil,
		"Origin", "https://app.example.com", "Access-Control-Request-Method", "POST")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.True(t, strings.Contains(rec.Header().Get("Access-Control-Allow-Headers"), "initData"))

	rec = f.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
