package middleware

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_PersistsAfterLogin(t *testing.T) {
	_, rdb := newRedis(t)
	app := fiber.New()
	app.Use(Session(rdb))
	var sid string
	app.Post("/login", func(c *fiber.Ctx) error {
		sid = RegenerateSessionID(c)
		SetSessionUser(c, SessionUser{UserID: "550e8400-e29b-41d4-a716-446655440000", Name: "Ana"})
		return c.SendStatus(200)
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	require.NotEmpty(t, sid)

	raw, err := rdb.Get(context.Background(), SessionRedisPrefix+sid).Bytes()
	require.NoError(t, err)
	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &data))
	user := data["user"].(map[string]interface{})
	assert.Equal(t, "Ana", user["name"])
	ttl := rdb.TTL(context.Background(), SessionRedisPrefix+sid).Val()
	assert.Greater(t, ttl.Hours(), 23.0)
}

func TestSession_AnonymousNotPersisted(t *testing.T) {
	mr, rdb := newRedis(t)
	app := fiber.New()
	app.Use(Session(rdb))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(200) })

	_, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Empty(t, mr.Keys())
}

func TestLockout_BlockRevokesSessions(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx := context.Background()
	userID := uuid.New()
	require.NoError(t, rdb.Set(ctx, SessionRedisPrefix+"a", "{}", 0).Err())
	require.NoError(t, rdb.Set(ctx, SessionRedisPrefix+"b", "{}", 0).Err())
	require.NoError(t, rdb.Set(ctx, SessionRedisPrefix+"other", "{}", 0).Err())
	require.NoError(t, rdb.SAdd(ctx, UserSessionsPrefix+userID.String(), "a", "b").Err())

	l := &Lockout{Rdb: rdb}
	require.NoError(t, l.Block(ctx, userID))

	assert.False(t, mr.Exists(SessionRedisPrefix+"a"))
	assert.False(t, mr.Exists(SessionRedisPrefix+"b"))
	assert.True(t, mr.Exists(SessionRedisPrefix+"other"))
	assert.False(t, mr.Exists(UserSessionsPrefix+userID.String()))
	assert.True(t, mr.Exists(BlockedUserPrefix+userID.String()))

	require.NoError(t, l.Unblock(ctx, userID))
	assert.False(t, mr.Exists(BlockedUserPrefix+userID.String()))
}

func TestLockout_NilIsNoop(t *testing.T) {
	var l *Lockout
	assert.NoError(t, l.Block(context.Background(), uuid.New()))
}
