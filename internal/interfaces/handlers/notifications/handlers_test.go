package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	notifsvc "autostand-backend/internal/application/notifications"
	"autostand-backend/internal/domain"
	"autostand-backend/internal/infrastructure/database"
	"autostand-backend/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupNotificationsTest(t *testing.T) (*Handlers, domain.User) {
	t.Helper()
	db, err := database.Open("sqlite::memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	u := domain.User{Name: "Ana", Surname: "Costa", Username: "ana", Email: "ana@example.com", PasswordHash: "x", EmailValidated: true}
	require.NoError(t, db.Create(&u).Error)

	svc := &notifsvc.Service{DB: db, Rdb: rdb}
	for _, title := range []string{"Um", "Dois", "Tres"} {
		require.NoError(t, svc.Notify(context.Background(), db, notifsvc.Notice{
			RecipientID: u.UserID,
			Type:        notifsvc.TypeNewMessage,
			Title:       title,
			Message:     "Nova mensagem",
		}))
	}
	return &Handlers{Service: svc}, u
}

func newApp(h *Handlers, actor *domain.Actor) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if actor != nil {
			middleware.SetActor(c, *actor)
		}
		return c.Next()
	})
	app.Get("/notifications", h.List)
	app.Get("/notifications/unread-count", h.UnreadCount)
	app.Patch("/notifications/read", h.MarkRead)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestList_RequiresActor(t *testing.T) {
	h, _ := setupNotificationsTest(t)
	status, _ := doJSON(t, newApp(h, nil), "GET", "/notifications", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestListAndMarkRead(t *testing.T) {
	h, u := setupNotificationsTest(t)
	actor := u.Actor()
	app := newApp(h, &actor)

	status, out := doJSON(t, app, "GET", "/notifications?unread=true", nil)
	require.Equal(t, fiber.StatusOK, status)
	rows := out["data"].([]interface{})
	require.Len(t, rows, 3)

	status, out = doJSON(t, app, "GET", "/notifications/unread-count", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(3), out["data"].(map[string]interface{})["count"])

	first := rows[0].(map[string]interface{})["notification_id"].(string)
	status, out = doJSON(t, app, "PATCH", "/notifications/read", map[string]string{"id": first})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(1), out["data"].(map[string]interface{})["updated"])

	status, _ = doJSON(t, app, "PATCH", "/notifications/read", map[string]string{"id": uuid.NewString()})
	assert.Equal(t, fiber.StatusNotFound, status)

	status, out = doJSON(t, app, "PATCH", "/notifications/read", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(2), out["data"].(map[string]interface{})["updated"])

	status, out = doJSON(t, app, "GET", "/notifications/unread-count", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(0), out["data"].(map[string]interface{})["count"])
}
