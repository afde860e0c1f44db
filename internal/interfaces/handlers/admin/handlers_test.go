package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	adminsvc "autostand-backend/internal/application/admin"
	notifsvc "autostand-backend/internal/application/notifications"
	"autostand-backend/internal/domain"
	"autostand-backend/internal/infrastructure/database"
	"autostand-backend/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	h      *Handlers
	db     *gorm.DB
	rdb    *redis.Client
	admin  domain.User
	seller domain.User
	buyer  domain.User
}

func setupAdminTest(t *testing.T) *testEnv {
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

	env := &testEnv{db: db, rdb: rdb}
	env.admin = domain.User{Name: "Marta", Surname: "Reis", Username: "marta", Email: "marta@example.com", PasswordHash: "x", EmailValidated: true, Admin: true}
	env.seller = domain.User{Name: "Rui", Surname: "Sousa", Username: "rui", Email: "rui@example.com", PasswordHash: "x", EmailValidated: true, Seller: true}
	env.buyer = domain.User{Name: "Ana", Surname: "Costa", Username: "ana", Email: "ana@example.com", PasswordHash: "x", EmailValidated: true}
	for _, u := range []*domain.User{&env.admin, &env.seller, &env.buyer} {
		require.NoError(t, db.Create(u).Error)
	}

	env.h = &Handlers{Service: &adminsvc.Service{
		DB:       db,
		Lockout:  &middleware.Lockout{Rdb: rdb},
		Notifier: &notifsvc.Service{DB: db},
	}}
	return env
}

func (e *testEnv) app(actor domain.Actor) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		middleware.SetActor(c, actor)
		return c.Next()
	})
	app.Get("/admin/verify", e.h.Verify)
	app.Get("/admin/users", e.h.ListUsers)
	app.Post("/admin/users", e.h.CreateAdmin)
	app.Post("/admin/users/:id/block", e.h.BlockUser)
	app.Post("/admin/users/:id/unblock", e.h.UnblockUser)
	app.Post("/admin/users/:id/approve-seller", e.h.ApproveSeller)
	app.Post("/admin/users/:id/promote", e.h.Promote)
	app.Get("/admin/listings", e.h.ListListings)
	app.Post("/admin/listings/:id/moderate", e.h.ModerateListing)
	app.Get("/admin/stats", e.h.Stats)
	app.Get("/admin/actions", e.h.Actions)
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

func TestVerifyAndUsers(t *testing.T) {
	env := setupAdminTest(t)
	app := env.app(env.admin.Actor())

	status, out := doJSON(t, app, "GET", "/admin/verify", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, out["data"].(map[string]interface{})["admin"])

	status, out = doJSON(t, app, "GET", "/admin/users?q=SOUSA", nil)
	require.Equal(t, fiber.StatusOK, status)
	rows := out["data"].([]interface{})
	require.Len(t, rows, 1)
	assert.Equal(t, "rui", rows[0].(map[string]interface{})["username"])
	assert.NotContains(t, rows[0].(map[string]interface{}), "password_hash")
}

func TestNonAdminForbidden(t *testing.T) {
	env := setupAdminTest(t)
	status, _ := doJSON(t, env.app(env.buyer.Actor()), "GET", "/admin/stats", nil)
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestBlockAndUnblock(t *testing.T) {
	env := setupAdminTest(t)
	ctx := context.Background()
	require.NoError(t, env.rdb.SAdd(ctx, middleware.UserSessionsPrefix+env.buyer.UserID.String(), "sid-9").Err())
	require.NoError(t, env.rdb.Set(ctx, middleware.SessionRedisPrefix+"sid-9", "{}", 0).Err())
	app := env.app(env.admin.Actor())
	path := "/admin/users/" + env.buyer.UserID.String()

	status, out := doJSON(t, app, "POST", path+"/block", map[string]string{"reason": ""})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, out["error"].(map[string]interface{})["details"], "reason")

	status, _ = doJSON(t, app, "POST", path+"/block", map[string]string{"reason": "Fraude"})
	require.Equal(t, fiber.StatusOK, status)
	n, err := env.rdb.Exists(ctx, middleware.SessionRedisPrefix+"sid-9", middleware.BlockedUserPrefix+env.buyer.UserID.String()).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	status, _ = doJSON(t, app, "POST", path+"/unblock", nil)
	require.Equal(t, fiber.StatusOK, status)
	n, err = env.rdb.Exists(ctx, middleware.BlockedUserPrefix+env.buyer.UserID.String()).Result()
	require.NoError(t, err)
	assert.Zero(t, n)

	var u domain.User
	require.NoError(t, env.db.Where("user_id = ?", env.buyer.UserID).First(&u).Error)
	assert.False(t, u.Blocked)
}

func TestApproveSellerAndPromote(t *testing.T) {
	env := setupAdminTest(t)
	app := env.app(env.admin.Actor())

	status, out := doJSON(t, app, "POST", "/admin/users/"+env.seller.UserID.String()+"/approve-seller", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, out["data"].(map[string]interface{})["seller_approved"])

	status, _ = doJSON(t, app, "POST", "/admin/users/"+env.buyer.UserID.String()+"/approve-seller", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = doJSON(t, app, "POST", "/admin/users/"+env.buyer.UserID.String()+"/promote", nil)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = doJSON(t, app, "POST", "/admin/users/"+env.buyer.UserID.String()+"/promote", nil)
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = doJSON(t, app, "POST", "/admin/users/not-a-uuid/promote", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestCreateAdmin(t *testing.T) {
	env := setupAdminTest(t)
	app := env.app(env.admin.Actor())
	body := map[string]string{"name": "Joana", "surname": "Lopes", "username": "joana", "email": "joana@example.com", "password": "Segura123!"}

	status, out := doJSON(t, app, "POST", "/admin/users", body)
	require.Equal(t, fiber.StatusCreated, status)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, true, data["admin"])

	status, _ = doJSON(t, app, "POST", "/admin/users", body)
	assert.Equal(t, fiber.StatusConflict, status)
}

func TestModerateListing(t *testing.T) {
	env := setupAdminTest(t)
	listing := domain.Listing{OwnerID: env.seller.UserID, Title: "Corsa", Brand: "Opel", Model: "Corsa", Year: 2012, Status: domain.ListingActive}
	require.NoError(t, env.db.Create(&listing).Error)
	app := env.app(env.admin.Actor())
	path := "/admin/listings/" + listing.ListingID.String() + "/moderate"

	status, out := doJSON(t, app, "POST", path, map[string]string{"action": "pausar", "reason": "Fotos enganosas"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, domain.ListingPaused, out["data"].(map[string]interface{})["listing"].(map[string]interface{})["status"])

	status, out = doJSON(t, app, "GET", "/admin/listings?status=pausado", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, out["data"].([]interface{}), 1)

	status, _ = doJSON(t, app, "POST", path, map[string]string{"action": "archive"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, out = doJSON(t, app, "POST", path, map[string]string{"action": "remove"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Listing removed", out["message"])

	var notes []domain.Notification
	require.NoError(t, env.db.Where("recipient_id = ?", env.seller.UserID).Find(&notes).Error)
	assert.Len(t, notes, 2)
}

func TestStatsAndActions(t *testing.T) {
	env := setupAdminTest(t)
	app := env.app(env.admin.Actor())

	status, _ := doJSON(t, app, "POST", "/admin/users/"+env.buyer.UserID.String()+"/promote", nil)
	require.Equal(t, fiber.StatusOK, status)

	status, out := doJSON(t, app, "GET", "/admin/stats", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, out["data"], "active_listings")

	status, out = doJSON(t, app, "GET", "/admin/actions?limit=5", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, out["data"].([]interface{}), 1)

	status, _ = doJSON(t, app, "GET", "/admin/actions?limit=1000", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}
