package favorites

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	favsvc "autostand-backend/internal/application/favorites"
	"autostand-backend/internal/domain"
	"autostand-backend/internal/infrastructure/database"
	"autostand-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func withActor(actor domain.Actor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		middleware.SetActor(c, actor)
		return c.Next()
	}
}

func setupFavoritesTest(t *testing.T) *fiber.App {
	t.Helper()
	db, err := database.Open("sqlite::memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	u := domain.User{Name: "Ana", Surname: "Costa", Username: "ana", Email: "ana@example.com", PasswordHash: "x", EmailValidated: true}
	require.NoError(t, db.Create(&u).Error)

	h := &Handlers{Service: &favsvc.Service{DB: db}}
	app := fiber.New()
	app.Use(withActor(u.Actor()))
	app.Post("/favorites/brands", h.AddBrand)
	app.Get("/favorites/brands", h.ListBrands)
	app.Delete("/favorites/brands/:id", h.RemoveBrand)
	app.Post("/favorites/filters", h.SaveFilter)
	app.Get("/favorites/filters", h.ListFilters)
	app.Delete("/favorites/filters/:id", h.RemoveFilter)
	return app
}

func TestFavoriteBrands(t *testing.T) {
	app := setupFavoritesTest(t)

	status, out := doJSON(t, app, "POST", "/favorites/brands", map[string]string{"brand": "Peugeot"})
	require.Equal(t, fiber.StatusCreated, status)
	id := out["data"].(map[string]interface{})["favorite_id"].(string)

	status, _ = doJSON(t, app, "POST", "/favorites/brands", map[string]string{"brand": "peugeot"})
	assert.Equal(t, fiber.StatusConflict, status)

	status, out = doJSON(t, app, "GET", "/favorites/brands", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, out["data"], 1)

	status, _ = doJSON(t, app, "DELETE", "/favorites/brands/"+uuid.NewString(), nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = doJSON(t, app, "DELETE", "/favorites/brands/"+id, nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestSavedFilters(t *testing.T) {
	app := setupFavoritesTest(t)

	status, _ := doJSON(t, app, "POST", "/favorites/filters", map[string]interface{}{"name": "Diesel baratos"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, out := doJSON(t, app, "POST", "/favorites/filters", map[string]interface{}{
		"name":    "Diesel baratos",
		"filters": map[string]interface{}{"fuel": "diesel", "price_max": 8000},
	})
	require.Equal(t, fiber.StatusCreated, status)
	id := out["data"].(map[string]interface{})["filter_id"].(string)

	status, out = doJSON(t, app, "GET", "/favorites/filters", nil)
	require.Equal(t, fiber.StatusOK, status)
	rows := out["data"].([]interface{})
	require.Len(t, rows, 1)
	assert.Equal(t, "diesel", rows[0].(map[string]interface{})["filters"].(map[string]interface{})["fuel"])

	status, _ = doJSON(t, app, "DELETE", "/favorites/filters/"+id, nil)
	assert.Equal(t, fiber.StatusOK, status)
}
