package visits

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	notifsvc "autostand-backend/internal/application/notifications"
	visitsvc "autostand-backend/internal/application/visits"
	"autostand-backend/internal/domain"
	"autostand-backend/internal/infrastructure/database"
	"autostand-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedMarket(t *testing.T) (*gorm.DB, domain.User, domain.User, domain.Listing) {
	t.Helper()
	db, err := database.Open("sqlite::memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	buyer := domain.User{Name: "Ana", Surname: "Costa", Username: "ana", Email: "ana@example.com", PasswordHash: "x", EmailValidated: true}
	seller := domain.User{Name: "Rui", Surname: "Sousa", Username: "rui", Email: "rui@example.com", PasswordHash: "x", EmailValidated: true, Seller: true, SellerApproved: true}
	require.NoError(t, db.Create(&buyer).Error)
	require.NoError(t, db.Create(&seller).Error)
	price := 18500.0
	listing := domain.Listing{OwnerID: seller.UserID, Title: "Civic 1.6 i-DTEC", Brand: "Honda", Model: "Civic", Year: 2019, Price: &price, Status: domain.ListingActive}
	require.NoError(t, db.Create(&listing).Error)
	return db, buyer, seller, listing
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

func withActor(actor domain.Actor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		middleware.SetActor(c, actor)
		return c.Next()
	}
}

func newApp(h *Handlers, actor domain.Actor) *fiber.App {
	app := fiber.New()
	app.Use(withActor(actor))
	app.Post("/visits", h.Schedule)
	app.Get("/visits", h.List)
	return app
}

func TestScheduleVisit(t *testing.T) {
	db, buyer, seller, listing := seedMarket(t)
	h := &Handlers{Service: &visitsvc.Service{DB: db, Notifier: &notifsvc.Service{DB: db}}}

	status, _ := doJSON(t, newApp(h, buyer.Actor()), "POST", "/visits", map[string]string{"listing_id": listing.ListingID.String()})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = doJSON(t, newApp(h, buyer.Actor()), "POST", "/visits", map[string]interface{}{
		"listing_id":   listing.ListingID.String(),
		"scheduled_at": time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
	})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = doJSON(t, newApp(h, seller.Actor()), "POST", "/visits", map[string]interface{}{
		"listing_id":   listing.ListingID.String(),
		"scheduled_at": time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
	})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = doJSON(t, newApp(h, buyer.Actor()), "POST", "/visits", map[string]interface{}{
		"listing_id":   listing.ListingID.String(),
		"scheduled_at": time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
	})
	require.Equal(t, fiber.StatusCreated, status)

	status, out := doJSON(t, newApp(h, buyer.Actor()), "GET", "/visits", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, out["data"], 1)
}
