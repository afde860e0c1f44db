package orders

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	notifsvc "autostand-backend/internal/application/notifications"
	ordersvc "autostand-backend/internal/application/orders"
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
	app.Post("/orders", h.Place)
	app.Get("/orders", h.List)
	return app
}

func TestPlaceOrder(t *testing.T) {
	db, buyer, seller, listing := seedMarket(t)
	h := &Handlers{Service: &ordersvc.Service{DB: db, Notifier: &notifsvc.Service{DB: db}}}

	status, _ := doJSON(t, newApp(h, seller.Actor()), "POST", "/orders", map[string]string{"listing_id": listing.ListingID.String()})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, out := doJSON(t, newApp(h, buyer.Actor()), "POST", "/orders", map[string]string{"listing_id": listing.ListingID.String()})
	require.Equal(t, fiber.StatusCreated, status)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, domain.OrderPending, data["status"])
	assert.Equal(t, 18500.0, data["amount"])

	var stored domain.Listing
	require.NoError(t, db.First(&stored, "listing_id = ?", listing.ListingID).Error)
	assert.Equal(t, domain.ListingSold, stored.Status)

	status, _ = doJSON(t, newApp(h, buyer.Actor()), "POST", "/orders", map[string]string{"listing_id": listing.ListingID.String()})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, out = doJSON(t, newApp(h, buyer.Actor()), "GET", "/orders", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, out["data"], 1)
}
