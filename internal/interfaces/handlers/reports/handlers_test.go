package reports

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	notifsvc "autostand-backend/internal/application/notifications"
	repsvc "autostand-backend/internal/application/reports"
	"autostand-backend/internal/domain"
	"autostand-backend/internal/infrastructure/database"
	"autostand-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reportsFixture struct {
	h       *Handlers
	buyer   domain.User
	seller  domain.User
	admin   domain.User
	listing domain.Listing
}

func setupReportsTest(t *testing.T) *reportsFixture {
	t.Helper()
	db, err := database.Open("sqlite::memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	f := &reportsFixture{
		buyer:  domain.User{Name: "Ana", Surname: "Costa", Username: "ana", Email: "ana@example.com", PasswordHash: "x", EmailValidated: true},
		seller: domain.User{Name: "Rui", Surname: "Sousa", Username: "rui", Email: "rui@example.com", PasswordHash: "x", EmailValidated: true, Seller: true, SellerApproved: true},
		admin:  domain.User{Name: "Eva", Surname: "Admin", Username: "eva", Email: "eva@example.com", PasswordHash: "x", EmailValidated: true, Admin: true},
	}
	require.NoError(t, db.Create(&f.buyer).Error)
	require.NoError(t, db.Create(&f.seller).Error)
	require.NoError(t, db.Create(&f.admin).Error)
	f.listing = domain.Listing{OwnerID: f.seller.UserID, Title: "Corsa 1.2", Brand: "Opel", Model: "Corsa", Year: 2012, Status: domain.ListingActive}
	require.NoError(t, db.Create(&f.listing).Error)

	f.h = &Handlers{Service: &repsvc.Service{DB: db, Notifier: &notifsvc.Service{DB: db}}}
	return f
}

func (f *reportsFixture) app(actor domain.Actor) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		middleware.SetActor(c, actor)
		return c.Next()
	})
	app.Post("/reports", f.h.File)
	app.Get("/reports", f.h.List)
	app.Get("/reports/:id", f.h.Get)
	app.Post("/reports/:id/review", f.h.Review)
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

func TestFile_Validation(t *testing.T) {
	f := setupReportsTest(t)
	status, out := doJSON(t, f.app(f.buyer.Actor()), "POST", "/reports", map[string]string{"type": "car", "reason": ""})
	assert.Equal(t, fiber.StatusBadRequest, status)
	details := out["error"].(map[string]interface{})["details"].(map[string]interface{})
	assert.Contains(t, details, "type")
	assert.Contains(t, details, "reason")

	status, _ = doJSON(t, f.app(f.buyer.Actor()), "POST", "/reports", map[string]string{"type": "listing", "reason": "Burla"})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestReportLifecycle(t *testing.T) {
	f := setupReportsTest(t)

	status, out := doJSON(t, f.app(f.buyer.Actor()), "POST", "/reports", map[string]string{
		"type":       "anuncio",
		"listing_id": f.listing.ListingID.String(),
		"reason":     "Quilometragem falsa",
	})
	require.Equal(t, fiber.StatusCreated, status)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, domain.ReportTypeListing, data["type"])
	assert.Equal(t, domain.ReportOpen, data["status"])
	id := data["report_id"].(string)

	status, out = doJSON(t, f.app(f.seller.Actor()), "GET", "/reports?box=received", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, out["data"], 1)

	status, _ = doJSON(t, f.app(f.buyer.Actor()), "POST", "/reports/"+id+"/review", map[string]string{"action": "em_analise"})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, out = doJSON(t, f.app(f.admin.Actor()), "POST", "/reports/"+id+"/review", map[string]string{"action": "em_analise"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, domain.ReportInReview, out["data"].(map[string]interface{})["status"])

	status, out = doJSON(t, f.app(f.admin.Actor()), "GET", "/reports?status=in_review", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, out["data"], 1)

	status, _ = doJSON(t, f.app(f.admin.Actor()), "POST", "/reports/"+id+"/review", map[string]string{"action": "close"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, out = doJSON(t, f.app(f.admin.Actor()), "POST", "/reports/"+id+"/review", map[string]string{"action": "encerrar", "outcome": "substantiated", "note": "Confirmado"})
	require.Equal(t, fiber.StatusOK, status)
	data = out["data"].(map[string]interface{})
	assert.Equal(t, domain.ReportClosed, data["status"])
	assert.Equal(t, domain.OutcomeSubstantiated, data["outcome"])

	status, _ = doJSON(t, f.app(f.admin.Actor()), "POST", "/reports/"+id+"/review", map[string]string{"action": "close", "outcome": "procedente"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, out = doJSON(t, f.app(f.buyer.Actor()), "GET", "/reports/"+id, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, out["data"].(map[string]interface{})["actions"], 2)
}
