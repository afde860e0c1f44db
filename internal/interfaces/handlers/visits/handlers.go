package visits

import (
	"time"

	visitsvc "autostand-backend/internal/application/visits"
	"autostand-backend/internal/middleware"
	"autostand-backend/internal/pkg/response"
	"autostand-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *visitsvc.Service
}

type ScheduleRequest struct {
	ListingID   string    `json:"listing_id" validate:"required,uuid"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
}

// POST /api/v1/visits
func (h *Handlers) Schedule(c *fiber.Ctx) error {
	var req ScheduleRequest
	if err := validation.BindJSON(c, &req); err != nil {
		return response.FromError(c, err)
	}
	actor, _ := middleware.CurrentActor(c)
	visit, err := h.Service.Schedule(c.UserContext(), actor, visitsvc.ScheduleCommand{
		ListingID:   uuid.MustParse(req.ListingID),
		ScheduledAt: req.ScheduledAt,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Visit requested", visit, nil)
}

// GET /api/v1/visits
func (h *Handlers) List(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentActor(c)
	rows, err := h.Service.List(c.UserContext(), actor)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Visits fetched successfully", rows, nil)
}
