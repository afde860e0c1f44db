package orders

import (
	ordersvc "autostand-backend/internal/application/orders"
	"autostand-backend/internal/middleware"
	"autostand-backend/internal/pkg/response"
	"autostand-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *ordersvc.Service
}

type PlaceRequest struct {
	ListingID string `json:"listing_id" validate:"required,uuid"`
}

// POST /api/v1/orders
func (h *Handlers) Place(c *fiber.Ctx) error {
	var req PlaceRequest
	if err := validation.BindJSON(c, &req); err != nil {
		return response.FromError(c, err)
	}
	actor, _ := middleware.CurrentActor(c)
	order, err := h.Service.Place(c.UserContext(), actor, uuid.MustParse(req.ListingID))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Order placed", order, nil)
}

// GET /api/v1/orders
func (h *Handlers) List(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentActor(c)
	rows, err := h.Service.List(c.UserContext(), actor)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Orders fetched successfully", rows, nil)
}
