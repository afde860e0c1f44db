package reservations

import (
	ressvc "autostand-backend/internal/application/reservations"
	"autostand-backend/internal/middleware"
	"autostand-backend/internal/pkg/response"
	"autostand-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *ressvc.Service
}

type CreateRequest struct {
	ListingID string `json:"listing_id" validate:"required,uuid"`
}

type RespondRequest struct {
	Action string `json:"action" validate:"required,oneof=approve refuse aprovar recusar"`
	Days   *int   `json:"days" validate:"omitempty,min=1,max=365"`
}

var actionAliases = map[string]string{
	"aprovar": ressvc.ActionApprove,
	"recusar": ressvc.ActionRefuse,
}

// POST /api/v1/reservations
func (h *Handlers) Create(c *fiber.Ctx) error {
	var req CreateRequest
	if err := validation.BindJSON(c, &req); err != nil {
		return response.FromError(c, err)
	}
	actor, _ := middleware.CurrentActor(c)
	reservation, err := h.Service.Create(c.UserContext(), actor, ressvc.CreateCommand{ListingID: uuid.MustParse(req.ListingID)})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Reservation requested", reservation, nil)
}

// GET /api/v1/reservations
func (h *Handlers) ListMine(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentActor(c)
	rows, err := h.Service.ListMine(c.UserContext(), actor)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Reservations fetched successfully", rows, nil)
}

// GET /api/v1/reservations/seller
func (h *Handlers) ListForSeller(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentActor(c)
	rows, err := h.Service.ListForSeller(c.UserContext(), actor)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Reservations fetched successfully", rows, nil)
}

// POST /api/v1/reservations/:id/respond
func (h *Handlers) Respond(c *fiber.Ctx) error {
	id, err := validation.ParamUUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	var req RespondRequest
	if err := validation.BindJSON(c, &req); err != nil {
		return response.FromError(c, err)
	}
	action := req.Action
	if alias, ok := actionAliases[action]; ok {
		action = alias
	}
	actor, _ := middleware.CurrentActor(c)
	reservation, err := h.Service.Respond(c.UserContext(), actor, ressvc.RespondCommand{
		ReservationID: id,
		Action:        action,
		Days:          req.Days,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	msg := "Reservation approved"
	if action == ressvc.ActionRefuse {
		msg = "Reservation refused"
	}
	return response.Success(c, msg, reservation, nil)
}
