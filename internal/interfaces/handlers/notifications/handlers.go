package notifications

import (
	notifsvc "autostand-backend/internal/application/notifications"
	"autostand-backend/internal/middleware"
	"autostand-backend/internal/pkg/response"
	"autostand-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *notifsvc.Service
}

type ListRequest struct {
	Unread bool `query:"unread" json:"unread"`
}

type MarkReadRequest struct {
	ID string `json:"id" validate:"omitempty,uuid"`
}

// GET /api/v1/notifications
func (h *Handlers) List(c *fiber.Ctx) error {
	var req ListRequest
	if err := validation.BindQuery(c, &req); err != nil {
		return response.FromError(c, err)
	}
	actor, _ := middleware.CurrentActor(c)
	rows, err := h.Service.List(c.UserContext(), actor, req.Unread)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Notifications fetched successfully", rows, nil)
}

// GET /api/v1/notifications/unread-count
func (h *Handlers) UnreadCount(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentActor(c)
	n, err := h.Service.UnreadCount(c.UserContext(), actor)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Unread count fetched successfully", fiber.Map{"count": n}, nil)
}

// PATCH /api/v1/notifications/read
func (h *Handlers) MarkRead(c *fiber.Ctx) error {
	var req MarkReadRequest
	if len(c.Body()) > 0 {
		if err := validation.BindJSON(c, &req); err != nil {
			return response.FromError(c, err)
		}
	}
	var id *uuid.UUID
	if req.ID != "" {
		parsed := uuid.MustParse(req.ID)
		id = &parsed
	}
	actor, _ := middleware.CurrentActor(c)
	n, err := h.Service.MarkRead(c.UserContext(), actor, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Notifications marked as read", fiber.Map{"updated": n}, nil)
}
