package messages

import (
	msgsvc "autostand-backend/internal/application/messages"
	"autostand-backend/internal/middleware"
	"autostand-backend/internal/pkg/response"
	"autostand-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *msgsvc.Service
}

type SendRequest struct {
	ListingID   string `json:"listing_id" validate:"required,uuid"`
	RecipientID string `json:"recipient_id" validate:"required,uuid"`
	Content     string `json:"content" validate:"notblank"`
}

type ConversationRequest struct {
	ListingID string `query:"listing_id" json:"listing_id" validate:"omitempty,uuid"`
}

// POST /api/v1/messages
func (h *Handlers) Send(c *fiber.Ctx) error {
	var req SendRequest
	if err := validation.BindJSON(c, &req); err != nil {
		return response.FromError(c, err)
	}
	actor, _ := middleware.CurrentActor(c)
	msg, err := h.Service.Send(c.UserContext(), actor, msgsvc.SendCommand{
		ListingID:   uuid.MustParse(req.ListingID),
		RecipientID: uuid.MustParse(req.RecipientID),
		Content:     req.Content,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Message sent", msg, nil)
}

// GET /api/v1/messages
func (h *Handlers) Conversation(c *fiber.Ctx) error {
	var req ConversationRequest
	if err := validation.BindQuery(c, &req); err != nil {
		return response.FromError(c, err)
	}
	var listingID *uuid.UUID
	if req.ListingID != "" {
		id := uuid.MustParse(req.ListingID)
		listingID = &id
	}
	actor, _ := middleware.CurrentActor(c)
	rows, err := h.Service.Conversation(c.UserContext(), actor, listingID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Messages fetched successfully", rows, nil)
}
