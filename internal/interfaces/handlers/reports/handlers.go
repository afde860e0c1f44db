package reports

import (
	repsvc "autostand-backend/internal/application/reports"
	"autostand-backend/internal/domain"
	"autostand-backend/internal/middleware"
	"autostand-backend/internal/pkg/response"
	"autostand-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *repsvc.Service
}

type FileRequest struct {
	Type           string `json:"type" validate:"required,oneof=listing user anuncio utilizador"`
	ListingID      string `json:"listing_id" validate:"omitempty,uuid"`
	ReportedUserID string `json:"reported_user_id" validate:"omitempty,uuid"`
	Reason         string `json:"reason" validate:"notblank,max=200"`
	Description    string `json:"description" validate:"max=2000"`
}

type ListRequest struct {
	Status string `query:"status" json:"status" validate:"omitempty,oneof=open in_review closed aberta em_analise encerrada"`
	Box    string `query:"box" json:"box" validate:"omitempty,oneof=sent received"`
}

type ReviewRequest struct {
	Action  string `json:"action" validate:"required,oneof=mark-in-review close em_analise encerrar"`
	Outcome string `json:"outcome" validate:"omitempty,oneof=substantiated unsubstantiated procedente nao_procedente"`
	Note    string `json:"note" validate:"max=2000"`
}

var (
	typeAliases    = map[string]string{"listing": domain.ReportTypeListing, "user": domain.ReportTypeUser}
	statusAliases  = map[string]string{"open": domain.ReportOpen, "in_review": domain.ReportInReview, "closed": domain.ReportClosed}
	actionAliases  = map[string]string{"em_analise": repsvc.ActionMarkInReview, "encerrar": repsvc.ActionClose}
	outcomeAliases = map[string]string{"substantiated": domain.OutcomeSubstantiated, "unsubstantiated": domain.OutcomeUnsubstantiated}
)

func canonical(aliases map[string]string, v string) string {
	if c, ok := aliases[v]; ok {
		return c
	}
	return v
}

func optionalID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id := uuid.MustParse(s)
	return &id
}

// POST /api/v1/reports
func (h *Handlers) File(c *fiber.Ctx) error {
	var req FileRequest
	if err := validation.BindJSON(c, &req); err != nil {
		return response.FromError(c, err)
	}
	actor, _ := middleware.CurrentActor(c)
	report, err := h.Service.File(c.UserContext(), actor, repsvc.FileCommand{
		Type:           canonical(typeAliases, req.Type),
		ListingID:      optionalID(req.ListingID),
		ReportedUserID: optionalID(req.ReportedUserID),
		Reason:         req.Reason,
		Description:    req.Description,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Report submitted", report, nil)
}

// GET /api/v1/reports
func (h *Handlers) List(c *fiber.Ctx) error {
	var req ListRequest
	if err := validation.BindQuery(c, &req); err != nil {
		return response.FromError(c, err)
	}
	actor, _ := middleware.CurrentActor(c)
	rows, err := h.Service.List(c.UserContext(), actor, repsvc.ListQuery{
		Status: canonical(statusAliases, req.Status),
		Box:    req.Box,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Reports fetched successfully", rows, nil)
}

// GET /api/v1/reports/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := validation.ParamUUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	actor, _ := middleware.CurrentActor(c)
	report, err := h.Service.Get(c.UserContext(), actor, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Report fetched successfully", report, nil)
}

// POST /api/v1/reports/:id/review
func (h *Handlers) Review(c *fiber.Ctx) error {
	id, err := validation.ParamUUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	var req ReviewRequest
	if err := validation.BindJSON(c, &req); err != nil {
		return response.FromError(c, err)
	}
	actor, _ := middleware.CurrentActor(c)
	report, err := h.Service.Review(c.UserContext(), actor, repsvc.ReviewCommand{
		ReportID: id,
		Action:   canonical(actionAliases, req.Action),
		Outcome:  canonical(outcomeAliases, req.Outcome),
		Note:     req.Note,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Report updated", report, nil)
}
