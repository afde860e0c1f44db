package admin

import (
	"context"

	adminsvc "autostand-backend/internal/application/admin"
	"autostand-backend/internal/domain"
	"autostand-backend/internal/middleware"
	"autostand-backend/internal/pkg/response"
	"autostand-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *adminsvc.Service
}

type UsersQuery struct {
	Q string `query:"q"`
}

type BlockRequest struct {
	Reason string `json:"reason" validate:"notblank,max=500"`
}

type CreateAdminRequest struct {
	Name     string `json:"name" validate:"required,personname"`
	Surname  string `json:"surname" validate:"required,personname"`
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
}

type ListingsQuery struct {
	Status string `query:"status" json:"status" validate:"omitempty,oneof=ativo pausado reservado vendido"`
}

type ModerateRequest struct {
	Action string `json:"action" validate:"required,oneof=pause activate remove pausar ativar remover"`
	Reason string `json:"reason" validate:"max=500"`
}

type ActionsQuery struct {
	Type  string `query:"type"`
	Limit int    `query:"limit" json:"limit" validate:"omitempty,min=1,max=200"`
}

var moderateAliases = map[string]string{
	"pausar":  adminsvc.ModeratePause,
	"ativar":  adminsvc.ModerateActivate,
	"remover": adminsvc.ModerateRemove,
}

// GET /api/v1/admin/verify
func (h *Handlers) Verify(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentActor(c)
	return response.Success(c, "Administrator verified", fiber.Map{"admin": true, "user": actor}, nil)
}

// GET /api/v1/admin/users
func (h *Handlers) ListUsers(c *fiber.Ctx) error {
	var q UsersQuery
	if err := validation.BindQuery(c, &q); err != nil {
		return response.FromError(c, err)
	}
	actor, _ := middleware.CurrentActor(c)
	users, err := h.Service.ListUsers(c.UserContext(), actor, q.Q)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Users fetched successfully", users, fiber.Map{"count": len(users)})
}

// POST /api/v1/admin/users
func (h *Handlers) CreateAdmin(c *fiber.Ctx) error {
	var req CreateAdminRequest
	if err := validation.BindJSON(c, &req); err != nil {
		return response.FromError(c, err)
	}
	actor, _ := middleware.CurrentActor(c)
	u, err := h.Service.CreateAdmin(c.UserContext(), actor, adminsvc.CreateAdminCommand{
		Name:     req.Name,
		Surname:  req.Surname,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Administrator created", u, nil)
}

// POST /api/v1/admin/users/:id/block
func (h *Handlers) BlockUser(c *fiber.Ctx) error {
	id, err := validation.ParamUUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	var req BlockRequest
	if err := validation.BindJSON(c, &req); err != nil {
		return response.FromError(c, err)
	}
	actor, _ := middleware.CurrentActor(c)
	u, err := h.Service.BlockUser(c.UserContext(), actor, id, req.Reason)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "User blocked", u, nil)
}

// POST /api/v1/admin/users/:id/unblock
func (h *Handlers) UnblockUser(c *fiber.Ctx) error {
	return h.userAction(c, "User unblocked", h.Service.UnblockUser)
}

// POST /api/v1/admin/users/:id/approve-seller
func (h *Handlers) ApproveSeller(c *fiber.Ctx) error {
	return h.userAction(c, "Seller approved", h.Service.ApproveSeller)
}

// POST /api/v1/admin/users/:id/promote
func (h *Handlers) Promote(c *fiber.Ctx) error {
	return h.userAction(c, "User promoted to administrator", h.Service.Promote)
}

// GET /api/v1/admin/listings
func (h *Handlers) ListListings(c *fiber.Ctx) error {
	var q ListingsQuery
	if err := validation.BindQuery(c, &q); err != nil {
		return response.FromError(c, err)
	}
	actor, _ := middleware.CurrentActor(c)
	rows, err := h.Service.ListListings(c.UserContext(), actor, q.Status)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listings fetched successfully", rows, fiber.Map{"count": len(rows)})
}

// POST /api/v1/admin/listings/:id/moderate
func (h *Handlers) ModerateListing(c *fiber.Ctx) error {
	id, err := validation.ParamUUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	var req ModerateRequest
	if err := validation.BindJSON(c, &req); err != nil {
		return response.FromError(c, err)
	}
	action := req.Action
	if alias, ok := moderateAliases[action]; ok {
		action = alias
	}
	actor, _ := middleware.CurrentActor(c)
	res, err := h.Service.ModerateListing(c.UserContext(), actor, adminsvc.ModerateCommand{
		ListingID: id,
		Action:    action,
		Reason:    req.Reason,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	msg := "Listing moderated"
	if res.Removed {
		msg = "Listing removed"
	}
	return response.Success(c, msg, res, nil)
}

// GET /api/v1/admin/stats
func (h *Handlers) Stats(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentActor(c)
	stats, err := h.Service.Stats(c.UserContext(), actor)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Statistics fetched successfully", stats, nil)
}

// GET /api/v1/admin/actions
func (h *Handlers) Actions(c *fiber.Ctx) error {
	var q ActionsQuery
	if err := validation.BindQuery(c, &q); err != nil {
		return response.FromError(c, err)
	}
	actor, _ := middleware.CurrentActor(c)
	rows, err := h.Service.Actions(c.UserContext(), actor, q.Type, q.Limit)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Actions fetched successfully", rows, nil)
}

func (h *Handlers) userAction(c *fiber.Ctx, msg string, fn userMutation) error {
	id, err := validation.ParamUUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	actor, _ := middleware.CurrentActor(c)
	u, err := fn(c.UserContext(), actor, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, msg, u, nil)
}

type userMutation func(ctx context.Context, actor domain.Actor, userID uuid.UUID) (*domain.User, error)
