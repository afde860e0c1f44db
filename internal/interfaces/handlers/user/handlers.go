package user

import (
	usersvc "autostand-backend/internal/application/user"
	"autostand-backend/internal/middleware"
	"autostand-backend/internal/pkg/response"
	"autostand-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers serves registration, e-mail validation and the actor's profile.
type Handlers struct {
	Service *usersvc.Service
	Lockout *middleware.Lockout
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,personname,max=60"`
	Surname  string `json:"surname" validate:"required,personname,max=60"`
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,password,max=72"`
	Seller   bool   `json:"seller"`
}

type ValidateEmailRequest struct {
	Email string `query:"email" json:"email" validate:"required,email"`
	Token string `query:"token" json:"token" validate:"required,hexadecimal,len=64"`
}

type ResendRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ProfileRequest struct {
	Name     *string `json:"name" validate:"omitempty,personname,max=60"`
	Surname  *string `json:"surname" validate:"omitempty,personname,max=60"`
	Phone    *string `json:"phone" validate:"omitempty,max=20"`
	Location *string `json:"location" validate:"omitempty,max=100"`
	Seller   *bool   `json:"seller"`
}

// POST /api/v1/auth/register
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := validation.BindJSON(c, &req); err != nil {
		return response.FromError(c, err)
	}
	res, err := h.Service.Register(c.UserContext(), usersvc.RegisterCommand{
		Name:     req.Name,
		Surname:  req.Surname,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Seller:   req.Seller,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Account created. Check your email to validate it.", res, nil)
}

// GET /api/v1/auth/validate-email
func (h *Handlers) ValidateEmail(c *fiber.Ctx) error {
	var req ValidateEmailRequest
	if err := validation.BindQuery(c, &req); err != nil {
		return response.FromError(c, err)
	}
	already, err := h.Service.ValidateEmail(c.UserContext(), req.Email, req.Token)
	if err != nil {
		return response.FromError(c, err)
	}
	if already {
		return response.Success(c, "Email already validated", fiber.Map{"already_validated": true}, nil)
	}
	return response.Success(c, "Email validated successfully", fiber.Map{"already_validated": false}, nil)
}

// POST /api/v1/auth/resend-validation
func (h *Handlers) ResendValidation(c *fiber.Ctx) error {
	var req ResendRequest
	if err := validation.BindJSON(c, &req); err != nil {
		return response.FromError(c, err)
	}
	token, already, err := h.Service.ResendValidation(c.UserContext(), req.Email)
	if err != nil {
		return response.FromError(c, err)
	}
	if already {
		return response.Success(c, "Email already validated", fiber.Map{"already_validated": true}, nil)
	}
	data := fiber.Map{"already_validated": false}
	if token != "" {
		data["validation_token"] = token
	}
	return response.Success(c, "Validation email sent", data, nil)
}

// GET /api/v1/profile
func (h *Handlers) GetProfile(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentActor(c)
	u, err := h.Service.GetProfile(c.UserContext(), actor)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Profile fetched successfully", u, nil)
}

// PUT /api/v1/profile
func (h *Handlers) UpdateProfile(c *fiber.Ctx) error {
	var req ProfileRequest
	if err := validation.BindJSON(c, &req); err != nil {
		return response.FromError(c, err)
	}
	actor, _ := middleware.CurrentActor(c)
	u, err := h.Service.UpdateProfile(c.UserContext(), actor, usersvc.ProfileUpdate{
		Name:     req.Name,
		Surname:  req.Surname,
		Phone:    req.Phone,
		Location: req.Location,
		Seller:   req.Seller,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	// sessions carry the seller capability
	if u.CanSell() != actor.Seller {
		if err := h.Lockout.RevokeSessions(c.UserContext(), actor.UserID); err != nil {
			log.Error().Err(err).Str("user_id", actor.UserID.String()).Msg("failed to revoke sessions after profile change")
		}
	}
	return response.Success(c, "Profile updated successfully", u, nil)
}
