package auth

import (
	authsvc "autostand-backend/internal/application/auth"
	"autostand-backend/internal/domain"
	"autostand-backend/internal/middleware"
	"autostand-backend/internal/pkg/response"
	"autostand-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Handlers holds dependencies for auth endpoints.
type Handlers struct {
	UserFinder authsvc.UserFinder
	Tokens     *authsvc.TokenManager
	Rdb        *redis.Client
	Config     middleware.SessionConfig
}

type LoginRequest struct {
	Identifier string `json:"identifier" validate:"notblank"`
	Password   string `json:"password" validate:"required"`
}

// POST /api/v1/auth/login
func (h *Handlers) Login(c *fiber.Ctx) error {
	if h.UserFinder == nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	var req LoginRequest
	if err := validation.BindJSON(c, &req); err != nil {
		return response.FromError(c, authsvc.ErrCredentialsRequired)
	}

	ctx := c.UserContext()
	user, err := h.UserFinder.FindByCredentials(ctx, req.Identifier, req.Password)
	if err != nil {
		return response.FromError(c, err)
	}

	sessionID := middleware.RegenerateSessionID(c)
	actor := user.Actor()
	middleware.SetSessionUser(c, middleware.SessionUser{
		UserID: actor.UserID.String(),
		Name:   actor.Name,
		Email:  actor.Email,
		Admin:  actor.Admin,
		Seller: actor.Seller,
	})
	middleware.SetActor(c, actor)

	if h.Rdb != nil {
		if err := h.Rdb.SAdd(ctx, middleware.UserSessionsPrefix+actor.UserID.String(), sessionID).Err(); err != nil {
			return response.FromError(c, err)
		}
	}

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = "s:" + sessionID
	c.Cookie(&cookie)

	data := fiber.Map{"user": userPayload(user)}
	if h.Tokens != nil {
		token, err := h.Tokens.Issue(user)
		if err != nil {
			return response.FromError(c, err)
		}
		data["access_token"] = token.Token
		data["expires_at"] = token.ExpiresAt
	}
	log.Info().Str("user_id", actor.UserID.String()).Msg("login")
	return response.Success(c, "Login successful", data, nil)
}

// GET /api/v1/auth/me
func (h *Handlers) Me(c *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}
	return response.Success(c, "Authenticated", fiber.Map{"user": actor}, nil)
}

// DELETE /api/v1/auth/logout
func (h *Handlers) Logout(c *fiber.Ctx) error {
	sessionID := middleware.GetSessionID(c)
	ctx := c.UserContext()

	if h.Rdb != nil && sessionID != "" {
		if actor, ok := middleware.ActorFromSession(middleware.GetUser(c)); ok {
			_ = h.Rdb.SRem(ctx, middleware.UserSessionsPrefix+actor.UserID.String(), sessionID).Err()
		}
		_ = h.Rdb.Del(ctx, middleware.SessionRedisPrefix+sessionID).Err()
	}
	middleware.DestroySession(c)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = ""
	cookie.MaxAge = -1
	c.Cookie(&cookie)

	return response.Success(c, "Logged out successfully", nil, nil)
}

func userPayload(u *domain.User) fiber.Map {
	return fiber.Map{
		"user_id":         u.UserID,
		"name":            u.Name,
		"surname":         u.Surname,
		"username":        u.Username,
		"email":           u.Email,
		"seller":          u.Seller,
		"seller_approved": u.SellerApproved,
		"admin":           u.Admin,
	}
}
