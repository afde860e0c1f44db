package middleware

import (
	"strings"

	"autostand-backend/internal/domain"
	"autostand-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	userLocal  = "user"
	actorLocal = "actor"

	// BlockedUserPrefix marks users whose credentials must stop working immediately.
	BlockedUserPrefix = "user_blocked:"
)

// TokenVerifier validates a bearer access token and returns the identity it carries.
type TokenVerifier interface {
	VerifyAccess(token string) (domain.Actor, error)
}

// IdentityConfig wires the sources Identify may resolve an actor from.
type IdentityConfig struct {
	Tokens TokenVerifier
	Rdb    *redis.Client
}

// Identify resolves the acting user from the session or a bearer token and stores it
// in Locals. Requests without a verifiable identity continue anonymously.
func Identify(cfg IdentityConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromSession(c.Locals(userLocal))
		if !ok && cfg.Tokens != nil {
			if token := bearerToken(c.Get(fiber.HeaderAuthorization)); token != "" {
				if a, err := cfg.Tokens.VerifyAccess(token); err == nil {
					actor, ok = a, true
				}
			}
		}
		if ok && cfg.Rdb != nil {
			n, err := cfg.Rdb.Exists(c.UserContext(), BlockedUserPrefix+actor.UserID.String()).Result()
			if err == nil && n > 0 {
				ok = false
			}
		}
		if ok {
			c.Locals(actorLocal, actor)
		}
		return c.Next()
	}
}

// RequireAuth rejects requests without a resolved actor with 401.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := CurrentActor(c); !ok {
			return response.Unauthorized(c, "Unauthorized")
		}
		return c.Next()
	}
}

// CurrentActor returns the verified acting user for this request.
func CurrentActor(c *fiber.Ctx) (domain.Actor, bool) {
	a, ok := c.Locals(actorLocal).(domain.Actor)
	if !ok || a.Anonymous() {
		return domain.Actor{}, false
	}
	return a, true
}

// SetActor stores an already verified actor (login, tests).
func SetActor(c *fiber.Ctx, a domain.Actor) {
	c.Locals(actorLocal, a)
}

// GetUser returns the raw session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

// ActorFromSession converts the session "user" object into an Actor.
func ActorFromSession(sessionUser interface{}) (domain.Actor, bool) {
	m, ok := sessionUser.(map[string]interface{})
	if !ok {
		return domain.Actor{}, false
	}
	idStr, _ := m["user_id"].(string)
	id, err := uuid.Parse(idStr)
	if err != nil || id == uuid.Nil {
		return domain.Actor{}, false
	}
	name, _ := m["name"].(string)
	email, _ := m["email"].(string)
	admin, _ := m["admin"].(bool)
	seller, _ := m["seller"].(bool)
	return domain.Actor{UserID: id, Name: name, Email: email, Admin: admin, Seller: seller}, true
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
