package web

import (
	"github.com/gofiber/fiber/v3"

	"github.com/pipewise/pipewise/pkg/models"
)

// Actor is the authenticated caller attached to every request. Session
// handling is owned by an upstream gateway; this layer trusts its identity
// headers and enforces the capability table.
type Actor struct {
	OrgID  string
	UserID string
	Role   models.Role
}

const actorKey = "actor"

const (
	headerOrgID = "X-Org-ID"
	headerUser  = "X-User-ID"
	headerRole  = "X-User-Role"
)

// RequireActor rejects requests without a complete identity.
func RequireActor() fiber.Handler {
	return func(c fiber.Ctx) error {
		orgID := c.Get(headerOrgID)
		userID := c.Get(headerUser)
		rawRole := c.Get(headerRole)

		if orgID == "" || userID == "" || rawRole == "" {
			return unauthorized(c, "missing actor identity headers")
		}

		role, err := models.ParseRole(rawRole)
		if err != nil {
			return unauthorized(c, err.Error())
		}

		c.Locals(actorKey, Actor{OrgID: orgID, UserID: userID, Role: role})

		return c.Next()
	}
}

// RequireCapability gates a route on the typed authorization table.
func RequireCapability(capability models.Capability) fiber.Handler {
	return func(c fiber.Ctx) error {
		actor := ActorFrom(c)

		if !actor.Role.Can(capability) {
			return forbidden(c, "role "+string(actor.Role)+" lacks "+string(capability))
		}

		return c.Next()
	}
}

// ActorFrom returns the actor attached by RequireActor.
func ActorFrom(c fiber.Ctx) Actor {
	actor, _ := c.Locals(actorKey).(Actor)

	return actor
}
