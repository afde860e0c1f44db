package domain

import "github.com/google/uuid"

// Actor is the authenticated identity acting on a request. It is built only from a
// verified session or access token and passed explicitly into every service call.
type Actor struct {
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Admin  bool      `json:"admin"`
	Seller bool      `json:"seller"`
}

// Anonymous reports whether the actor carries no identity.
func (a Actor) Anonymous() bool {
	return a.UserID == uuid.Nil
}
