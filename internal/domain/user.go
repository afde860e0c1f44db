package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a marketplace account. Buyers, sellers and administrators share the table;
// capabilities are flags rather than a single role column.
type User struct {
	UserID           uuid.UUID  `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	Name             string     `gorm:"column:name;not null" json:"name"`
	Surname          string     `gorm:"column:surname;not null" json:"surname"`
	Username         string     `gorm:"column:username;not null;uniqueIndex" json:"username"`
	Email            string     `gorm:"column:email;not null;uniqueIndex" json:"email"`
	PasswordHash     string     `gorm:"column:password_hash;not null" json:"-"`
	Phone            *string    `gorm:"column:phone" json:"phone"`
	Location         *string    `gorm:"column:location" json:"location"`
	Seller           bool       `gorm:"column:seller;not null;default:false" json:"seller"`
	SellerApproved   bool       `gorm:"column:seller_approved;not null;default:false" json:"seller_approved"`
	SellerApprovedBy *uuid.UUID `gorm:"column:seller_approved_by;type:uuid" json:"seller_approved_by,omitempty"`
	Admin            bool       `gorm:"column:admin;not null;default:false" json:"admin"`
	EmailValidated   bool       `gorm:"column:email_validated;not null;default:false" json:"email_validated"`
	ValidationToken  *string    `gorm:"column:validation_token" json:"-"`
	Blocked          bool       `gorm:"column:blocked;not null;default:false" json:"blocked"`
	BlockReason      *string    `gorm:"column:block_reason" json:"block_reason,omitempty"`
	CreatedAt        time.Time  `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt        time.Time  `gorm:"column:updatedAt" json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate sets UUID if not set (for DBs without gen_random_uuid).
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UserID == uuid.Nil {
		u.UserID = uuid.New()
	}
	return nil
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.Name + " " + u.Surname)
}

// CanSell reports whether the user may publish listings.
func (u *User) CanSell() bool {
	return u.Admin || (u.Seller && u.SellerApproved)
}

// Actor returns the verified identity used by services.
func (u *User) Actor() Actor {
	return Actor{
		UserID: u.UserID,
		Name:   u.FullName(),
		Email:  u.Email,
		Admin:  u.Admin,
		Seller: u.CanSell(),
	}
}

// UserSummary is the public projection of a user embedded in other payloads.
type UserSummary struct {
	UserID  uuid.UUID `json:"user_id"`
	Name    string    `json:"name"`
	Surname string    `json:"surname"`
	Email   string    `json:"email,omitempty"`
}

// Summary returns the public projection of u.
func (u *User) Summary(withEmail bool) *UserSummary {
	if u == nil {
		return nil
	}
	s := &UserSummary{UserID: u.UserID, Name: u.Name, Surname: u.Surname}
	if withEmail {
		s.Email = u.Email
	}
	return s
}
