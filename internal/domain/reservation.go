package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reservation states. Approved and refused are terminal.
const (
	ReservationPending  = "pendente"
	ReservationApproved = "aprovado"
	ReservationRefused  = "recusado"
)

// Reservation is a buyer's request to hold a listing, answered once by the listing owner.
type Reservation struct {
	ReservationID uuid.UUID  `gorm:"column:reservation_id;type:uuid;primaryKey" json:"reservation_id"`
	ListingID     uuid.UUID  `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	RequesterID   uuid.UUID  `gorm:"column:requester_id;type:uuid;not null;index" json:"requester_id"`
	Status        string     `gorm:"column:status;type:varchar(20);not null;default:'pendente'" json:"status"`
	ExpiresAt     *time.Time `gorm:"column:expires_at" json:"expires_at"`
	RespondedAt   *time.Time `gorm:"column:responded_at" json:"responded_at"`
	Listing       *Listing   `gorm:"foreignKey:ListingID;references:ListingID" json:"-"`
	Requester     *User      `gorm:"foreignKey:RequesterID;references:UserID" json:"-"`
	Expired       bool       `gorm:"-" json:"expired"` // set by the service from its clock
	CreatedAt     time.Time  `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt     time.Time  `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Reservation) TableName() string {
	return "reservations"
}

func (r *Reservation) BeforeCreate(tx *gorm.DB) error {
	if r.ReservationID == uuid.Nil {
		r.ReservationID = uuid.New()
	}
	return nil
}

// IsExpired reports whether an approved hold has lapsed at now.
func (r *Reservation) IsExpired(now time.Time) bool {
	return r.Status == ReservationApproved && r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}
