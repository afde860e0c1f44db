package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Visit is a requested in-person viewing of a listing.
type Visit struct {
	VisitID     uuid.UUID `gorm:"column:visit_id;type:uuid;primaryKey" json:"visit_id"`
	ListingID   uuid.UUID `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	ScheduledAt time.Time `gorm:"column:scheduled_at;not null" json:"scheduled_at"`
	Listing     *Listing  `gorm:"foreignKey:ListingID;references:ListingID" json:"-"`
	CreatedAt   time.Time `gorm:"column:createdAt" json:"createdAt"`
}

func (Visit) TableName() string {
	return "visits"
}

func (v *Visit) BeforeCreate(tx *gorm.DB) error {
	if v.VisitID == uuid.Nil {
		v.VisitID = uuid.New()
	}
	return nil
}
