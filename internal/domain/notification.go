package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification is a persisted inbox message for one user.
type Notification struct {
	NotificationID uuid.UUID  `gorm:"column:notification_id;type:uuid;primaryKey" json:"notification_id"`
	RecipientID    uuid.UUID  `gorm:"column:recipient_id;type:uuid;not null;index" json:"recipient_id"`
	Type           string     `gorm:"column:type;type:varchar(40);not null" json:"type"`
	Title          string     `gorm:"column:title;not null" json:"title"`
	Message        string     `gorm:"column:message;not null" json:"message"`
	ListingID      *uuid.UUID `gorm:"column:listing_id;type:uuid" json:"listing_id"`
	Read           bool       `gorm:"column:is_read;not null;default:false" json:"read"`
	CreatedAt      time.Time  `gorm:"column:createdAt" json:"createdAt"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.NotificationID == uuid.Nil {
		n.NotificationID = uuid.New()
	}
	return nil
}
