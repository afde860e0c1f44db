package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is one note exchanged between a prospective buyer and a listing owner.
type Message struct {
	MessageID   uuid.UUID `gorm:"column:message_id;type:uuid;primaryKey" json:"message_id"`
	ListingID   uuid.UUID `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	SenderID    uuid.UUID `gorm:"column:sender_id;type:uuid;not null;index" json:"sender_id"`
	RecipientID uuid.UUID `gorm:"column:recipient_id;type:uuid;not null;index" json:"recipient_id"`
	Content     string    `gorm:"column:content;not null" json:"content"`
	Read        bool      `gorm:"column:is_read;not null;default:false" json:"read"`
	Sender      *User     `gorm:"foreignKey:SenderID;references:UserID" json:"-"`
	CreatedAt   time.Time `gorm:"column:createdAt" json:"createdAt"`
}

func (Message) TableName() string {
	return "messages"
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.MessageID == uuid.Nil {
		m.MessageID = uuid.New()
	}
	return nil
}
