package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order states.
const (
	OrderPending = "pendente"
	OrderPaid    = "pago"
)

// Order is a simulated purchase of a listing.
type Order struct {
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;primaryKey" json:"order_id"`
	ListingID uuid.UUID `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	BuyerID   uuid.UUID `gorm:"column:buyer_id;type:uuid;not null;index" json:"buyer_id"`
	Amount    float64   `gorm:"column:amount;type:decimal(12,2);not null" json:"amount"`
	Status    string    `gorm:"column:status;type:varchar(20);not null;default:'pendente'" json:"status"`
	Listing   *Listing  `gorm:"foreignKey:ListingID;references:ListingID" json:"-"`
	CreatedAt time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Order) TableName() string {
	return "orders"
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.OrderID == uuid.Nil {
		o.OrderID = uuid.New()
	}
	return nil
}
