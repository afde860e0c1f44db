package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Listing states.
const (
	ListingActive   = "ativo"
	ListingPaused   = "pausado"
	ListingReserved = "reservado"
	ListingSold     = "vendido"
)

// IsListingStatus reports whether s is a known listing state.
func IsListingStatus(s string) bool {
	switch s {
	case ListingActive, ListingPaused, ListingReserved, ListingSold:
		return true
	}
	return false
}

// Listing is a vehicle-for-sale post owned by exactly one user.
type Listing struct {
	ListingID   uuid.UUID      `gorm:"column:listing_id;type:uuid;primaryKey" json:"listing_id"`
	OwnerID     uuid.UUID      `gorm:"column:owner_id;type:uuid;not null;index" json:"owner_id"`
	Title       string         `gorm:"column:title;not null" json:"title"`
	Description *string        `gorm:"column:description" json:"description"`
	Price       *float64       `gorm:"column:price;type:decimal(12,2)" json:"price"`
	Brand       string         `gorm:"column:brand;not null;index" json:"brand"`
	Model       string         `gorm:"column:model;not null" json:"model"`
	Year        int            `gorm:"column:year;not null" json:"year"`
	Mileage     int            `gorm:"column:mileage;not null;default:0" json:"mileage"`
	Fuel        string         `gorm:"column:fuel" json:"fuel"`
	Gearbox     string         `gorm:"column:gearbox" json:"gearbox"`
	Category    string         `gorm:"column:category" json:"category"`
	Location    string         `gorm:"column:location" json:"location"`
	Status      string         `gorm:"column:status;type:varchar(20);not null;default:'ativo';index" json:"status"`
	Images      []ListingImage `gorm:"foreignKey:ListingID;references:ListingID" json:"images,omitempty"`
	Owner       *User          `gorm:"foreignKey:OwnerID;references:UserID" json:"-"`
	CreatedAt   time.Time      `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt   time.Time      `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Listing) TableName() string {
	return "listings"
}

// BeforeCreate sets listing_id if not already set (DBs without default uuid).
func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ListingID == uuid.Nil {
		l.ListingID = uuid.New()
	}
	return nil
}

// OffMarket reports whether the listing no longer accepts new buyers.
func (l *Listing) OffMarket() bool {
	return l.Status == ListingSold
}

// ListingImage is one stored picture of a listing.
type ListingImage struct {
	ImageID   uuid.UUID `gorm:"column:image_id;type:uuid;primaryKey" json:"image_id"`
	ListingID uuid.UUID `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	URL       string    `gorm:"column:url;not null" json:"url"`
	ObjectKey string    `gorm:"column:object_key;not null" json:"-"`
	Position  int       `gorm:"column:position;not null;default:0" json:"position"`
	CreatedAt time.Time `gorm:"column:createdAt" json:"createdAt"`
}

func (ListingImage) TableName() string {
	return "listing_images"
}

func (i *ListingImage) BeforeCreate(tx *gorm.DB) error {
	if i.ImageID == uuid.Nil {
		i.ImageID = uuid.New()
	}
	return nil
}

// ListingSummary is the short listing projection embedded in reservations, reports and orders.
type ListingSummary struct {
	ListingID uuid.UUID `json:"listing_id"`
	Title     string    `json:"title"`
	Brand     string    `json:"brand"`
	Model     string    `json:"model"`
	Price     *float64  `json:"price"`
	Status    string    `json:"status"`
}

// Summary returns the short projection of l.
func (l *Listing) Summary() *ListingSummary {
	if l == nil {
		return nil
	}
	return &ListingSummary{
		ListingID: l.ListingID,
		Title:     l.Title,
		Brand:     l.Brand,
		Model:     l.Model,
		Price:     l.Price,
		Status:    l.Status,
	}
}
