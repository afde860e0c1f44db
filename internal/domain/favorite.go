package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FavoriteBrand subscribes a user to new listings of a brand.
type FavoriteBrand struct {
	FavoriteID uuid.UUID `gorm:"column:favorite_id;type:uuid;primaryKey" json:"favorite_id"`
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_favorite_brand_user" json:"user_id"`
	Brand      string    `gorm:"column:brand;not null;uniqueIndex:idx_favorite_brand_user" json:"brand"`
	CreatedAt  time.Time `gorm:"column:createdAt" json:"createdAt"`
}

func (FavoriteBrand) TableName() string {
	return "favorite_brands"
}

func (f *FavoriteBrand) BeforeCreate(tx *gorm.DB) error {
	if f.FavoriteID == uuid.Nil {
		f.FavoriteID = uuid.New()
	}
	return nil
}

// SavedFilter is a named listing search stored for later reuse.
type SavedFilter struct {
	FilterID  uuid.UUID      `gorm:"column:filter_id;type:uuid;primaryKey" json:"filter_id"`
	UserID    uuid.UUID      `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Name      string         `gorm:"column:name;not null" json:"name"`
	Filters   datatypes.JSON `gorm:"column:filters;type:json;not null" json:"filters"`
	CreatedAt time.Time      `gorm:"column:createdAt" json:"createdAt"`
}

func (SavedFilter) TableName() string {
	return "saved_filters"
}

func (f *SavedFilter) BeforeCreate(tx *gorm.DB) error {
	if f.FilterID == uuid.Nil {
		f.FilterID = uuid.New()
	}
	return nil
}
