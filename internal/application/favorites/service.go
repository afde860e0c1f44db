package favorites

import (
	"context"
	"encoding/json"
	"strings"

	"autostand-backend/internal/domain"
	"autostand-backend/internal/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrBrandRequired  = apperror.Validation("Brand is required", map[string]string{"brand": "is required"})
	ErrBrandExists    = apperror.Conflict("Brand already in favourites")
	ErrBrandNotFound  = apperror.NotFound("Favourite brand not found")
	ErrNameRequired   = apperror.Validation("Filter name is required", map[string]string{"name": "is required"})
	ErrFilterNotFound = apperror.NotFound("Saved filter not found")
)

// Service stores per-user favourite brands and saved searches.
type Service struct {
	DB *gorm.DB
}

// AddBrand follows a brand. Brands compare case-insensitively.
func (s *Service) AddBrand(ctx context.Context, actor domain.Actor, brand string) (*domain.FavoriteBrand, error) {
	if actor.Anonymous() {
		return nil, apperror.ErrUnauthenticated
	}
	brand = strings.TrimSpace(brand)
	if brand == "" {
		return nil, ErrBrandRequired
	}
	var n int64
	err := s.DB.WithContext(ctx).Model(&domain.FavoriteBrand{}).
		Where("user_id = ? AND LOWER(brand) = ?", actor.UserID, strings.ToLower(brand)).
		Count(&n).Error
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrBrandExists
	}
	fav := &domain.FavoriteBrand{UserID: actor.UserID, Brand: brand}
	if err := s.DB.WithContext(ctx).Create(fav).Error; err != nil {
		return nil, err
	}
	return fav, nil
}

func (s *Service) ListBrands(ctx context.Context, actor domain.Actor) ([]domain.FavoriteBrand, error) {
	if actor.Anonymous() {
		return nil, apperror.ErrUnauthenticated
	}
	var rows []domain.FavoriteBrand
	err := s.DB.WithContext(ctx).Where("user_id = ?", actor.UserID).Order("brand ASC").Find(&rows).Error
	return rows, err
}

func (s *Service) RemoveBrand(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if actor.Anonymous() {
		return apperror.ErrUnauthenticated
	}
	res := s.DB.WithContext(ctx).Where("favorite_id = ? AND user_id = ?", id, actor.UserID).Delete(&domain.FavoriteBrand{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrBrandNotFound
	}
	return nil
}

// SaveFilter stores a named search. Filters are kept as given.
func (s *Service) SaveFilter(ctx context.Context, actor domain.Actor, name string, filters map[string]interface{}) (*domain.SavedFilter, error) {
	if actor.Anonymous() {
		return nil, apperror.ErrUnauthenticated
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if filters == nil {
		filters = map[string]interface{}{}
	}
	raw, err := json.Marshal(filters)
	if err != nil {
		return nil, apperror.Validation("Invalid filters", map[string]string{"filters": "must be an object"})
	}
	f := &domain.SavedFilter{UserID: actor.UserID, Name: name, Filters: datatypes.JSON(raw)}
	if err := s.DB.WithContext(ctx).Create(f).Error; err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Service) ListFilters(ctx context.Context, actor domain.Actor) ([]domain.SavedFilter, error) {
	if actor.Anonymous() {
		return nil, apperror.ErrUnauthenticated
	}
	var rows []domain.SavedFilter
	err := s.DB.WithContext(ctx).Where("user_id = ?", actor.UserID).Order(`"createdAt" DESC`).Find(&rows).Error
	return rows, err
}

func (s *Service) RemoveFilter(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if actor.Anonymous() {
		return apperror.ErrUnauthenticated
	}
	res := s.DB.WithContext(ctx).Where("filter_id = ? AND user_id = ?", id, actor.UserID).Delete(&domain.SavedFilter{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrFilterNotFound
	}
	return nil
}
