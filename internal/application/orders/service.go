package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autostand-backend/internal/application/notifications"
	"autostand-backend/internal/application/reservations"
	"autostand-backend/internal/domain"
	"autostand-backend/internal/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrOwnListing         = apperror.InvalidState("You cannot buy your own listing")
	ErrNoPrice            = apperror.InvalidState("Listing has no price")
	ErrNotForSale         = apperror.InvalidState("Listing is not for sale")
	ErrReservedForAnother = apperror.InvalidState("Listing is reserved for another buyer")
)

// Service records simulated purchases. No payment provider is involved.
type Service struct {
	DB       *gorm.DB
	Notifier notifications.Sink
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// View is an order with the purchased listing.
type View struct {
	domain.Order
	Listing *domain.ListingSummary `json:"listing"`
}

// Place buys a listing at its current price. The order, the listing sale and the owner
// notification commit together. While a reservation hold is live only its holder can buy;
// once the hold lapses the listing is open to anyone again.
func (s *Service) Place(ctx context.Context, actor domain.Actor, listingID uuid.UUID) (*domain.Order, error) {
	if actor.Anonymous() {
		return nil, apperror.ErrUnauthenticated
	}

	var order *domain.Order
	ctx, flush := notifications.Deferred(ctx)
	defer flush()
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var buyer domain.User
		if err := tx.Where("user_id = ?", actor.UserID).First(&buyer).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.ErrUserNotFound
			}
			return err
		}
		var listing domain.Listing
		if err := tx.Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.ErrListingNotFound
			}
			return err
		}
		if listing.OwnerID == buyer.UserID {
			return ErrOwnListing
		}
		if listing.Price == nil || *listing.Price <= 0 {
			return ErrNoPrice
		}
		switch listing.Status {
		case domain.ListingActive:
		case domain.ListingReserved:
			live, err := reservations.LiveHold(tx, listing.ListingID, s.now())
			if err != nil {
				return err
			}
			if live != nil && live.RequesterID != buyer.UserID {
				return ErrReservedForAnother
			}
		default:
			return ErrNotForSale
		}

		res := tx.Model(&domain.Listing{}).
			Where("listing_id = ? AND status = ?", listing.ListingID, listing.Status).
			Update("status", domain.ListingSold)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotForSale
		}

		order = &domain.Order{
			ListingID: listing.ListingID,
			BuyerID:   buyer.UserID,
			Amount:    *listing.Price,
			Status:    domain.OrderPending,
		}
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("Failed to create order: %w", err)
		}

		notifications.NotifyBestEffort(ctx, s.Notifier, tx, notifications.Notice{
			RecipientID: listing.OwnerID,
			Type:        notifications.TypeNewOrder,
			Title:       "Nova encomenda",
			Message:     fmt.Sprintf("%s comprou o seu veículo \"%s\" por %.2f €.", buyer.FullName(), listing.Title, *listing.Price),
			ListingID:   &listing.ListingID,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// List returns the actor's orders, newest first.
func (s *Service) List(ctx context.Context, actor domain.Actor) ([]View, error) {
	if actor.Anonymous() {
		return nil, apperror.ErrUnauthenticated
	}
	var rows []domain.Order
	err := s.DB.WithContext(ctx).Preload("Listing").
		Where("buyer_id = ?", actor.UserID).
		Order(`"createdAt" DESC`).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]View, 0, len(rows))
	for _, o := range rows {
		out = append(out, View{Order: o, Listing: o.Listing.Summary()})
	}
	return out, nil
}
