package visits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autostand-backend/internal/application/notifications"
	"autostand-backend/internal/domain"
	"autostand-backend/internal/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrPastDate       = apperror.Validation("Visit must be scheduled in the future", map[string]string{"scheduled_at": "must be in the future"})
	ErrOwnListing     = apperror.InvalidState("You cannot schedule a visit to your own listing")
	ErrListingOffSale = apperror.InvalidState("Listing is not open for visits")
)

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

// ScheduleCommand requests a viewing at a given time.
type ScheduleCommand struct {
	ListingID   uuid.UUID
	ScheduledAt time.Time
}

// View is a visit with the listing it concerns.
type View struct {
	domain.Visit
	Listing *domain.ListingSummary `json:"listing"`
}

// Schedule books a visit on an active or reserved listing and notifies its owner.
func (s *Service) Schedule(ctx context.Context, actor domain.Actor, cmd ScheduleCommand) (*domain.Visit, error) {
	if actor.Anonymous() {
		return nil, apperror.ErrUnauthenticated
	}
	if !cmd.ScheduledAt.After(s.now()) {
		return nil, ErrPastDate
	}

	var visit *domain.Visit
	ctx, flush := notifications.Deferred(ctx)
	defer flush()
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user domain.User
		if err := tx.Where("user_id = ?", actor.UserID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.ErrUserNotFound
			}
			return err
		}
		var listing domain.Listing
		if err := tx.Where("listing_id = ?", cmd.ListingID).First(&listing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.ErrListingNotFound
			}
			return err
		}
		if listing.OwnerID == user.UserID {
			return ErrOwnListing
		}
		if listing.Status != domain.ListingActive && listing.Status != domain.ListingReserved {
			return ErrListingOffSale
		}

		visit = &domain.Visit{ListingID: listing.ListingID, UserID: user.UserID, ScheduledAt: cmd.ScheduledAt.UTC()}
		if err := tx.Create(visit).Error; err != nil {
			return fmt.Errorf("Failed to schedule visit: %w", err)
		}
		notifications.NotifyBestEffort(ctx, s.Notifier, tx, notifications.Notice{
			RecipientID: listing.OwnerID,
			Type:        notifications.TypeVisitRequest,
			Title:       "Pedido de visita",
			Message: fmt.Sprintf("%s pediu para ver \"%s\" em %s.", user.FullName(), listing.Title,
				visit.ScheduledAt.Format("02/01/2006 15:04")),
			ListingID: &listing.ListingID,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return visit, nil
}

// List returns the actor's visits, soonest first.
func (s *Service) List(ctx context.Context, actor domain.Actor) ([]View, error) {
	if actor.Anonymous() {
		return nil, apperror.ErrUnauthenticated
	}
	var rows []domain.Visit
	err := s.DB.WithContext(ctx).Preload("Listing").
		Where("user_id = ?", actor.UserID).
		Order("scheduled_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]View, 0, len(rows))
	for _, v := range rows {
		out = append(out, View{Visit: v, Listing: v.Listing.Summary()})
	}
	return out, nil
}
