package reservations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autostand-backend/internal/application/notifications"
	"autostand-backend/internal/domain"
	"autostand-backend/internal/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Responses a listing owner may give.
const (
	ActionApprove = "approve"
	ActionRefuse  = "refuse"
)

const (
	defaultDays = 7
	maxDays     = 365
)

var (
	ErrListingUnavailable = apperror.InvalidState("Listing is not available for reservation")
	ErrAlreadyAnswered    = apperror.InvalidState("This reservation has already been answered")
	ErrNotListingOwner    = apperror.Forbidden("Only the seller can respond to this reservation")
	ErrInvalidAction      = apperror.Validation("Invalid action", map[string]string{"action": "must be one of: approve refuse"})
	ErrInvalidDays        = apperror.Validation("Invalid reservation window", map[string]string{"days": fmt.Sprintf("must be between 1 and %d", maxDays)})
)

type Service struct {
	DB          *gorm.DB
	Notifier    notifications.Sink
	DefaultDays int
	Now         func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) defaultDays() int {
	if s.DefaultDays > 0 {
		return s.DefaultDays
	}
	return defaultDays
}

// CreateCommand requests a hold on a listing.
type CreateCommand struct {
	ListingID uuid.UUID
}

// RespondCommand is the owner's answer. Days applies to approvals only.
type RespondCommand struct {
	ReservationID uuid.UUID
	Action        string
	Days          *int
}

// View is a reservation with the listing and, for sellers, the requester.
type View struct {
	domain.Reservation
	Listing   *domain.ListingSummary `json:"listing"`
	Requester *domain.UserSummary    `json:"requester,omitempty"`
}

// Create files a pending reservation and notifies the listing owner.
func (s *Service) Create(ctx context.Context, actor domain.Actor, cmd CreateCommand) (*domain.Reservation, error) {
	if actor.Anonymous() {
		return nil, apperror.ErrUnauthenticated
	}

	var reservation *domain.Reservation
	ctx, flush := notifications.Deferred(ctx)
	defer flush()
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var requester domain.User
		if err := tx.Where("user_id = ?", actor.UserID).First(&requester).Error; err != nil {
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
		if listing.Status != domain.ListingActive {
			return ErrListingUnavailable
		}
		if listing.OwnerID == requester.UserID {
			log.Warn().Str("listing_id", listing.ListingID.String()).Str("user_id", requester.UserID.String()).
				Msg("owner requested a reservation on their own listing")
		}

		reservation = &domain.Reservation{
			ListingID:   listing.ListingID,
			RequesterID: requester.UserID,
			Status:      domain.ReservationPending,
		}
		if err := tx.Create(reservation).Error; err != nil {
			return fmt.Errorf("Failed to create reservation: %w", err)
		}

		notifications.NotifyBestEffort(ctx, s.Notifier, tx, notifications.Notice{
			RecipientID: listing.OwnerID,
			Type:        notifications.TypeReservationRequest,
			Title:       "Novo Pedido de Reserva",
			Message:     fmt.Sprintf("%s fez um pedido de reserva para o seu veículo \"%s\".", requester.FullName(), listing.Title),
			ListingID:   &listing.ListingID,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reservation, nil
}

// Respond applies the owner's single answer to a pending reservation. The status write,
// the listing hold and the requester notification commit together. Approval requires the
// listing to still be on the market: active, or reserved under a hold that has lapsed.
func (s *Service) Respond(ctx context.Context, actor domain.Actor, cmd RespondCommand) (*domain.Reservation, error) {
	if actor.Anonymous() {
		return nil, apperror.ErrUnauthenticated
	}
	if cmd.Action != ActionApprove && cmd.Action != ActionRefuse {
		return nil, ErrInvalidAction
	}

	var reservation domain.Reservation
	ctx, flush := notifications.Deferred(ctx)
	defer flush()
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Listing").Where("reservation_id = ?", cmd.ReservationID).First(&reservation).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.ErrReservationNotFound
			}
			return err
		}
		listing := reservation.Listing
		if listing == nil {
			return apperror.ErrListingNotFound
		}
		if listing.OwnerID != actor.UserID {
			return ErrNotListingOwner
		}
		if reservation.Status != domain.ReservationPending {
			return ErrAlreadyAnswered
		}
		days, err := s.window(cmd)
		if err != nil {
			return err
		}

		now := s.now()
		if cmd.Action == ActionApprove {
			if err := s.hold(tx, listing, now); err != nil {
				return err
			}
		}

		updates := map[string]interface{}{"responded_at": now}
		if cmd.Action == ActionApprove {
			expires := now.Add(time.Duration(days) * 24 * time.Hour)
			updates["status"] = domain.ReservationApproved
			updates["expires_at"] = expires
			reservation.Status = domain.ReservationApproved
			reservation.ExpiresAt = &expires
		} else {
			updates["status"] = domain.ReservationRefused
			reservation.Status = domain.ReservationRefused
		}
		reservation.RespondedAt = &now

		// conditional on the status read above; a concurrent responder loses here
		res := tx.Model(&domain.Reservation{}).
			Where("reservation_id = ? AND status = ?", reservation.ReservationID, domain.ReservationPending).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("Failed to update reservation: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyAnswered
		}

		notice := notifications.Notice{RecipientID: reservation.RequesterID, ListingID: &listing.ListingID}
		if cmd.Action == ActionApprove {
			notice.Type = notifications.TypeReservationApproved
			notice.Title = "Pedido de Reserva Aprovado"
			notice.Message = fmt.Sprintf("O seu pedido de reserva para %s foi aprovado pelo vendedor! A reserva é válida por %d dias.", listing.Title, days)
		} else {
			notice.Type = notifications.TypeReservationRefused
			notice.Title = "Pedido de Reserva Recusado"
			notice.Message = fmt.Sprintf("O seu pedido de reserva para %s foi recusado pelo vendedor.", listing.Title)
		}
		notifications.NotifyBestEffort(ctx, s.Notifier, tx, notice)
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("reservation_id", reservation.ReservationID.String()).Str("status", reservation.Status).
		Str("seller_id", actor.UserID.String()).Msg("reservation answered")
	return &reservation, nil
}

// window resolves the hold length in days. Days applies to approvals only.
func (s *Service) window(cmd RespondCommand) (int, error) {
	days := s.defaultDays()
	if cmd.Days != nil {
		if cmd.Action != ActionApprove {
			return 0, apperror.Validation("Invalid reservation window", map[string]string{"days": "only allowed when approving"})
		}
		days = *cmd.Days
	}
	if days < 1 || days > maxDays {
		return 0, ErrInvalidDays
	}
	return days, nil
}

// hold moves the listing to reserved, guarded on the state it was read in.
func (s *Service) hold(tx *gorm.DB, listing *domain.Listing, now time.Time) error {
	switch listing.Status {
	case domain.ListingActive:
	case domain.ListingReserved:
		live, err := LiveHold(tx, listing.ListingID, now)
		if err != nil {
			return err
		}
		if live != nil {
			return ErrListingUnavailable
		}
	default:
		return ErrListingUnavailable
	}
	res := tx.Model(&domain.Listing{}).
		Where("listing_id = ? AND status = ?", listing.ListingID, listing.Status).
		Update("status", domain.ListingReserved)
	if res.Error != nil {
		return fmt.Errorf("Failed to reserve listing: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrListingUnavailable
	}
	listing.Status = domain.ListingReserved
	return nil
}

// LiveHold returns the approved reservation on a listing that has not yet expired at now,
// or nil when there is none.
func LiveHold(db *gorm.DB, listingID uuid.UUID, now time.Time) (*domain.Reservation, error) {
	var rows []domain.Reservation
	if err := db.Where("listing_id = ? AND status = ?", listingID, domain.ReservationApproved).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		if !rows[i].IsExpired(now) {
			return &rows[i], nil
		}
	}
	return nil, nil
}

// ListMine returns the actor's own reservation requests, newest first.
func (s *Service) ListMine(ctx context.Context, actor domain.Actor) ([]View, error) {
	if actor.Anonymous() {
		return nil, apperror.ErrUnauthenticated
	}
	var rows []domain.Reservation
	if err := s.DB.WithContext(ctx).Preload("Listing").
		Where("requester_id = ?", actor.UserID).
		Order(`"createdAt" DESC`).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]View, 0, len(rows))
	for _, r := range rows {
		r.Expired = r.IsExpired(now)
		out = append(out, View{Reservation: r, Listing: r.Listing.Summary()})
	}
	return out, nil
}

// ListForSeller returns reservations on every listing the actor owns, pending first then newest.
func (s *Service) ListForSeller(ctx context.Context, actor domain.Actor) ([]View, error) {
	if actor.Anonymous() {
		return nil, apperror.ErrUnauthenticated
	}
	var rows []domain.Reservation
	if err := s.DB.WithContext(ctx).Preload("Listing").Preload("Requester").
		Joins("JOIN listings ON listings.listing_id = reservations.listing_id").
		Where("listings.owner_id = ?", actor.UserID).
		Order("CASE WHEN reservations.status = 'pendente' THEN 0 ELSE 1 END").
		Order(`reservations."createdAt" DESC`).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]View, 0, len(rows))
	for _, r := range rows {
		r.Expired = r.IsExpired(now)
		out = append(out, View{Reservation: r, Listing: r.Listing.Summary(), Requester: r.Requester.Summary(true)})
	}
	return out, nil
}
