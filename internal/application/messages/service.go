package messages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"autostand-backend/internal/application/notifications"
	"autostand-backend/internal/domain"
	"autostand-backend/internal/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxContentLength = 2000

var (
	ErrEmptyContent      = apperror.Validation("Message content is required", map[string]string{"content": "is required"})
	ErrContentTooLong    = apperror.Validation("Message is too long", map[string]string{"content": fmt.Sprintf("must be at most %d characters", maxContentLength)})
	ErrInvalidRecipient  = apperror.Validation("Invalid recipient", map[string]string{"recipient_id": "must be the listing owner"})
	ErrNoConversation    = apperror.Validation("Invalid recipient", map[string]string{"recipient_id": "has not contacted you about this listing"})
	ErrMessageToYourself = apperror.Validation("Invalid recipient", map[string]string{"recipient_id": "cannot be yourself"})
)

type Service struct {
	DB       *gorm.DB
	Notifier notifications.Sink
}

// SendCommand is a message about a listing.
type SendCommand struct {
	ListingID   uuid.UUID
	RecipientID uuid.UUID
	Content     string
}

// View is a message with its sender's public name.
type View struct {
	domain.Message
	Sender *domain.UserSummary `json:"sender"`
}

// Send delivers a message and notifies the recipient. Buyers write to the owner; the
// owner may only reply to someone who already wrote about the listing.
func (s *Service) Send(ctx context.Context, actor domain.Actor, cmd SendCommand) (*domain.Message, error) {
	if actor.Anonymous() {
		return nil, apperror.ErrUnauthenticated
	}
	content := strings.TrimSpace(cmd.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return nil, ErrContentTooLong
	}
	if cmd.RecipientID == actor.UserID {
		return nil, ErrMessageToYourself
	}

	var msg *domain.Message
	ctx, flush := notifications.Deferred(ctx)
	defer flush()
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sender domain.User
		if err := tx.Where("user_id = ?", actor.UserID).First(&sender).Error; err != nil {
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

		if listing.OwnerID != sender.UserID {
			if cmd.RecipientID != listing.OwnerID {
				return ErrInvalidRecipient
			}
		} else {
			var prior int64
			err := tx.Model(&domain.Message{}).
				Where("listing_id = ? AND sender_id = ? AND recipient_id = ?", listing.ListingID, cmd.RecipientID, sender.UserID).
				Count(&prior).Error
			if err != nil {
				return err
			}
			if prior == 0 {
				return ErrNoConversation
			}
		}

		msg = &domain.Message{
			ListingID:   listing.ListingID,
			SenderID:    sender.UserID,
			RecipientID: cmd.RecipientID,
			Content:     content,
		}
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("Failed to send message: %w", err)
		}

		notifications.NotifyBestEffort(ctx, s.Notifier, tx, notifications.Notice{
			RecipientID: cmd.RecipientID,
			Type:        notifications.TypeNewMessage,
			Title:       "Nova mensagem",
			Message:     fmt.Sprintf("%s enviou-lhe uma mensagem sobre o anúncio \"%s\".", sender.FullName(), listing.Title),
			ListingID:   &listing.ListingID,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// Conversation returns the actor's messages, optionally for one listing, oldest first.
// Messages addressed to the actor are marked read.
func (s *Service) Conversation(ctx context.Context, actor domain.Actor, listingID *uuid.UUID) ([]View, error) {
	if actor.Anonymous() {
		return nil, apperror.ErrUnauthenticated
	}
	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Where("(sender_id = ? OR recipient_id = ?)", actor.UserID, actor.UserID)
		if listingID != nil {
			db = db.Where("listing_id = ?", *listingID)
		}
		return db
	}

	var rows []domain.Message
	if err := s.DB.WithContext(ctx).Scopes(scope).Preload("Sender").Order(`"createdAt" ASC`).Find(&rows).Error; err != nil {
		return nil, err
	}
	err := s.DB.WithContext(ctx).Model(&domain.Message{}).Scopes(scope).
		Where("recipient_id = ? AND is_read = ?", actor.UserID, false).
		Update("is_read", true).Error
	if err != nil {
		return nil, err
	}

	out := make([]View, 0, len(rows))
	for _, m := range rows {
		out = append(out, View{Message: m, Sender: m.Sender.Summary(false)})
	}
	return out, nil
}
