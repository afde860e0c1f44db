package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"autostand-backend/internal/application/audit"
	"autostand-backend/internal/application/emails"
	"autostand-backend/internal/application/notifications"
	"autostand-backend/internal/domain"
	"autostand-backend/internal/infrastructure/storage"
	"autostand-backend/internal/pkg/apperror"
	"autostand-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Listing moderation actions.
const (
	ModeratePause    = "pause"
	ModerateActivate = "activate"
	ModerateRemove   = "remove"
)

const maxUsers = 200

var (
	ErrReasonRequired     = apperror.Validation("A reason is required", map[string]string{"reason": "is required"})
	ErrSelfAction         = apperror.InvalidState("Administrators cannot apply this action to themselves")
	ErrAlreadyBlocked     = apperror.InvalidState("User is already blocked")
	ErrNotBlocked         = apperror.InvalidState("User is not blocked")
	ErrNotSellerCandidate = apperror.InvalidState("User has not asked to become a seller")
	ErrEmailNotValidated  = apperror.InvalidState("User must validate their email before being approved as a seller")
	ErrAlreadyApproved    = apperror.InvalidState("Seller is already approved")
	ErrAlreadyAdmin       = apperror.Conflict("User is already an administrator")
	ErrEmailTaken         = apperror.Conflict("Email already registered")
	ErrUsernameTaken      = apperror.Conflict("Username already registered")
	ErrInvalidModeration  = apperror.Validation("Invalid action", map[string]string{"action": "must be one of: pause activate remove"})
	ErrListingHasOrders   = apperror.InvalidState("Listings with orders cannot be removed")
)

// Lockout cuts off a user's live credentials.
type Lockout interface {
	Block(ctx context.Context, userID uuid.UUID) error
	Unblock(ctx context.Context, userID uuid.UUID) error
	RevokeSessions(ctx context.Context, userID uuid.UUID) error
}

// Service is the backoffice. Every method requires an administrator and every mutation
// appends an audit row in its own transaction.
type Service struct {
	DB       *gorm.DB
	Lockout  Lockout
	Notifier notifications.Sink
	Mailer   emails.Sender
	Store    storage.ObjectStore
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func requireAdmin(actor domain.Actor) error {
	if actor.Anonymous() {
		return apperror.ErrUnauthenticated
	}
	if !actor.Admin {
		return apperror.ErrForbidden
	}
	return nil
}

// ListUsers returns users newest first, optionally matching q against names, username and email.
func (s *Service) ListUsers(ctx context.Context, actor domain.Actor, q string) ([]domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	if q = strings.TrimSpace(q); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		db = db.Where("LOWER(name) LIKE ? OR LOWER(surname) LIKE ? OR LOWER(username) LIKE ? OR LOWER(email) LIKE ?", like, like, like, like)
	}
	var rows []domain.User
	err := db.Order(`"createdAt" DESC`).Limit(maxUsers).Find(&rows).Error
	return rows, err
}

// BlockUser disables an account and cuts off its sessions and tokens.
func (s *Service) BlockUser(ctx context.Context, actor domain.Actor, userID uuid.UUID, reason string) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	if userID == actor.UserID {
		return nil, ErrSelfAction
	}

	var target domain.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadUser(tx, userID, &target); err != nil {
			return err
		}
		if target.Blocked {
			return ErrAlreadyBlocked
		}
		if err := tx.Model(&target).Updates(map[string]interface{}{"blocked": true, "block_reason": reason}).Error; err != nil {
			return err
		}
		_, err := audit.Record(ctx, tx, actor, audit.Entry{
			Type:        domain.ActionUserBlock,
			Description: fmt.Sprintf("Bloqueou utilizador %s. Motivo: %s", target.Email, reason),
			Payload:     map[string]interface{}{"user_id": target.UserID, "reason": reason},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	target.Blocked, target.BlockReason = true, &reason

	if s.Lockout != nil {
		if err := s.Lockout.Block(ctx, target.UserID); err != nil {
			log.Error().Err(err).Str("user_id", target.UserID.String()).Msg("failed to revoke credentials of blocked user")
		}
	}
	if s.Mailer != nil {
		if err := s.Mailer.SendAccountBlocked(ctx, target.Email, target.FullName(), reason); err != nil {
			log.Warn().Err(err).Str("user_id", target.UserID.String()).Msg("failed to send block email")
		}
	}
	return &target, nil
}

// UnblockUser re-enables an account.
func (s *Service) UnblockUser(ctx context.Context, actor domain.Actor, userID uuid.UUID) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var target domain.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadUser(tx, userID, &target); err != nil {
			return err
		}
		if !target.Blocked {
			return ErrNotBlocked
		}
		if err := tx.Model(&target).Updates(map[string]interface{}{"blocked": false, "block_reason": nil}).Error; err != nil {
			return err
		}
		_, err := audit.Record(ctx, tx, actor, audit.Entry{
			Type:        domain.ActionUserUnblock,
			Description: fmt.Sprintf("Ativou utilizador %s", target.Email),
			Payload:     map[string]interface{}{"user_id": target.UserID},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	target.Blocked, target.BlockReason = false, nil

	if s.Lockout != nil {
		if err := s.Lockout.Unblock(ctx, target.UserID); err != nil {
			log.Error().Err(err).Str("user_id", target.UserID.String()).Msg("failed to clear block marker")
		}
	}
	return &target, nil
}

// ApproveSeller lets a validated seller candidate publish listings.
func (s *Service) ApproveSeller(ctx context.Context, actor domain.Actor, userID uuid.UUID) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var target domain.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadUser(tx, userID, &target); err != nil {
			return err
		}
		switch {
		case !target.EmailValidated:
			return ErrEmailNotValidated
		case !target.Seller:
			return ErrNotSellerCandidate
		case target.SellerApproved:
			return ErrAlreadyApproved
		}
		if err := tx.Model(&target).Updates(map[string]interface{}{"seller_approved": true, "seller_approved_by": actor.UserID}).Error; err != nil {
			return err
		}
		_, err := audit.Record(ctx, tx, actor, audit.Entry{
			Type:        domain.ActionSellerApprove,
			Description: fmt.Sprintf("Aprovou vendedor %s", target.Email),
			Payload:     map[string]interface{}{"user_id": target.UserID},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	approver := actor.UserID
	target.SellerApproved, target.SellerApprovedBy = true, &approver

	s.revoke(ctx, target.UserID)
	if s.Mailer != nil {
		if err := s.Mailer.SendSellerApproved(ctx, target.Email, target.FullName()); err != nil {
			log.Warn().Err(err).Str("user_id", target.UserID.String()).Msg("failed to send seller approval email")
		}
	}
	return &target, nil
}

// Promote grants administrator capability. Promotion also validates the e-mail.
func (s *Service) Promote(ctx context.Context, actor domain.Actor, userID uuid.UUID) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var target domain.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadUser(tx, userID, &target); err != nil {
			return err
		}
		if target.Admin {
			return ErrAlreadyAdmin
		}
		if err := tx.Model(&target).Updates(map[string]interface{}{"admin": true, "email_validated": true}).Error; err != nil {
			return err
		}
		_, err := audit.Record(ctx, tx, actor, audit.Entry{
			Type:        domain.ActionAdminPromote,
			Description: fmt.Sprintf("Promoveu utilizador %s a administrador", target.Email),
			Payload:     map[string]interface{}{"user_id": target.UserID},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	target.Admin, target.EmailValidated = true, true
	s.revoke(ctx, target.UserID)
	return &target, nil
}

// CreateAdminCommand holds a new administrator's account details.
type CreateAdminCommand struct {
	Name     string
	Surname  string
	Username string
	Email    string
	Password string
}

// CreateAdmin creates a validated administrator account.
func (s *Service) CreateAdmin(ctx context.Context, actor domain.Actor, cmd CreateAdminCommand) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	details := map[string]string{}
	if !validation.IsValidName(strings.TrimSpace(cmd.Name)) {
		details["name"] = "may only contain letters, spaces, hyphens and apostrophes"
	}
	if !validation.IsValidName(strings.TrimSpace(cmd.Surname)) {
		details["surname"] = "may only contain letters, spaces, hyphens and apostrophes"
	}
	if !validation.IsValidUsername(strings.TrimSpace(cmd.Username)) {
		details["username"] = "must be 3-30 letters, digits, dots or underscores"
	}
	if !validation.IsValidEmail(strings.TrimSpace(cmd.Email)) {
		details["email"] = "must be a valid email"
	}
	if !validation.IsValidPassword(cmd.Password) {
		details["password"] = "must have 8+ characters with a letter, a number and a symbol"
	}
	if len(details) > 0 {
		return nil, apperror.Validation("Invalid administrator data", details)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), 10)
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		Name:           strings.TrimSpace(cmd.Name),
		Surname:        strings.TrimSpace(cmd.Surname),
		Username:       strings.TrimSpace(cmd.Username),
		Email:          strings.ToLower(strings.TrimSpace(cmd.Email)),
		PasswordHash:   string(hash),
		Admin:          true,
		EmailValidated: true,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.User{}).Where("email = ?", u.Email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrEmailTaken
		}
		if err := tx.Model(&domain.User{}).Where("username = ?", u.Username).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrUsernameTaken
		}
		if err := tx.Create(u).Error; err != nil {
			return err
		}
		_, err := audit.Record(ctx, tx, actor, audit.Entry{
			Type:        domain.ActionAdminCreate,
			Description: fmt.Sprintf("Criou novo administrador: %s", u.Email),
			Payload:     map[string]interface{}{"user_id": u.UserID},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ListListings returns listings in every state, newest first.
func (s *Service) ListListings(ctx context.Context, actor domain.Actor, status string) ([]domain.Listing, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	if status != "" {
		if !domain.IsListingStatus(status) {
			return nil, apperror.Validation("Invalid status", map[string]string{"status": "must be one of: ativo pausado reservado vendido"})
		}
		db = db.Where("status = ?", status)
	}
	var rows []domain.Listing
	err := db.Order(`"createdAt" DESC`).Find(&rows).Error
	return rows, err
}

// ModerateCommand is an administrator's decision on a listing.
type ModerateCommand struct {
	ListingID uuid.UUID
	Action    string
	Reason    string
}

// ModerateResult reports the listing after moderation; Listing is nil once removed.
type ModerateResult struct {
	Listing *domain.Listing `json:"listing"`
	Removed bool            `json:"removed"`
}

// ModerateListing pauses, reactivates or removes a listing and tells its owner.
func (s *Service) ModerateListing(ctx context.Context, actor domain.Actor, cmd ModerateCommand) (*ModerateResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var status string
	switch cmd.Action {
	case ModeratePause:
		status = domain.ListingPaused
	case ModerateActivate:
		status = domain.ListingActive
	case ModerateRemove:
	default:
		return nil, ErrInvalidModeration
	}
	reason := strings.TrimSpace(cmd.Reason)

	var (
		listing domain.Listing
		images  []domain.ListingImage
	)
	ctx, flush := notifications.Deferred(ctx)
	defer flush()
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("listing_id = ?", cmd.ListingID).First(&listing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.ErrListingNotFound
			}
			return err
		}

		var verb, title, message string
		if cmd.Action == ModerateRemove {
			var err error
			if images, err = removeListing(tx, listing.ListingID); err != nil {
				return err
			}
			verb, title = "Removeu", "Anúncio removido"
			message = fmt.Sprintf("O seu anúncio \"%s\" foi removido por um administrador.", listing.Title)
		} else {
			if err := tx.Model(&listing).Update("status", status).Error; err != nil {
				return err
			}
			listing.Status = status
			if status == domain.ListingPaused {
				verb, title = "Pausou", "Anúncio pausado"
				message = fmt.Sprintf("O seu anúncio \"%s\" foi pausado por um administrador.", listing.Title)
			} else {
				verb, title = "Ativou", "Anúncio reativado"
				message = fmt.Sprintf("O seu anúncio \"%s\" foi reativado por um administrador.", listing.Title)
			}
		}
		if reason != "" {
			message += " Motivo: " + reason
		}

		if _, err := audit.Record(ctx, tx, actor, audit.Entry{
			Type:        domain.ActionListingModerate,
			Description: fmt.Sprintf("%s anúncio %s", verb, listing.ListingID),
			Payload: map[string]interface{}{
				"listing_id": listing.ListingID,
				"action":     cmd.Action,
				"status":     status,
				"reason":     reason,
			},
		}); err != nil {
			return err
		}

		n := notifications.Notice{
			RecipientID: listing.OwnerID,
			Type:        notifications.TypeListingModerated,
			Title:       title,
			Message:     message,
		}
		if cmd.Action != ModerateRemove {
			n.ListingID = &listing.ListingID
		}
		notifications.NotifyBestEffort(ctx, s.Notifier, tx, n)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if cmd.Action == ModerateRemove {
		s.discard(ctx, images)
		return &ModerateResult{Removed: true}, nil
	}
	return &ModerateResult{Listing: &listing}, nil
}

// removeListing deletes a listing that never sold, with its pictures, holds, visits and
// messages. Reports and notifications keep their rows and lose the reference.
func removeListing(tx *gorm.DB, listingID uuid.UUID) ([]domain.ListingImage, error) {
	var orders int64
	if err := tx.Model(&domain.Order{}).Where("listing_id = ?", listingID).Count(&orders).Error; err != nil {
		return nil, err
	}
	if orders > 0 {
		return nil, ErrListingHasOrders
	}
	var images []domain.ListingImage
	if err := tx.Where("listing_id = ?", listingID).Find(&images).Error; err != nil {
		return nil, err
	}
	for _, model := range []interface{}{&domain.ListingImage{}, &domain.Reservation{}, &domain.Visit{}, &domain.Message{}} {
		if err := tx.Where("listing_id = ?", listingID).Delete(model).Error; err != nil {
			return nil, err
		}
	}
	for _, model := range []interface{}{&domain.Report{}, &domain.Notification{}} {
		if err := tx.Model(model).Where("listing_id = ?", listingID).Update("listing_id", nil).Error; err != nil {
			return nil, err
		}
	}
	if err := tx.Where("listing_id = ?", listingID).Delete(&domain.Listing{}).Error; err != nil {
		return nil, err
	}
	return images, nil
}

func (s *Service) discard(ctx context.Context, images []domain.ListingImage) {
	if s.Store == nil {
		return
	}
	for _, img := range images {
		if err := s.Store.Delete(ctx, img.ObjectKey); err != nil {
			log.Warn().Err(err).Str("object_key", img.ObjectKey).Msg("failed to delete stored image")
		}
	}
}

// Stats is the backoffice dashboard.
type Stats struct {
	Buyers              int64   `json:"buyers"`
	Sellers             int64   `json:"sellers"`
	ActiveListings      int64   `json:"active_listings"`
	SalesLast30Days     int64   `json:"sales_last_30_days"`
	TopBrand            *string `json:"top_brand"`
	TopModel            *string `json:"top_model"`
	OpenReports         int64   `json:"open_reports"`
	PendingReservations int64   `json:"pending_reservations"`
}

// Stats aggregates marketplace counters.
func (s *Service) Stats(ctx context.Context, actor domain.Actor) (*Stats, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	out := &Stats{}
	counts := []struct {
		dst   *int64
		model interface{}
		query string
		args  []interface{}
	}{
		{&out.Buyers, &domain.User{}, "seller = ? AND admin = ?", []interface{}{false, false}},
		{&out.Sellers, &domain.User{}, "seller = ?", []interface{}{true}},
		{&out.ActiveListings, &domain.Listing{}, "status = ?", []interface{}{domain.ListingActive}},
		{&out.SalesLast30Days, &domain.Order{}, `status = ? AND "createdAt" >= ?`, []interface{}{domain.OrderPaid, s.now().AddDate(0, 0, -30)}},
		{&out.OpenReports, &domain.Report{}, "status = ?", []interface{}{domain.ReportOpen}},
		{&out.PendingReservations, &domain.Reservation{}, "status = ?", []interface{}{domain.ReservationPending}},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Where(c.query, c.args...).Count(c.dst).Error; err != nil {
			return nil, err
		}
	}
	var err error
	if out.TopBrand, err = topValue(db, "brand"); err != nil {
		return nil, err
	}
	if out.TopModel, err = topValue(db, "model"); err != nil {
		return nil, err
	}
	return out, nil
}

func topValue(db *gorm.DB, column string) (*string, error) {
	var row struct {
		Value string
		Total int64
	}
	err := db.Model(&domain.Listing{}).
		Select(column+" AS value, COUNT(*) AS total").
		Where(column + " <> ''").
		Group(column).
		Order("total DESC").
		Limit(1).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.Value == "" {
		return nil, nil
	}
	return &row.Value, nil
}

// Actions returns the audit log, newest first.
func (s *Service) Actions(ctx context.Context, actor domain.Actor, actionType string, limit int) ([]audit.ActionView, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return (&audit.Service{DB: s.DB}).List(ctx, actionType, limit)
}

func (s *Service) revoke(ctx context.Context, userID uuid.UUID) {
	if s.Lockout == nil {
		return
	}
	if err := s.Lockout.RevokeSessions(ctx, userID); err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to revoke sessions")
	}
}

func loadUser(tx *gorm.DB, userID uuid.UUID, dst *domain.User) error {
	if err := tx.Where("user_id = ?", userID).First(dst).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.ErrUserNotFound
		}
		return err
	}
	return nil
}
