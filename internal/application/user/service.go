package user

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
	"unicode"

	"autostand-backend/internal/application/emails"
	"autostand-backend/internal/domain"
	"autostand-backend/internal/pkg/apperror"
	"autostand-backend/internal/pkg/validation"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken    = apperror.Conflict("Email already registered")
	ErrUsernameTaken = apperror.Conflict("Username already registered")
	ErrInvalidToken  = apperror.Validation("Invalid validation token", map[string]string{"token": "is invalid"})
)

// Service handles registration, e-mail validation and the actor's own profile.
type Service struct {
	DB            *gorm.DB
	Mailer        emails.Sender
	PublicBaseURL string
	// ExposeTokens returns validation tokens in responses (development only).
	ExposeTokens bool
}

// RegisterCommand is a new account request.
type RegisterCommand struct {
	Name     string
	Surname  string
	Username string
	Email    string
	Password string
	Seller   bool
}

// RegisterResult is the created account plus, in development, its validation token.
type RegisterResult struct {
	User            *domain.User `json:"user"`
	ValidationToken string       `json:"validation_token,omitempty"`
}

// Register creates an unvalidated account and sends the validation e-mail.
func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (*RegisterResult, error) {
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
		return nil, apperror.Validation("Invalid registration data", details)
	}

	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	username := strings.TrimSpace(cmd.Username)

	var count int64
	if err := s.DB.WithContext(ctx).Model(&domain.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}
	if err := s.DB.WithContext(ctx).Model(&domain.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), 10)
	if err != nil {
		return nil, err
	}
	token, err := newValidationToken()
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		Name:            normalizeName(cmd.Name),
		Surname:         normalizeName(cmd.Surname),
		Username:        username,
		Email:           email,
		PasswordHash:    string(hash),
		Seller:          cmd.Seller,
		ValidationToken: &token,
	}
	if err := s.DB.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}

	s.sendValidation(ctx, u, token)
	out := &RegisterResult{User: u}
	if s.ExposeTokens {
		out.ValidationToken = token
	}
	return out, nil
}

// ValidateEmail consumes the validation token. Validating twice is not an error.
func (s *Service) ValidateEmail(ctx context.Context, email, token string) (alreadyValidated bool, err error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(token) == "" {
		return false, apperror.Validation("Token and email are required", map[string]string{
			"email": "is required",
			"token": "is required",
		})
	}
	u, err := s.byEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if u.EmailValidated {
		return true, nil
	}
	if u.ValidationToken == nil || *u.ValidationToken != token {
		return false, ErrInvalidToken
	}
	err = s.DB.WithContext(ctx).Model(u).Updates(map[string]interface{}{
		"email_validated":  true,
		"validation_token": nil,
	}).Error
	return false, err
}

// ResendValidation rotates the validation token and sends a new e-mail. The token is
// returned only when ExposeTokens is set.
func (s *Service) ResendValidation(ctx context.Context, email string) (token string, alreadyValidated bool, err error) {
	if strings.TrimSpace(email) == "" {
		return "", false, apperror.Validation("Email is required", map[string]string{"email": "is required"})
	}
	u, err := s.byEmail(ctx, email)
	if err != nil {
		return "", false, err
	}
	if u.EmailValidated {
		return "", true, nil
	}
	token, err = newValidationToken()
	if err != nil {
		return "", false, err
	}
	if err := s.DB.WithContext(ctx).Model(u).Update("validation_token", token).Error; err != nil {
		return "", false, err
	}
	s.sendValidation(ctx, u, token)
	if !s.ExposeTokens {
		token = ""
	}
	return token, false, nil
}

// GetProfile returns the actor's own account.
func (s *Service) GetProfile(ctx context.Context, actor domain.Actor) (*domain.User, error) {
	if actor.Anonymous() {
		return nil, apperror.ErrUnauthenticated
	}
	var u domain.User
	if err := s.DB.WithContext(ctx).Where("user_id = ?", actor.UserID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// ProfileUpdate lists the fields a user may change on their own account. Nil leaves a
// field untouched; an empty Phone or Location clears it.
type ProfileUpdate struct {
	Name     *string
	Surname  *string
	Phone    *string
	Location *string
	Seller   *bool
}

// UpdateProfile applies the actor's changes. Turning the seller flag on requests seller
// approval; turning it off revokes any earlier approval.
func (s *Service) UpdateProfile(ctx context.Context, actor domain.Actor, in ProfileUpdate) (*domain.User, error) {
	u, err := s.GetProfile(ctx, actor)
	if err != nil {
		return nil, err
	}

	upd := map[string]interface{}{}
	details := map[string]string{}
	if in.Name != nil {
		if !validation.IsValidName(strings.TrimSpace(*in.Name)) {
			details["name"] = "may only contain letters, spaces, hyphens and apostrophes"
		}
		upd["name"] = normalizeName(*in.Name)
	}
	if in.Surname != nil {
		if !validation.IsValidName(strings.TrimSpace(*in.Surname)) {
			details["surname"] = "may only contain letters, spaces, hyphens and apostrophes"
		}
		upd["surname"] = normalizeName(*in.Surname)
	}
	if in.Phone != nil {
		upd["phone"] = optional(*in.Phone)
	}
	if in.Location != nil {
		upd["location"] = optional(*in.Location)
	}
	if in.Seller != nil && *in.Seller != u.Seller {
		upd["seller"] = *in.Seller
		if !*in.Seller {
			upd["seller_approved"] = false
			upd["seller_approved_by"] = nil
		}
	}
	if len(details) > 0 {
		return nil, apperror.Validation("Invalid profile data", details)
	}
	if len(upd) == 0 {
		return u, nil
	}
	if err := s.DB.WithContext(ctx).Model(u).Updates(upd).Error; err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, actor)
}

func (s *Service) byEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := s.DB.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Service) sendValidation(ctx context.Context, u *domain.User, token string) {
	if s.Mailer == nil {
		return
	}
	q := url.Values{}
	q.Set("token", token)
	q.Set("email", u.Email)
	link := s.PublicBaseURL + "/validar-email?" + q.Encode()
	if err := s.Mailer.SendEmailValidation(ctx, u.Email, u.FullName(), link); err != nil {
		log.Error().Err(err).Str("user_id", u.UserID.String()).Msg("failed to send validation email")
	}
}

func newValidationToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// normalizeName collapses whitespace and title-cases each word.
func normalizeName(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	var b strings.Builder
	capitalize := true
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !capitalize {
				b.WriteRune(' ')
				capitalize = true
			}
			continue
		}
		if capitalize {
			b.WriteRune(unicode.ToUpper(r))
			capitalize = false
		} else {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
