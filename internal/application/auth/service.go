package auth

import (
	"context"
	"errors"
	"strings"

	"autostand-backend/internal/domain"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// LoginInput carries the credentials from the login form. Identifier is an email or a username.
type LoginInput struct {
	Identifier string
	Password   string
}

// UserFinder abstracts credential lookup (GORM in production, doubles in handler tests).
type UserFinder interface {
	FindByCredentials(ctx context.Context, identifier, password string) (*domain.User, error)
}

// GormUserFinder implements UserFinder using GORM and bcrypt.
type GormUserFinder struct{ DB *gorm.DB }

func (g *GormUserFinder) FindByCredentials(ctx context.Context, identifier, password string) (*domain.User, error) {
	return LoginUser(ctx, g.DB, LoginInput{Identifier: identifier, Password: password})
}

// LoginUser checks the password and the account state. Accounts created before e-mail
// validation existed (no pending token) are validated on their first login.
func LoginUser(ctx context.Context, db *gorm.DB, input LoginInput) (*domain.User, error) {
	identifier := strings.TrimSpace(input.Identifier)
	if identifier == "" || input.Password == "" {
		return nil, ErrCredentialsRequired
	}

	var u domain.User
	err := db.WithContext(ctx).
		Where("email = ? OR username = ?", strings.ToLower(identifier), identifier).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if u.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if u.Blocked {
		return nil, BlockedError(u.BlockReason)
	}

	if !u.EmailValidated && u.ValidationToken == nil {
		if err := db.WithContext(ctx).Model(&u).Update("email_validated", true).Error; err != nil {
			return nil, err
		}
		u.EmailValidated = true
	}
	if !u.EmailValidated {
		return nil, ErrEmailNotValidated
	}
	return &u, nil
}
