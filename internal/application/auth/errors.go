package auth

import "autostand-backend/internal/pkg/apperror"

var (
	ErrCredentialsRequired = apperror.Validation("Identifier and password are required", map[string]string{
		"identifier": "is required",
		"password":   "is required",
	})
	ErrInvalidCredentials = apperror.Unauthenticated("Invalid credentials")
	ErrEmailNotValidated  = apperror.Forbidden("Please validate your email before logging in")
	ErrInvalidToken       = apperror.Unauthenticated("Invalid or expired access token")
)

const defaultBlockReason = "Account blocked by an administrator"

// BlockedError reports the reason an administrator gave when blocking the account.
func BlockedError(reason *string) *apperror.Error {
	r := defaultBlockReason
	if reason != nil && *reason != "" {
		r = *reason
	}
	return apperror.Forbidden("Access denied. Reason: " + r)
}
