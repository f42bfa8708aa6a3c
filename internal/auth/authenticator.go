package auth

import (
	"context"

	"github.com/mmynk/spendwise/internal/models"
)

// Authenticator verifies who a caller is. Password login is the only
// implementation today; the service layer depends on this interface only.
type Authenticator interface {
	// Register creates a new account with a display name and credential.
	// Returns ErrEmailExists when the email is taken.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate verifies the credential and returns the matching user.
	// Any mismatch is reported as ErrInvalidCredentials.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks a credential before it is stored.
	ValidateCredential(credential string) error
}
