package auth

import (
	"context"
	"errors"
	"fmt"

	"orderchat/backend/internal/models"
)

// ErrUserNotFound is returned when a valid token names an account that no longer exists.
var ErrUserNotFound = errors.New("user not found")

// Identity is the authenticated owner of a token.
type Identity struct {
	UserID string
	Email  string
	Role   models.Role
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

// UserFinder loads accounts by ID. storage.Service satisfies it.
type UserFinder interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Verifier turns a bearer token into an Identity. The role and email are read from the
// account record, not from the token, so a demoted or deleted account takes effect at once.
type Verifier struct {
	tokens *TokenManager
	users  UserFinder
}

// NewVerifier creates a Verifier.
func NewVerifier(tokens *TokenManager, users UserFinder) *Verifier {
	return &Verifier{tokens: tokens, users: users}
}

// Verify validates the token and resolves the identity of its owner.
func (v *Verifier) Verify(ctx context.Context, token string) (Identity, error) {
	claims, err := v.tokens.ParseToken(token)
	if err != nil {
		return Identity{}, err
	}

	user, err := v.users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("load user %s: %w", claims.Subject, err)
	}
	if user == nil {
		return Identity{}, ErrUserNotFound
	}

	return Identity{UserID: user.ID, Email: user.Email, Role: user.Role}, nil
}
