package user

import (
	"context"

	"github.com/stagepass/api/pkg/domain/shared"
)

// Repository defines the user lookups the membership core depends on.
type Repository interface {
	GetByID(ctx context.Context, id shared.ID) (*User, error)

	// FindByEmail resolves a user by normalized email, exact
	// case-insensitive match. Returns shared.ErrNotFound when no
	// account matches; callers treat that as "no match", not failure.
	FindByEmail(ctx context.Context, email string) (*User, error)
}
