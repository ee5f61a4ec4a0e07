package membership

import (
	"context"

	"github.com/stagepass/api/pkg/domain/shared"
)

// Repository defines membership persistence. Unless stated otherwise,
// lookups exclude soft-deleted rows.
type Repository interface {
	Create(ctx context.Context, m *Membership) error
	GetByID(ctx context.Context, id shared.ID) (*Membership, error)
	GetByToken(ctx context.Context, token string) (*Membership, error)
	Update(ctx context.Context, m *Membership) error

	// SoftDelete stamps deleted_at on the membership.
	SoftDelete(ctx context.Context, id shared.ID) error

	// ListByUser returns a user's memberships across organizations.
	ListByUser(ctx context.Context, userID shared.ID) ([]*Membership, error)

	// ListByOrganization returns an organization's memberships.
	ListByOrganization(ctx context.Context, organizationID shared.ID) ([]*Membership, error)

	// CountByOrganization counts non-deleted memberships; the capacity
	// check reads this before persisting.
	CountByOrganization(ctx context.Context, organizationID shared.ID) (int, error)

	// ExistsByOrganizationAndEmail reports whether a non-deleted
	// membership with the normalized email already exists in the
	// organization.
	ExistsByOrganizationAndEmail(ctx context.Context, organizationID shared.ID, email string) (bool, error)

	// GetActiveByUserAndOrganization returns the active membership for
	// a (user, organization) pair, or ErrNotFound. The activation
	// guard consults this.
	GetActiveByUserAndOrganization(ctx context.Context, userID, organizationID shared.ID) (*Membership, error)
}
