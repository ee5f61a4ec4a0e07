package organization

import (
	"context"

	"github.com/stagepass/api/pkg/domain/shared"
)

// Repository defines the organization lookups the membership core
// depends on.
type Repository interface {
	GetByID(ctx context.Context, id shared.ID) (*Organization, error)

	// OwnerEmail returns the account email of the organization owner,
	// used to reject inviting the owner to their own organization.
	OwnerEmail(ctx context.Context, id shared.ID) (string, error)

	// ListingIDs returns the ids of every listing the organization
	// owns; all_listings memberships resolve against this set.
	ListingIDs(ctx context.Context, id shared.ID) ([]string, error)
}
