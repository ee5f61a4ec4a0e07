// Package organization defines the tenant entity that owns
// memberships and listings. The billing plan and business info that
// hang off an organization live in other services; only the fields
// the membership core reads are modeled here.
package organization

import (
	"time"

	"github.com/stagepass/api/pkg/domain/shared"
)

// MaxMemberships is the hard cap of non-deleted memberships per
// organization, checked at membership creation.
const MaxMemberships = 250

// Organization is the tenant that owns memberships and listings.
type Organization struct {
	ID        shared.ID
	Name      string
	OwnerID   shared.ID
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// IsDeleted reports whether the organization has been soft-deleted.
func (o *Organization) IsDeleted() bool {
	return o.DeletedAt != nil
}
