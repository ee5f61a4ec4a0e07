package app

import (
	"context"
	"fmt"

	"github.com/stagepass/api/internal/metrics"
	"github.com/stagepass/api/pkg/domain/membership"
	"github.com/stagepass/api/pkg/domain/organization"
	"github.com/stagepass/api/pkg/domain/shared"
	"github.com/stagepass/api/pkg/logger"
)

// Action is an operation the authorization gate decides on.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionManage Action = "manage"
	ActionDelete Action = "delete"
)

// GatePolicy configures which permission fields grant membership
// management within an organization.
type GatePolicy struct {
	ManageFields []membership.Field
}

// DefaultGatePolicy grants management to admin and manage holders.
func DefaultGatePolicy() GatePolicy {
	return GatePolicy{
		ManageFields: []membership.Field{
			membership.FieldAdmin,
			membership.FieldManage,
		},
	}
}

// AuthorizationGate decides whether an actor may perform an action on
// a membership. Denials on missing targets surface as not-found so
// resource existence never leaks.
type AuthorizationGate struct {
	memberships   membership.Repository
	organizations organization.Repository
	policy        GatePolicy
	logger        *logger.Logger
}

// NewAuthorizationGate creates a new AuthorizationGate.
func NewAuthorizationGate(
	memberships membership.Repository,
	organizations organization.Repository,
	policy GatePolicy,
	log *logger.Logger,
) *AuthorizationGate {
	if len(policy.ManageFields) == 0 {
		policy = DefaultGatePolicy()
	}
	return &AuthorizationGate{
		memberships:   memberships,
		organizations: organizations,
		policy:        policy,
		logger:        log.With("service", "authorization"),
	}
}

// Authorize checks whether actorID may perform action on target.
// Returns nil when allowed, shared.ErrNotFound when the target does
// not exist, shared.ErrForbidden otherwise.
func (g *AuthorizationGate) Authorize(ctx context.Context, actorID shared.ID, action Action, target *membership.Membership) error {
	err := g.authorize(ctx, actorID, action, target)

	outcome := "allow"
	if err != nil {
		outcome = "deny"
	}
	metrics.AuthorizationDecisionsTotal.WithLabelValues(string(action), outcome).Inc()

	return err
}

func (g *AuthorizationGate) authorize(ctx context.Context, actorID shared.ID, action Action, target *membership.Membership) error {
	if target == nil || target.IsDeleted() {
		return shared.ErrNotFound
	}

	if action == ActionRead && target.UserID != nil && target.UserID.Equals(actorID) {
		return nil
	}

	allowed, err := g.canManageOrganization(ctx, actorID, target.OrganizationID)
	if err != nil {
		return err
	}
	if allowed {
		return nil
	}
	return shared.ErrForbidden
}

// AuthorizeOrganization checks whether actorID may manage memberships
// of an organization (owner, or holder of a manage-granting active
// membership).
func (g *AuthorizationGate) AuthorizeOrganization(ctx context.Context, actorID, organizationID shared.ID) error {
	allowed, err := g.canManageOrganization(ctx, actorID, organizationID)
	if err != nil {
		return err
	}
	if !allowed {
		return shared.ErrForbidden
	}
	return nil
}

func (g *AuthorizationGate) canManageOrganization(ctx context.Context, actorID, organizationID shared.ID) (bool, error) {
	org, err := g.organizations.GetByID(ctx, organizationID)
	switch {
	case err == nil:
		if org.OwnerID.Equals(actorID) {
			return true, nil
		}
	case shared.IsNotFound(err):
	default:
		return false, fmt.Errorf("failed to load organization: %w", err)
	}

	actorMembership, err := g.memberships.GetActiveByUserAndOrganization(ctx, actorID, organizationID)
	switch {
	case err == nil:
		for _, f := range g.policy.ManageFields {
			if actorMembership.Permissions.Get(f) {
				return true, nil
			}
		}
	case shared.IsNotFound(err):
	default:
		return false, fmt.Errorf("failed to load actor membership: %w", err)
	}

	return false, nil
}
