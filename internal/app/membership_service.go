package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/stagepass/api/internal/metrics"
	"github.com/stagepass/api/internal/tracing"
	"github.com/stagepass/api/pkg/domain/membership"
	"github.com/stagepass/api/pkg/domain/organization"
	"github.com/stagepass/api/pkg/domain/shared"
	"github.com/stagepass/api/pkg/domain/user"
	"github.com/stagepass/api/pkg/logger"
	"github.com/stagepass/api/pkg/validator"
)

// InvitationEnqueuer schedules the invitation dispatch job for a
// freshly created membership. Enqueueing is explicit; there are no
// persistence hooks.
type InvitationEnqueuer interface {
	EnqueueInvitationDispatch(ctx context.Context, membershipID shared.ID) error
}

// MembershipService handles membership business operations.
type MembershipService struct {
	memberships   membership.Repository
	organizations organization.Repository
	users         user.Repository
	enqueuer      InvitationEnqueuer
	model         *membership.Model
	validator     *validator.Validator
	logger        *logger.Logger
}

// NewMembershipService creates a new MembershipService.
func NewMembershipService(
	memberships membership.Repository,
	organizations organization.Repository,
	users user.Repository,
	enqueuer InvitationEnqueuer,
	log *logger.Logger,
) *MembershipService {
	return &MembershipService{
		memberships:   memberships,
		organizations: organizations,
		users:         users,
		enqueuer:      enqueuer,
		model:         membership.DefaultModel(),
		validator:     validator.New(),
		logger:        log.With("service", "membership"),
	}
}

// CreateMembershipInput represents the input for creating a membership.
type CreateMembershipInput struct {
	OrganizationID string                 `json:"organization_id" validate:"required"`
	Email          string                 `json:"email" validate:"max=254"`
	RoleName       string                 `json:"role_name" validate:"max=100"`
	AllListings    bool                   `json:"all_listings"`
	ListingIDs     []string               `json:"listing_ids" validate:"max=500,dive,max=64"`
	Permissions    membership.Permissions `json:"permissions"`
}

// UpdateMembershipInput represents the input for updating a membership.
// Nil fields are left unchanged.
type UpdateMembershipInput struct {
	Email       *string                 `json:"email" validate:"omitempty,max=254"`
	RoleName    *string                 `json:"role_name" validate:"omitempty,max=100"`
	AllListings *bool                   `json:"all_listings"`
	ListingIDs  *[]string               `json:"listing_ids" validate:"omitempty,max=500,dive,max=64"`
	Permissions *membership.Permissions `json:"permissions"`
}

// Create creates a pending membership, links it to an existing user
// account when the email matches one, and enqueues the invitation
// dispatch job. Validation failures come back as
// membership.FieldErrors with every co-occurring error collected.
func (s *MembershipService) Create(ctx context.Context, input CreateMembershipInput) (*membership.Membership, error) {
	ctx, span := tracing.Tracer().Start(ctx, "membership.create")
	defer span.End()

	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	errs := membership.NewFieldErrors()

	orgID, err := shared.IDFromString(input.OrganizationID)
	if err != nil {
		errs.Add("organization_id", "is invalid")
		return nil, s.failValidation(errs)
	}

	org, err := s.organizations.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}

	m, err := membership.New(org.ID, input.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}
	m.RoleName = input.RoleName
	m.AllListings = input.AllListings
	m.ListingIDs = slices.Clone(input.ListingIDs)
	m.Permissions = input.Permissions

	m.ValidateEmail(errs)
	m.ValidateCreatable(s.model, errs)

	if _, ok := errs["email"]; !ok {
		exists, err := s.memberships.ExistsByOrganizationAndEmail(ctx, org.ID, m.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to check existing membership: %w", err)
		}
		if exists {
			errs.Add("email", "already is a member")
		}

		ownerEmail, err := s.organizations.OwnerEmail(ctx, org.ID)
		if err != nil && !shared.IsNotFound(err) {
			return nil, fmt.Errorf("failed to resolve owner email: %w", err)
		}
		if ownerEmail != "" && membership.NormalizeEmail(ownerEmail) == m.Email {
			errs.Add("email", "belongs to the organization owner")
		}
	}

	count, err := s.memberships.CountByOrganization(ctx, org.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count memberships: %w", err)
	}
	if count >= organization.MaxMemberships {
		errs.Add("organization_max", "Maximum memberships for this organization reached")
	}

	if errs.HasErrors() {
		return nil, s.failValidation(errs)
	}

	// Link an existing account by email; no match is not a failure.
	account, err := s.users.FindByEmail(ctx, m.Email)
	switch {
	case err == nil:
		m.UserID = &account.ID
	case shared.IsNotFound(err):
	default:
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.memberships.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to persist membership: %w", err)
	}

	metrics.MembershipsCreatedTotal.WithLabelValues(m.State.String()).Inc()
	s.logger.Info("membership created",
		"membership_id", m.ID.String(),
		"organization_id", m.OrganizationID.String(),
		"linked_user", m.UserID != nil,
	)

	if err := s.enqueuer.EnqueueInvitationDispatch(ctx, m.ID); err != nil {
		// The membership exists either way; dispatch can be replayed by
		// an operator.
		s.logger.Error("failed to enqueue invitation dispatch",
			"membership_id", m.ID.String(),
			"error", err,
		)
	}

	return m, nil
}

// Update applies changes to a membership. Email presence/format and
// creatable completeness are re-validated; duplicate, owner and
// capacity checks are create-only.
func (s *MembershipService) Update(ctx context.Context, id shared.ID, input UpdateMembershipInput) (*membership.Membership, error) {
	ctx, span := tracing.Tracer().Start(ctx, "membership.update")
	defer span.End()

	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	m, err := s.memberships.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		m.Email = membership.NormalizeEmail(*input.Email)
	}
	if input.RoleName != nil {
		m.RoleName = *input.RoleName
	}
	if input.AllListings != nil {
		m.AllListings = *input.AllListings
	}
	if input.ListingIDs != nil {
		m.ListingIDs = slices.Clone(*input.ListingIDs)
	}
	if input.Permissions != nil {
		m.Permissions = *input.Permissions
	}

	errs := membership.NewFieldErrors()
	m.ValidateEmail(errs)
	m.ValidateCreatable(s.model, errs)
	if errs.HasErrors() {
		return nil, s.failValidation(errs)
	}

	m.Touch(time.Now())
	if err := s.memberships.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to update membership: %w", err)
	}

	s.logger.Info("membership updated", "membership_id", m.ID.String())
	return m, nil
}

// Destroy soft-deletes a membership.
func (s *MembershipService) Destroy(ctx context.Context, id shared.ID) error {
	m, err := s.memberships.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.memberships.SoftDelete(ctx, m.ID); err != nil {
		return fmt.Errorf("failed to delete membership: %w", err)
	}

	metrics.MembershipsDeletedTotal.Inc()
	s.logger.Info("membership deleted",
		"membership_id", m.ID.String(),
		"organization_id", m.OrganizationID.String(),
	)
	return nil
}

// Get returns a membership by id.
func (s *MembershipService) Get(ctx context.Context, id shared.ID) (*membership.Membership, error) {
	return s.memberships.GetByID(ctx, id)
}

// ListForUser returns the actor's memberships across organizations.
func (s *MembershipService) ListForUser(ctx context.Context, userID shared.ID) ([]*membership.Membership, error) {
	return s.memberships.ListByUser(ctx, userID)
}

// ListForOrganization returns an organization's memberships.
func (s *MembershipService) ListForOrganization(ctx context.Context, organizationID shared.ID) ([]*membership.Membership, error) {
	return s.memberships.ListByOrganization(ctx, organizationID)
}

// EffectiveListingIDs resolves the listings a membership can act on.
// An all_listings membership resolves to every listing the
// organization currently owns.
func (s *MembershipService) EffectiveListingIDs(ctx context.Context, m *membership.Membership) ([]string, error) {
	if !m.AllListings {
		return slices.Clone(m.ListingIDs), nil
	}
	ids, err := s.organizations.ListingIDs(ctx, m.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve organization listings: %w", err)
	}
	return ids, nil
}

// ClaimInvitation links the membership behind an invite token to the
// accepting user and activates it when the guard allows. Claiming a
// membership already linked to a different user is forbidden.
func (s *MembershipService) ClaimInvitation(ctx context.Context, token string, userID shared.ID) (*membership.Membership, error) {
	ctx, span := tracing.Tracer().Start(ctx, "membership.claim_invitation")
	defer span.End()

	m, err := s.memberships.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if m.UserID != nil && !m.UserID.Equals(userID) {
		return nil, shared.ErrForbidden
	}
	m.UserID = &userID

	hasOther, err := s.hasOtherActiveMembership(ctx, userID, m.OrganizationID)
	if err != nil {
		return nil, err
	}

	if m.Activate(time.Now(), hasOther) {
		metrics.MembershipActivationsTotal.Inc()
	} else {
		m.Touch(time.Now())
	}

	if err := s.memberships.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to persist claimed membership: %w", err)
	}

	s.logger.Info("invitation claimed",
		"membership_id", m.ID.String(),
		"state", m.State.String(),
	)
	return m, nil
}

func (s *MembershipService) hasOtherActiveMembership(ctx context.Context, userID, organizationID shared.ID) (bool, error) {
	_, err := s.memberships.GetActiveByUserAndOrganization(ctx, userID, organizationID)
	switch {
	case err == nil:
		return true, nil
	case shared.IsNotFound(err):
		return false, nil
	default:
		return false, fmt.Errorf("failed to check active memberships: %w", err)
	}
}

// validateInput runs structural validation and converts failures into
// FieldErrors.
func (s *MembershipService) validateInput(input any) error {
	err := s.validator.Validate(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate input: %w", err)
	}

	errs := membership.NewFieldErrors()
	for field, message := range verrs.Fields() {
		errs.Add(field, message)
	}
	return s.failValidation(errs)
}

func (s *MembershipService) failValidation(errs membership.FieldErrors) error {
	for field := range errs {
		metrics.MembershipValidationFailures.WithLabelValues(field).Inc()
	}
	return errs
}
