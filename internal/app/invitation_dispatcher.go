package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stagepass/api/internal/metrics"
	"github.com/stagepass/api/internal/tracing"
	"github.com/stagepass/api/pkg/domain/membership"
	"github.com/stagepass/api/pkg/domain/organization"
	"github.com/stagepass/api/pkg/domain/shared"
	"github.com/stagepass/api/pkg/email"
	"github.com/stagepass/api/pkg/logger"
)

// InvitePolicy decides whether an address may receive invitation
// email. A refusal comes back as email.ErrBlacklistedRecipient or
// email.ErrUnconfirmedRecipient.
type InvitePolicy interface {
	CheckRecipient(ctx context.Context, address string) error
}

// InvitationDispatcher runs the post-create invitation flow: activate
// memberships already linked to a user, email everyone else.
//
// Dispatch is invoked from a background job with retries disabled, so
// expected delivery refusals are logged and swallowed; only genuine
// failures surface as job errors.
type InvitationDispatcher struct {
	memberships   membership.Repository
	organizations organization.Repository
	policy        InvitePolicy
	emails        *EmailService
	logger        *logger.Logger
}

// NewInvitationDispatcher creates a new InvitationDispatcher.
func NewInvitationDispatcher(
	memberships membership.Repository,
	organizations organization.Repository,
	policy InvitePolicy,
	emails *EmailService,
	log *logger.Logger,
) *InvitationDispatcher {
	return &InvitationDispatcher{
		memberships:   memberships,
		organizations: organizations,
		policy:        policy,
		emails:        emails,
		logger:        log.With("service", "invitation_dispatcher"),
	}
}

// Dispatch processes one membership.
func (d *InvitationDispatcher) Dispatch(ctx context.Context, membershipID shared.ID) error {
	ctx, span := tracing.Tracer().Start(ctx, "invitation.dispatch")
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.InvitationDispatchDuration.Observe(time.Since(start).Seconds())
	}()

	log := d.logger.With("membership_id", membershipID.String())

	m, err := d.memberships.GetByID(ctx, membershipID)
	if err != nil {
		if shared.IsNotFound(err) {
			log.Warn("membership gone before dispatch, skipping")
			metrics.InvitationDispatchesTotal.WithLabelValues("missing").Inc()
			return nil
		}
		metrics.InvitationDispatchesTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to load membership: %w", err)
	}

	if m.UserID != nil && !m.UserID.IsZero() {
		return d.activate(ctx, m, log)
	}
	return d.invite(ctx, m, log)
}

// activate applies the pending to active transition for a membership
// already linked to a user account. No email is sent either way: the
// user exists, the membership just grants them access.
func (d *InvitationDispatcher) activate(ctx context.Context, m *membership.Membership, log *logger.Logger) error {
	hasOther := false
	_, err := d.memberships.GetActiveByUserAndOrganization(ctx, *m.UserID, m.OrganizationID)
	switch {
	case err == nil:
		hasOther = true
	case shared.IsNotFound(err):
	default:
		metrics.InvitationDispatchesTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to check active memberships: %w", err)
	}

	if !m.Activate(time.Now(), hasOther) {
		log.Info("activation guard not satisfied, membership stays pending",
			"state", m.State.String(),
			"has_other_active", hasOther,
		)
		metrics.InvitationDispatchesTotal.WithLabelValues("skipped_active").Inc()
		return nil
	}

	if err := d.memberships.Update(ctx, m); err != nil {
		metrics.InvitationDispatchesTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to persist activation: %w", err)
	}

	metrics.MembershipActivationsTotal.Inc()
	metrics.InvitationDispatchesTotal.WithLabelValues("activated").Inc()
	log.Info("membership activated")
	return nil
}

// invite emails the invitation to an address with no linked account.
func (d *InvitationDispatcher) invite(ctx context.Context, m *membership.Membership, log *logger.Logger) error {
	if d.policy != nil {
		if err := d.policy.CheckRecipient(ctx, m.Email); err != nil {
			return d.handleSendError(err, log)
		}
	}

	org, err := d.organizations.GetByID(ctx, m.OrganizationID)
	if err != nil {
		return d.handleSendError(err, log)
	}

	if err := d.emails.SendMembershipInvite(ctx, m, org.Name); err != nil {
		return d.handleSendError(err, log)
	}

	metrics.InviteEmailsSentTotal.Inc()
	metrics.InvitationDispatchesTotal.WithLabelValues("sent").Inc()
	return nil
}

// handleSendError separates expected refusals from real failures.
// Blacklisted or unconfirmed recipients and records that vanished
// mid-flight are normal operating conditions: log and succeed so the
// job is not marked failed.
func (d *InvitationDispatcher) handleSendError(err error, log *logger.Logger) error {
	switch {
	case errors.Is(err, email.ErrBlacklistedRecipient),
		errors.Is(err, email.ErrUnconfirmedRecipient):
		log.Warn("invite suppressed", "reason", err.Error())
		metrics.InvitationDispatchesTotal.WithLabelValues("suppressed").Inc()
		return nil
	case shared.IsNotFound(err):
		log.Warn("record gone before invite could be sent", "reason", err.Error())
		metrics.InvitationDispatchesTotal.WithLabelValues("missing").Inc()
		return nil
	default:
		metrics.InvitationDispatchesTotal.WithLabelValues("failed").Inc()
		return err
	}
}
