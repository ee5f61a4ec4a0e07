package app

import (
	"context"
	"fmt"

	"github.com/stagepass/api/internal/config"
	"github.com/stagepass/api/pkg/domain/membership"
	"github.com/stagepass/api/pkg/email"
	"github.com/stagepass/api/pkg/logger"
)

// EmailService sends membership-related email.
type EmailService struct {
	sender  email.Sender
	invite  config.InviteConfig
	appName string
	logger  *logger.Logger
}

// NewEmailService creates a new EmailService.
func NewEmailService(sender email.Sender, invite config.InviteConfig, appName string, log *logger.Logger) *EmailService {
	return &EmailService{
		sender:  sender,
		invite:  invite,
		appName: appName,
		logger:  log.With("service", "email"),
	}
}

// IsConfigured returns true if the underlying sender is usable.
func (s *EmailService) IsConfigured() bool {
	return s.sender != nil && s.sender.IsConfigured()
}

// SendMembershipInvite sends the invitation email for a pending
// membership. The accept link carries the membership token.
func (s *EmailService) SendMembershipInvite(ctx context.Context, m *membership.Membership, organizationName string) error {
	if !s.IsConfigured() {
		s.logger.Warn("email service not configured, skipping membership invite",
			"membership_id", m.ID.String(),
		)
		return nil
	}

	data := email.MembershipInviteData{
		OrganizationName: organizationName,
		RoleName:         m.RoleName,
		AcceptURL:        fmt.Sprintf("%s/%s", s.invite.AcceptURLBase, m.Token),
		AppName:          s.appName,
	}

	if err := s.sender.SendTemplate(ctx, m.Email, email.TemplateMembershipInvite, data); err != nil {
		return fmt.Errorf("failed to send membership invite: %w", err)
	}

	s.logger.Info("membership invite sent",
		"membership_id", m.ID.String(),
		"organization_id", m.OrganizationID.String(),
	)
	return nil
}
