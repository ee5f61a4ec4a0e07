package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/stagepass/api/pkg/email"
)

// Redis sets consulted before sending invitation email. The
// suppression pipeline of the platform maintains both.
const (
	blacklistKey   = "invite:blacklist"
	unconfirmedKey = "invite:unconfirmed"
)

// InvitePolicy decides whether an address may receive invitation
// email based on the platform suppression sets.
type InvitePolicy struct {
	client *Client
}

// NewInvitePolicy creates a new InvitePolicy.
func NewInvitePolicy(client *Client) *InvitePolicy {
	return &InvitePolicy{client: client}
}

// CheckRecipient returns email.ErrBlacklistedRecipient or
// email.ErrUnconfirmedRecipient when the address is suppressed, nil
// when delivery may proceed.
func (p *InvitePolicy) CheckRecipient(ctx context.Context, address string) error {
	address = strings.ToLower(strings.TrimSpace(address))

	blacklisted, err := p.client.rdb.SIsMember(ctx, blacklistKey, address).Result()
	if err != nil {
		return fmt.Errorf("failed to check blacklist: %w", err)
	}
	if blacklisted {
		return email.ErrBlacklistedRecipient
	}

	unconfirmed, err := p.client.rdb.SIsMember(ctx, unconfirmedKey, address).Result()
	if err != nil {
		return fmt.Errorf("failed to check unconfirmed set: %w", err)
	}
	if unconfirmed {
		return email.ErrUnconfirmedRecipient
	}

	return nil
}

// Suppress adds an address to the blacklist set. Used by the admin
// CLI and bounce processing.
func (p *InvitePolicy) Suppress(ctx context.Context, address string) error {
	address = strings.ToLower(strings.TrimSpace(address))
	if err := p.client.rdb.SAdd(ctx, blacklistKey, address).Err(); err != nil {
		return fmt.Errorf("failed to suppress address: %w", err)
	}
	return nil
}
