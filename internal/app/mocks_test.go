package app

import (
	"context"
	"slices"
	"sync"

	"github.com/stagepass/api/pkg/domain/membership"
	"github.com/stagepass/api/pkg/domain/organization"
	"github.com/stagepass/api/pkg/domain/shared"
	"github.com/stagepass/api/pkg/domain/user"
	"github.com/stagepass/api/pkg/email"
)

// mockMembershipRepo is an in-memory membership.Repository.
type mockMembershipRepo struct {
	mu          sync.Mutex
	memberships map[string]*membership.Membership
}

func newMockMembershipRepo() *mockMembershipRepo {
	return &mockMembershipRepo{memberships: make(map[string]*membership.Membership)}
}

var _ membership.Repository = (*mockMembershipRepo)(nil)

func (r *mockMembershipRepo) Create(_ context.Context, m *membership.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *m
	r.memberships[m.ID.String()] = &clone
	return nil
}

func (r *mockMembershipRepo) GetByID(_ context.Context, id shared.ID) (*membership.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.memberships[id.String()]
	if !ok || m.IsDeleted() {
		return nil, shared.ErrNotFound
	}
	clone := *m
	return &clone, nil
}

func (r *mockMembershipRepo) GetByToken(_ context.Context, token string) (*membership.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.memberships {
		if m.Token == token && !m.IsDeleted() {
			clone := *m
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *mockMembershipRepo) Update(_ context.Context, m *membership.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.memberships[m.ID.String()]
	if !ok || existing.IsDeleted() {
		return shared.ErrNotFound
	}
	clone := *m
	r.memberships[m.ID.String()] = &clone
	return nil
}

func (r *mockMembershipRepo) SoftDelete(_ context.Context, id shared.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.memberships[id.String()]
	if !ok || m.IsDeleted() {
		return shared.ErrNotFound
	}
	now := m.UpdatedAt
	m.DeletedAt = &now
	return nil
}

func (r *mockMembershipRepo) ListByUser(_ context.Context, userID shared.ID) ([]*membership.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*membership.Membership, 0)
	for _, m := range r.memberships {
		if m.UserID != nil && m.UserID.Equals(userID) && !m.IsDeleted() {
			clone := *m
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *mockMembershipRepo) ListByOrganization(_ context.Context, organizationID shared.ID) ([]*membership.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*membership.Membership, 0)
	for _, m := range r.memberships {
		if m.OrganizationID.Equals(organizationID) && !m.IsDeleted() {
			clone := *m
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *mockMembershipRepo) CountByOrganization(_ context.Context, organizationID shared.ID) (int, error) {
	memberships, _ := r.ListByOrganization(context.Background(), organizationID)
	return len(memberships), nil
}

func (r *mockMembershipRepo) ExistsByOrganizationAndEmail(_ context.Context, organizationID shared.ID, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.memberships {
		if m.OrganizationID.Equals(organizationID) && m.Email == email && !m.IsDeleted() {
			return true, nil
		}
	}
	return false, nil
}

func (r *mockMembershipRepo) GetActiveByUserAndOrganization(_ context.Context, userID, organizationID shared.ID) (*membership.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.memberships {
		if m.UserID != nil && m.UserID.Equals(userID) &&
			m.OrganizationID.Equals(organizationID) &&
			m.IsActive() && !m.IsDeleted() {
			clone := *m
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

// mockOrganizationRepo is an in-memory organization.Repository.
type mockOrganizationRepo struct {
	organizations map[string]*organization.Organization
	ownerEmails   map[string]string
	listingIDs    map[string][]string
}

func newMockOrganizationRepo() *mockOrganizationRepo {
	return &mockOrganizationRepo{
		organizations: make(map[string]*organization.Organization),
		ownerEmails:   make(map[string]string),
		listingIDs:    make(map[string][]string),
	}
}

var _ organization.Repository = (*mockOrganizationRepo)(nil)

func (r *mockOrganizationRepo) add(org *organization.Organization, ownerEmail string, listingIDs ...string) {
	r.organizations[org.ID.String()] = org
	r.ownerEmails[org.ID.String()] = ownerEmail
	r.listingIDs[org.ID.String()] = listingIDs
}

func (r *mockOrganizationRepo) GetByID(_ context.Context, id shared.ID) (*organization.Organization, error) {
	org, ok := r.organizations[id.String()]
	if !ok || org.IsDeleted() {
		return nil, shared.ErrNotFound
	}
	return org, nil
}

func (r *mockOrganizationRepo) OwnerEmail(_ context.Context, id shared.ID) (string, error) {
	e, ok := r.ownerEmails[id.String()]
	if !ok {
		return "", shared.ErrNotFound
	}
	return e, nil
}

func (r *mockOrganizationRepo) ListingIDs(_ context.Context, id shared.ID) ([]string, error) {
	return slices.Clone(r.listingIDs[id.String()]), nil
}

// mockUserRepo is an in-memory user.Repository.
type mockUserRepo struct {
	users map[string]*user.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*user.User)}
}

var _ user.Repository = (*mockUserRepo)(nil)

func (r *mockUserRepo) add(u *user.User) {
	r.users[u.ID.String()] = u
}

func (r *mockUserRepo) GetByID(_ context.Context, id shared.ID) (*user.User, error) {
	u, ok := r.users[id.String()]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (r *mockUserRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range r.users {
		if membership.NormalizeEmail(u.Email) == membership.NormalizeEmail(email) {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

// stubEnqueuer records enqueued membership ids.
type stubEnqueuer struct {
	enqueued []shared.ID
	err      error
}

var _ InvitationEnqueuer = (*stubEnqueuer)(nil)

func (s *stubEnqueuer) EnqueueInvitationDispatch(_ context.Context, membershipID shared.ID) error {
	if s.err != nil {
		return s.err
	}
	s.enqueued = append(s.enqueued, membershipID)
	return nil
}

// stubInvitePolicy refuses the configured addresses.
type stubInvitePolicy struct {
	blacklisted map[string]bool
	unconfirmed map[string]bool
}

var _ InvitePolicy = (*stubInvitePolicy)(nil)

func (s *stubInvitePolicy) CheckRecipient(_ context.Context, address string) error {
	if s.blacklisted[address] {
		return email.ErrBlacklistedRecipient
	}
	if s.unconfirmed[address] {
		return email.ErrUnconfirmedRecipient
	}
	return nil
}

// recordingSender captures sent messages.
type recordingSender struct {
	sent    []string
	sendErr error
}

var _ email.Sender = (*recordingSender)(nil)

func (s *recordingSender) IsConfigured() bool { return true }

func (s *recordingSender) Send(_ context.Context, msg *email.Message) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, msg.To...)
	return nil
}

func (s *recordingSender) SendTemplate(_ context.Context, to string, _ email.Template, _ any) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, to)
	return nil
}
