package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagepass/api/pkg/domain/membership"
	"github.com/stagepass/api/pkg/domain/organization"
	"github.com/stagepass/api/pkg/domain/shared"
	"github.com/stagepass/api/pkg/domain/user"
	"github.com/stagepass/api/pkg/logger"
)

type serviceFixture struct {
	service     *MembershipService
	memberships *mockMembershipRepo
	orgs        *mockOrganizationRepo
	users       *mockUserRepo
	enqueuer    *stubEnqueuer
	org         *organization.Organization
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	memberships := newMockMembershipRepo()
	orgs := newMockOrganizationRepo()
	users := newMockUserRepo()
	enqueuer := &stubEnqueuer{}

	owner := &user.User{ID: shared.NewID(), Email: "owner@venue.com"}
	users.add(owner)

	org := &organization.Organization{
		ID:      shared.NewID(),
		Name:    "Velvet Room",
		OwnerID: owner.ID,
	}
	orgs.add(org, owner.Email, "listing-1", "listing-2")

	return &serviceFixture{
		service:     NewMembershipService(memberships, orgs, users, enqueuer, logger.NewNop()),
		memberships: memberships,
		orgs:        orgs,
		users:       users,
		enqueuer:    enqueuer,
		org:         org,
	}
}

func fieldErrors(t *testing.T, err error) membership.FieldErrors {
	t.Helper()
	var errs membership.FieldErrors
	require.ErrorAs(t, err, &errs)
	return errs
}

func TestCreateMembership(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pending membership and enqueues dispatch", func(t *testing.T) {
		f := newServiceFixture(t)

		m, err := f.service.Create(ctx, CreateMembershipInput{
			OrganizationID: f.org.ID.String(),
			Email:          "  Staff@Example.COM ",
			RoleName:       "door",
			Permissions:    membership.Permissions{CheckIn: true},
		})
		require.NoError(t, err)

		assert.Equal(t, "staff@example.com", m.Email)
		assert.Equal(t, membership.StatePending, m.State)
		assert.Nil(t, m.UserID)
		assert.NotEmpty(t, m.Token)

		require.Len(t, f.enqueuer.enqueued, 1)
		assert.True(t, f.enqueuer.enqueued[0].Equals(m.ID))

		stored, err := f.memberships.GetByID(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, "staff@example.com", stored.Email)
	})

	t.Run("links an existing account by email", func(t *testing.T) {
		f := newServiceFixture(t)
		existing := &user.User{ID: shared.NewID(), Email: "Known@Example.com"}
		f.users.add(existing)

		m, err := f.service.Create(ctx, CreateMembershipInput{
			OrganizationID: f.org.ID.String(),
			Email:          "known@example.com",
		})
		require.NoError(t, err)
		require.NotNil(t, m.UserID)
		assert.True(t, m.UserID.Equals(existing.ID))
		assert.Equal(t, membership.StatePending, m.State)
	})

	t.Run("rejects blank email", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.service.Create(ctx, CreateMembershipInput{
			OrganizationID: f.org.ID.String(),
		})
		errs := fieldErrors(t, err)
		assert.Equal(t, "can't be blank", errs["email"])
	})

	t.Run("rejects malformed email", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.service.Create(ctx, CreateMembershipInput{
			OrganizationID: f.org.ID.String(),
			Email:          "not-an-email",
		})
		errs := fieldErrors(t, err)
		assert.Equal(t, "must be formatted like an email", errs["email"])
	})

	t.Run("rejects duplicate email in organization", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.service.Create(ctx, CreateMembershipInput{
			OrganizationID: f.org.ID.String(),
			Email:          "staff@example.com",
		})
		require.NoError(t, err)

		_, err = f.service.Create(ctx, CreateMembershipInput{
			OrganizationID: f.org.ID.String(),
			Email:          "STAFF@example.com",
		})
		errs := fieldErrors(t, err)
		assert.Equal(t, "already is a member", errs["email"])
	})

	t.Run("allows reusing a soft-deleted membership email", func(t *testing.T) {
		f := newServiceFixture(t)

		m, err := f.service.Create(ctx, CreateMembershipInput{
			OrganizationID: f.org.ID.String(),
			Email:          "staff@example.com",
		})
		require.NoError(t, err)
		require.NoError(t, f.service.Destroy(ctx, m.ID))

		_, err = f.service.Create(ctx, CreateMembershipInput{
			OrganizationID: f.org.ID.String(),
			Email:          "staff@example.com",
		})
		assert.NoError(t, err)
	})

	t.Run("rejects the organization owner email", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.service.Create(ctx, CreateMembershipInput{
			OrganizationID: f.org.ID.String(),
			Email:          "Owner@Venue.com",
		})
		errs := fieldErrors(t, err)
		assert.Equal(t, "belongs to the organization owner", errs["email"])
	})

	t.Run("rejects incomplete creatable permissions", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.service.Create(ctx, CreateMembershipInput{
			OrganizationID: f.org.ID.String(),
			Email:          "staff@example.com",
			Permissions:    membership.Permissions{Creatable: true, Edit: true},
		})
		errs := fieldErrors(t, err)
		assert.Equal(t, "All event permissions must be allowed", errs["creatable"])
	})

	t.Run("rejects at capacity", func(t *testing.T) {
		f := newServiceFixture(t)
		for i := 0; i < organization.MaxMemberships; i++ {
			m, err := membership.New(f.org.ID, fmt.Sprintf("m%d@example.com", i))
			require.NoError(t, err)
			require.NoError(t, f.memberships.Create(ctx, m))
		}

		_, err := f.service.Create(ctx, CreateMembershipInput{
			OrganizationID: f.org.ID.String(),
			Email:          "overflow@example.com",
		})
		errs := fieldErrors(t, err)
		assert.Equal(t, "Maximum memberships for this organization reached", errs["organization_max"])
	})

	t.Run("collects co-occurring errors", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.service.Create(ctx, CreateMembershipInput{
			OrganizationID: f.org.ID.String(),
			Email:          "bad email",
			Permissions:    membership.Permissions{Creatable: true},
		})
		errs := fieldErrors(t, err)
		assert.Len(t, errs, 2)
		assert.Contains(t, errs, "email")
		assert.Contains(t, errs, "creatable")
	})

	t.Run("unknown organization", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.service.Create(ctx, CreateMembershipInput{
			OrganizationID: shared.NewID().String(),
			Email:          "staff@example.com",
		})
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("enqueue failure does not fail the create", func(t *testing.T) {
		f := newServiceFixture(t)
		f.enqueuer.err = errors.New("redis down")

		m, err := f.service.Create(ctx, CreateMembershipInput{
			OrganizationID: f.org.ID.String(),
			Email:          "staff@example.com",
		})
		require.NoError(t, err)
		assert.NotNil(t, m)
	})
}

func TestUpdateMembership(t *testing.T) {
	ctx := context.Background()

	t.Run("applies changes", func(t *testing.T) {
		f := newServiceFixture(t)
		m, err := f.service.Create(ctx, CreateMembershipInput{
			OrganizationID: f.org.ID.String(),
			Email:          "staff@example.com",
		})
		require.NoError(t, err)

		newEmail := "moved@example.com"
		role := "manager"
		perms := membership.Permissions{Manage: true}
		updated, err := f.service.Update(ctx, m.ID, UpdateMembershipInput{
			Email:       &newEmail,
			RoleName:    &role,
			Permissions: &perms,
		})
		require.NoError(t, err)
		assert.Equal(t, "moved@example.com", updated.Email)
		assert.Equal(t, "manager", updated.RoleName)
		assert.True(t, updated.Permissions.Manage)
	})

	t.Run("re-validates email format", func(t *testing.T) {
		f := newServiceFixture(t)
		m, err := f.service.Create(ctx, CreateMembershipInput{
			OrganizationID: f.org.ID.String(),
			Email:          "staff@example.com",
		})
		require.NoError(t, err)

		bad := "nope"
		_, err = f.service.Update(ctx, m.ID, UpdateMembershipInput{Email: &bad})
		errs := fieldErrors(t, err)
		assert.Equal(t, "must be formatted like an email", errs["email"])
	})

	t.Run("re-validates creatable completeness", func(t *testing.T) {
		f := newServiceFixture(t)
		m, err := f.service.Create(ctx, CreateMembershipInput{
			OrganizationID: f.org.ID.String(),
			Email:          "staff@example.com",
		})
		require.NoError(t, err)

		perms := membership.Permissions{Creatable: true, CheckIn: true}
		_, err = f.service.Update(ctx, m.ID, UpdateMembershipInput{Permissions: &perms})
		errs := fieldErrors(t, err)
		assert.Equal(t, "All event permissions must be allowed", errs["creatable"])
	})

	t.Run("unknown membership", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.service.Update(ctx, shared.NewID(), UpdateMembershipInput{})
		assert.True(t, shared.IsNotFound(err))
	})
}

func TestDestroyMembership(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	m, err := f.service.Create(ctx, CreateMembershipInput{
		OrganizationID: f.org.ID.String(),
		Email:          "staff@example.com",
	})
	require.NoError(t, err)

	require.NoError(t, f.service.Destroy(ctx, m.ID))

	_, err = f.service.Get(ctx, m.ID)
	assert.True(t, shared.IsNotFound(err))

	err = f.service.Destroy(ctx, m.ID)
	assert.True(t, shared.IsNotFound(err))
}

func TestEffectiveListingIDs(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	t.Run("explicit listing ids", func(t *testing.T) {
		m := &membership.Membership{OrganizationID: f.org.ID, ListingIDs: []string{"listing-9"}}
		ids, err := f.service.EffectiveListingIDs(ctx, m)
		require.NoError(t, err)
		assert.Equal(t, []string{"listing-9"}, ids)
	})

	t.Run("all listings resolves the organization set", func(t *testing.T) {
		m := &membership.Membership{OrganizationID: f.org.ID, AllListings: true, ListingIDs: []string{"ignored"}}
		ids, err := f.service.EffectiveListingIDs(ctx, m)
		require.NoError(t, err)
		assert.Equal(t, []string{"listing-1", "listing-2"}, ids)
	})
}

func TestClaimInvitation(t *testing.T) {
	ctx := context.Background()

	t.Run("links and activates", func(t *testing.T) {
		f := newServiceFixture(t)
		created, err := f.service.Create(ctx, CreateMembershipInput{
			OrganizationID: f.org.ID.String(),
			Email:          "invitee@example.com",
		})
		require.NoError(t, err)

		claimer := shared.NewID()
		claimed, err := f.service.ClaimInvitation(ctx, created.Token, claimer)
		require.NoError(t, err)

		assert.Equal(t, membership.StateActive, claimed.State)
		require.NotNil(t, claimed.UserID)
		assert.True(t, claimed.UserID.Equals(claimer))
		assert.NotNil(t, claimed.ActivatedAt)
	})

	t.Run("stays pending when another active membership exists", func(t *testing.T) {
		f := newServiceFixture(t)
		claimer := shared.NewID()

		active, err := membership.New(f.org.ID, "other@example.com")
		require.NoError(t, err)
		active.UserID = &claimer
		require.True(t, active.Activate(time.Now(), false))
		require.NoError(t, f.memberships.Create(ctx, active))

		created, err := f.service.Create(ctx, CreateMembershipInput{
			OrganizationID: f.org.ID.String(),
			Email:          "invitee@example.com",
		})
		require.NoError(t, err)

		claimed, err := f.service.ClaimInvitation(ctx, created.Token, claimer)
		require.NoError(t, err)
		assert.Equal(t, membership.StatePending, claimed.State)
	})

	t.Run("rejects a token owned by someone else", func(t *testing.T) {
		f := newServiceFixture(t)
		owner := &user.User{ID: shared.NewID(), Email: "linked@example.com"}
		f.users.add(owner)

		created, err := f.service.Create(ctx, CreateMembershipInput{
			OrganizationID: f.org.ID.String(),
			Email:          "linked@example.com",
		})
		require.NoError(t, err)

		_, err = f.service.ClaimInvitation(ctx, created.Token, shared.NewID())
		assert.True(t, shared.IsForbidden(err))
	})

	t.Run("unknown token", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.service.ClaimInvitation(ctx, "missing", shared.NewID())
		assert.True(t, shared.IsNotFound(err))
	})
}
