package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagepass/api/internal/app"
	"github.com/stagepass/api/internal/infra/http/middleware"
	"github.com/stagepass/api/pkg/domain/membership"
	"github.com/stagepass/api/pkg/domain/organization"
	"github.com/stagepass/api/pkg/domain/shared"
	"github.com/stagepass/api/pkg/domain/user"
	"github.com/stagepass/api/pkg/jwt"
	"github.com/stagepass/api/pkg/logger"
)

// In-memory repositories for exercising the full request path.

type memMembershipRepo struct {
	memberships map[string]*membership.Membership
}

var _ membership.Repository = (*memMembershipRepo)(nil)

func (r *memMembershipRepo) Create(_ context.Context, m *membership.Membership) error {
	clone := *m
	r.memberships[m.ID.String()] = &clone
	return nil
}

func (r *memMembershipRepo) GetByID(_ context.Context, id shared.ID) (*membership.Membership, error) {
	m, ok := r.memberships[id.String()]
	if !ok || m.IsDeleted() {
		return nil, shared.ErrNotFound
	}
	clone := *m
	return &clone, nil
}

func (r *memMembershipRepo) GetByToken(_ context.Context, token string) (*membership.Membership, error) {
	for _, m := range r.memberships {
		if m.Token == token && !m.IsDeleted() {
			clone := *m
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memMembershipRepo) Update(_ context.Context, m *membership.Membership) error {
	if _, ok := r.memberships[m.ID.String()]; !ok {
		return shared.ErrNotFound
	}
	clone := *m
	r.memberships[m.ID.String()] = &clone
	return nil
}

func (r *memMembershipRepo) SoftDelete(_ context.Context, id shared.ID) error {
	m, ok := r.memberships[id.String()]
	if !ok || m.IsDeleted() {
		return shared.ErrNotFound
	}
	now := time.Now()
	m.DeletedAt = &now
	return nil
}

func (r *memMembershipRepo) ListByUser(_ context.Context, userID shared.ID) ([]*membership.Membership, error) {
	out := make([]*membership.Membership, 0)
	for _, m := range r.memberships {
		if m.UserID != nil && m.UserID.Equals(userID) && !m.IsDeleted() {
			clone := *m
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memMembershipRepo) ListByOrganization(_ context.Context, organizationID shared.ID) ([]*membership.Membership, error) {
	out := make([]*membership.Membership, 0)
	for _, m := range r.memberships {
		if m.OrganizationID.Equals(organizationID) && !m.IsDeleted() {
			clone := *m
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memMembershipRepo) CountByOrganization(ctx context.Context, organizationID shared.ID) (int, error) {
	list, _ := r.ListByOrganization(ctx, organizationID)
	return len(list), nil
}

func (r *memMembershipRepo) ExistsByOrganizationAndEmail(_ context.Context, organizationID shared.ID, email string) (bool, error) {
	for _, m := range r.memberships {
		if m.OrganizationID.Equals(organizationID) && m.Email == email && !m.IsDeleted() {
			return true, nil
		}
	}
	return false, nil
}

func (r *memMembershipRepo) GetActiveByUserAndOrganization(_ context.Context, userID, organizationID shared.ID) (*membership.Membership, error) {
	for _, m := range r.memberships {
		if m.UserID != nil && m.UserID.Equals(userID) &&
			m.OrganizationID.Equals(organizationID) && m.IsActive() && !m.IsDeleted() {
			clone := *m
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

type memOrganizationRepo struct {
	org        *organization.Organization
	ownerEmail string
}

var _ organization.Repository = (*memOrganizationRepo)(nil)

func (r *memOrganizationRepo) GetByID(_ context.Context, id shared.ID) (*organization.Organization, error) {
	if r.org == nil || !r.org.ID.Equals(id) {
		return nil, shared.ErrNotFound
	}
	return r.org, nil
}

func (r *memOrganizationRepo) OwnerEmail(_ context.Context, id shared.ID) (string, error) {
	if r.org == nil || !r.org.ID.Equals(id) {
		return "", shared.ErrNotFound
	}
	return r.ownerEmail, nil
}

func (r *memOrganizationRepo) ListingIDs(_ context.Context, _ shared.ID) ([]string, error) {
	return nil, nil
}

type memUserRepo struct {
	users map[string]*user.User
}

var _ user.Repository = (*memUserRepo)(nil)

func (r *memUserRepo) GetByID(_ context.Context, id shared.ID) (*user.User, error) {
	u, ok := r.users[id.String()]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

type noopEnqueuer struct{}

func (noopEnqueuer) EnqueueInvitationDispatch(context.Context, shared.ID) error { return nil }

type apiFixture struct {
	router      *chi.Mux
	tokens      *jwt.Manager
	memberships *memMembershipRepo
	service     *app.MembershipService
	org         *organization.Organization
	ownerID     shared.ID
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	ownerID := shared.NewID()
	org := &organization.Organization{ID: shared.NewID(), Name: "Velvet Room", OwnerID: ownerID}

	memberships := &memMembershipRepo{memberships: make(map[string]*membership.Membership)}
	orgs := &memOrganizationRepo{org: org, ownerEmail: "owner@venue.com"}
	users := &memUserRepo{users: make(map[string]*user.User)}

	log := logger.NewNop()
	service := app.NewMembershipService(memberships, orgs, users, noopEnqueuer{}, log)
	gate := app.NewAuthorizationGate(memberships, orgs, app.DefaultGatePolicy(), log)
	tokens := jwt.NewManager(strings.Repeat("s", 32), "test")

	h := NewMembershipHandler(service, gate, log)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(tokens))
		r.Route("/memberships", func(r chi.Router) {
			r.Get("/", h.List)
			r.Post("/", h.Create)
			r.Get("/{id}", h.Get)
			r.Patch("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
		r.Post("/invitations/{token}/accept", h.ClaimInvitation)
	})

	return &apiFixture{
		router:      r,
		tokens:      tokens,
		memberships: memberships,
		service:     service,
		org:         org,
		ownerID:     ownerID,
	}
}

func (f *apiFixture) request(t *testing.T, method, path string, actorID *shared.ID, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if actorID != nil {
		token, err := f.tokens.Generate(actorID.String(), "actor@example.com", time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeErrors(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var payload struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Errors
}

func TestMembershipEndpoints(t *testing.T) {
	t.Run("requires authentication", func(t *testing.T) {
		f := newAPIFixture(t)
		rec := f.request(t, http.MethodGet, "/api/v1/memberships", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("owner creates a membership", func(t *testing.T) {
		f := newAPIFixture(t)
		rec := f.request(t, http.MethodPost, "/api/v1/memberships", &f.ownerID, map[string]any{
			"organization_id": f.org.ID.String(),
			"email":           "Staff@Example.com",
			"role_name":       "door",
			"permissions":     map[string]bool{"check_in": true},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp MembershipResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "staff@example.com", resp.Email)
		assert.Equal(t, "pending", resp.State)
		assert.True(t, resp.CheckInOnly)
		assert.True(t, resp.Permissions.CheckIn)
	})

	t.Run("validation failures render the errors envelope", func(t *testing.T) {
		f := newAPIFixture(t)
		rec := f.request(t, http.MethodPost, "/api/v1/memberships", &f.ownerID, map[string]any{
			"organization_id": f.org.ID.String(),
			"email":           "not-an-email",
		})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, map[string]string{"email": "must be formatted like an email"}, decodeErrors(t, rec))
	})

	t.Run("stranger cannot create", func(t *testing.T) {
		f := newAPIFixture(t)
		strangerID := shared.NewID()
		rec := f.request(t, http.MethodPost, "/api/v1/memberships", &strangerID, map[string]any{
			"organization_id": f.org.ID.String(),
			"email":           "staff@example.com",
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown membership is 404", func(t *testing.T) {
		f := newAPIFixture(t)
		rec := f.request(t, http.MethodGet, "/api/v1/memberships/"+shared.NewID().String(), &f.ownerID, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("member reads own membership, stranger gets 403", func(t *testing.T) {
		f := newAPIFixture(t)
		memberID := shared.NewID()

		m, err := membership.New(f.org.ID, "member@example.com")
		require.NoError(t, err)
		m.UserID = &memberID
		require.NoError(t, f.memberships.Create(context.Background(), m))

		rec := f.request(t, http.MethodGet, "/api/v1/memberships/"+m.ID.String(), &memberID, nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		strangerID := shared.NewID()
		rec = f.request(t, http.MethodGet, "/api/v1/memberships/"+m.ID.String(), &strangerID, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("owner updates and deletes", func(t *testing.T) {
		f := newAPIFixture(t)
		m, err := membership.New(f.org.ID, "staff@example.com")
		require.NoError(t, err)
		require.NoError(t, f.memberships.Create(context.Background(), m))

		rec := f.request(t, http.MethodPatch, "/api/v1/memberships/"+m.ID.String(), &f.ownerID, map[string]any{
			"role_name": "manager",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp MembershipResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "manager", resp.RoleName)

		rec = f.request(t, http.MethodDelete, "/api/v1/memberships/"+m.ID.String(), &f.ownerID, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = f.request(t, http.MethodGet, "/api/v1/memberships/"+m.ID.String(), &f.ownerID, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("list organization memberships requires management", func(t *testing.T) {
		f := newAPIFixture(t)
		m, err := membership.New(f.org.ID, "staff@example.com")
		require.NoError(t, err)
		require.NoError(t, f.memberships.Create(context.Background(), m))

		rec := f.request(t, http.MethodGet, "/api/v1/memberships?organization_id="+f.org.ID.String(), &f.ownerID, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var payload struct {
			Data []MembershipResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		assert.Len(t, payload.Data, 1)

		strangerID := shared.NewID()
		rec = f.request(t, http.MethodGet, "/api/v1/memberships?organization_id="+f.org.ID.String(), &strangerID, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("claim invitation activates the membership", func(t *testing.T) {
		f := newAPIFixture(t)
		m, err := membership.New(f.org.ID, "invitee@example.com")
		require.NoError(t, err)
		require.NoError(t, f.memberships.Create(context.Background(), m))

		claimerID := shared.NewID()
		rec := f.request(t, http.MethodPost, "/api/v1/invitations/"+m.Token+"/accept", &claimerID, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp MembershipResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "active", resp.State)
		require.NotNil(t, resp.UserID)
		assert.Equal(t, claimerID.String(), *resp.UserID)
	})
}
