package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stagepass/api/internal/app"
	"github.com/stagepass/api/internal/infra/http/middleware"
	"github.com/stagepass/api/pkg/apierror"
	"github.com/stagepass/api/pkg/domain/membership"
	"github.com/stagepass/api/pkg/domain/shared"
	"github.com/stagepass/api/pkg/logger"
)

// MembershipHandler handles membership endpoints.
type MembershipHandler struct {
	memberships *app.MembershipService
	gate        *app.AuthorizationGate
	logger      *logger.Logger
}

// NewMembershipHandler creates a new MembershipHandler.
func NewMembershipHandler(memberships *app.MembershipService, gate *app.AuthorizationGate, log *logger.Logger) *MembershipHandler {
	return &MembershipHandler{
		memberships: memberships,
		gate:        gate,
		logger:      log.With("handler", "membership"),
	}
}

// MembershipResponse is the wire representation of a membership. The
// invite token never appears here; it only travels inside the
// invitation email.
type MembershipResponse struct {
	ID             string                 `json:"id"`
	OrganizationID string                 `json:"organization_id"`
	UserID         *string                `json:"user_id,omitempty"`
	Email          string                 `json:"email"`
	State          string                 `json:"state"`
	ActivatedAt    *time.Time             `json:"activated_at,omitempty"`
	AllListings    bool                   `json:"all_listings"`
	ListingIDs     []string               `json:"listing_ids"`
	RoleName       string                 `json:"role_name,omitempty"`
	Permissions    membership.Permissions `json:"permissions"`
	CheckInOnly    bool                   `json:"check_in_only"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

func toMembershipResponse(m *membership.Membership) MembershipResponse {
	resp := MembershipResponse{
		ID:             m.ID.String(),
		OrganizationID: m.OrganizationID.String(),
		Email:          m.Email,
		State:          m.State.String(),
		ActivatedAt:    m.ActivatedAt,
		AllListings:    m.AllListings,
		ListingIDs:     m.ListingIDs,
		RoleName:       m.RoleName,
		Permissions:    m.Permissions,
		CheckInOnly:    m.CheckInOnly(),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if resp.ListingIDs == nil {
		resp.ListingIDs = []string{}
	}
	if m.UserID != nil {
		s := m.UserID.String()
		resp.UserID = &s
	}
	return resp
}

// List returns the actor's memberships, or an organization's when
// organization_id is given and the actor may manage it.
func (h *MembershipHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		apierror.Unauthorized("").WriteJSON(w)
		return
	}

	var (
		memberships []*membership.Membership
		err         error
	)

	if orgParam := r.URL.Query().Get("organization_id"); orgParam != "" {
		orgID, parseErr := shared.IDFromString(orgParam)
		if parseErr != nil {
			writeError(w, h.logger, apierror.BadRequest("Invalid organization_id"))
			return
		}
		if err := h.gate.AuthorizeOrganization(r.Context(), actor.ID, orgID); err != nil {
			writeError(w, h.logger, err)
			return
		}
		memberships, err = h.memberships.ListForOrganization(r.Context(), orgID)
	} else {
		memberships, err = h.memberships.ListForUser(r.Context(), actor.ID)
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	data := make([]MembershipResponse, 0, len(memberships))
	for _, m := range memberships {
		data = append(data, toMembershipResponse(m))
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": data})
}

// Create creates a membership and enqueues its invitation dispatch.
func (h *MembershipHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		apierror.Unauthorized("").WriteJSON(w)
		return
	}

	var input app.CreateMembershipInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, h.logger, err)
		return
	}

	orgID, err := shared.IDFromString(input.OrganizationID)
	if err != nil {
		apierror.ValidationFailed(map[string]string{"organization_id": "is invalid"}).WriteJSON(w)
		return
	}
	if err := h.gate.AuthorizeOrganization(r.Context(), actor.ID, orgID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	m, err := h.memberships.Create(r.Context(), input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, toMembershipResponse(m))
}

// Get returns one membership.
func (h *MembershipHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, m, ok := h.loadTarget(w, r)
	if !ok {
		return
	}

	if err := h.gate.Authorize(r.Context(), actor.ID, app.ActionRead, m); err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toMembershipResponse(m))
}

// Update applies changes to a membership.
func (h *MembershipHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, m, ok := h.loadTarget(w, r)
	if !ok {
		return
	}

	if err := h.gate.Authorize(r.Context(), actor.ID, app.ActionManage, m); err != nil {
		writeError(w, h.logger, err)
		return
	}

	var input app.UpdateMembershipInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, h.logger, err)
		return
	}

	updated, err := h.memberships.Update(r.Context(), m.ID, input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toMembershipResponse(updated))
}

// Delete soft-deletes a membership.
func (h *MembershipHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, m, ok := h.loadTarget(w, r)
	if !ok {
		return
	}

	if err := h.gate.Authorize(r.Context(), actor.ID, app.ActionDelete, m); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.memberships.Destroy(r.Context(), m.ID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClaimInvitation links the membership behind an invite token to the
// acting user and activates it when allowed.
func (h *MembershipHandler) ClaimInvitation(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		apierror.Unauthorized("").WriteJSON(w)
		return
	}

	token := chi.URLParam(r, "token")
	m, err := h.memberships.ClaimInvitation(r.Context(), token, actor.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toMembershipResponse(m))
}

// loadTarget resolves the {id} route param to a membership. A missing
// or unknown id renders 404 before any authorization runs.
func (h *MembershipHandler) loadTarget(w http.ResponseWriter, r *http.Request) (middleware.Actor, *membership.Membership, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		apierror.Unauthorized("").WriteJSON(w)
		return middleware.Actor{}, nil, false
	}

	id, err := shared.IDFromString(chi.URLParam(r, "id"))
	if err != nil {
		apierror.NotFound().WriteJSON(w)
		return actor, nil, false
	}

	m, err := h.memberships.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return actor, nil, false
	}
	return actor, m, true
}
