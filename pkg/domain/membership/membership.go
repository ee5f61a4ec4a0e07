// Package membership defines the membership entity, its permission
// model and the pending/active lifecycle.
package membership

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/stagepass/api/pkg/domain/shared"
)

// emailPattern matches a plain local@domain address. Same shape the
// invite form has always accepted; intentionally loose on the local
// part.
var emailPattern = regexp.MustCompile(`^(?i)[^@\s]+@(?:[-a-z0-9]+\.)+[a-z]{2,}$`)

// Membership grants a user access to an organization with a specific
// capability set. The email exists to do the initial association of a
// membership and a user, or to invite a new user; it is not a
// substitute for the linked user's account email.
type Membership struct {
	ID             shared.ID
	OrganizationID shared.ID
	UserID         *shared.ID
	Email          string
	Token          string
	State          State
	ActivatedAt    *time.Time
	AllListings    bool
	ListingIDs     []string
	RoleName       string
	Permissions    Permissions
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

// New creates a pending membership with a fresh invite token. The
// email is normalized before any validation runs.
func New(organizationID shared.ID, email string) (*Membership, error) {
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	now := time.Now().UTC()
	return &Membership{
		ID:             shared.NewID(),
		OrganizationID: organizationID,
		Email:          NormalizeEmail(email),
		Token:          token,
		State:          StatePending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmailFormat reports whether the (already normalized) address
// looks like an email.
func ValidEmailFormat(email string) bool {
	return emailPattern.MatchString(email)
}

// IsDeleted reports whether the membership has been soft-deleted.
func (m *Membership) IsDeleted() bool {
	return m.DeletedAt != nil
}

// IsActive reports whether the membership has been activated.
func (m *Membership) IsActive() bool {
	return m.State == StateActive
}

// CheckInOnly reports whether the membership grants door check-in and
// nothing else. Used by clients to render the scanner-only UI.
func (m *Membership) CheckInOnly() bool {
	p := m.Permissions
	return p.CheckIn && !p.Edit && !p.Manage && !p.Design && !p.Promote
}

// ValidateCreatable appends a creatable error unless every field the
// model requires is granted. Runs on both create and update.
func (m *Membership) ValidateCreatable(model *Model, errs FieldErrors) {
	if !m.Permissions.Creatable {
		return
	}
	for _, f := range model.RequiredForCreatable() {
		if !m.Permissions.Get(f) {
			errs.Add("creatable", "All event permissions must be allowed")
			return
		}
	}
}

// ValidateEmail appends presence and format errors for the membership
// email. Runs on both create and update.
func (m *Membership) ValidateEmail(errs FieldErrors) {
	if m.Email == "" {
		errs.Add("email", "can't be blank")
		return
	}
	if !ValidEmailFormat(m.Email) {
		errs.Add("email", "must be formatted like an email")
	}
}

// SoftDelete marks the membership deleted. Deleted memberships are
// excluded from uniqueness, capacity and listing computations.
func (m *Membership) SoftDelete(now time.Time) {
	if m.DeletedAt == nil {
		t := now.UTC()
		m.DeletedAt = &t
		m.UpdatedAt = t
	}
}

// Touch bumps UpdatedAt after a mutation.
func (m *Membership) Touch(now time.Time) {
	m.UpdatedAt = now.UTC()
}

func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
