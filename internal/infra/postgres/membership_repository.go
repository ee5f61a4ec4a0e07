package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/stagepass/api/pkg/domain/membership"
	"github.com/stagepass/api/pkg/domain/shared"
)

// MembershipRepository is the PostgreSQL implementation of
// membership.Repository. Every query excludes soft-deleted rows.
type MembershipRepository struct {
	db *DB
}

// NewMembershipRepository creates a new MembershipRepository.
func NewMembershipRepository(db *DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

var _ membership.Repository = (*MembershipRepository)(nil)

const membershipColumns = `
	id, organization_id, user_id, email, token, state, activated_at,
	all_listings, listing_ids, role_name,
	admin, edit, manage, design, promote, check_in, guests_report,
	creatable, receives_emails,
	created_at, updated_at, deleted_at
`

// Create inserts a new membership.
func (r *MembershipRepository) Create(ctx context.Context, m *membership.Membership) error {
	query := `
		INSERT INTO memberships (
			id, organization_id, user_id, email, token, state, activated_at,
			all_listings, listing_ids, role_name,
			admin, edit, manage, design, promote, check_in, guests_report,
			creatable, receives_emails,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17,
			$18, $19,
			$20, $21
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.OrganizationID, userIDValue(m), m.Email, m.Token, m.State.String(), m.ActivatedAt,
		m.AllListings, pq.Array(m.ListingIDs), m.RoleName,
		m.Permissions.Admin, m.Permissions.Edit, m.Permissions.Manage,
		m.Permissions.Design, m.Permissions.Promote, m.Permissions.CheckIn,
		m.Permissions.GuestsReport, m.Permissions.Creatable, m.Permissions.ReceivesEmails,
		m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: active membership already exists", shared.ErrConflict)
		}
		return fmt.Errorf("create membership: %w", err)
	}
	return nil
}

// GetByID retrieves a membership by id.
func (r *MembershipRepository) GetByID(ctx context.Context, id shared.ID) (*membership.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE id = $1 AND deleted_at IS NULL`
	return r.scanMembership(r.db.QueryRowContext(ctx, query, id))
}

// GetByToken retrieves a membership by its invite token.
func (r *MembershipRepository) GetByToken(ctx context.Context, token string) (*membership.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE token = $1 AND deleted_at IS NULL`
	return r.scanMembership(r.db.QueryRowContext(ctx, query, token))
}

// Update persists membership changes.
func (r *MembershipRepository) Update(ctx context.Context, m *membership.Membership) error {
	query := `
		UPDATE memberships SET
			user_id = $2, email = $3, state = $4, activated_at = $5,
			all_listings = $6, listing_ids = $7, role_name = $8,
			admin = $9, edit = $10, manage = $11, design = $12,
			promote = $13, check_in = $14, guests_report = $15,
			creatable = $16, receives_emails = $17,
			updated_at = $18
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		m.ID, userIDValue(m), m.Email, m.State.String(), m.ActivatedAt,
		m.AllListings, pq.Array(m.ListingIDs), m.RoleName,
		m.Permissions.Admin, m.Permissions.Edit, m.Permissions.Manage,
		m.Permissions.Design, m.Permissions.Promote, m.Permissions.CheckIn,
		m.Permissions.GuestsReport, m.Permissions.Creatable, m.Permissions.ReceivesEmails,
		m.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: active membership already exists", shared.ErrConflict)
		}
		return fmt.Errorf("update membership: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update membership: %w", err)
	}
	if rows == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SoftDelete stamps deleted_at on a membership.
func (r *MembershipRepository) SoftDelete(ctx context.Context, id shared.ID) error {
	query := `
		UPDATE memberships
		SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	if rows == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListByUser returns a user's memberships across organizations.
func (r *MembershipRepository) ListByUser(ctx context.Context, userID shared.ID) ([]*membership.Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM memberships
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`
	return r.queryMemberships(ctx, query, userID)
}

// ListByOrganization returns an organization's memberships.
func (r *MembershipRepository) ListByOrganization(ctx context.Context, organizationID shared.ID) ([]*membership.Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM memberships
		WHERE organization_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`
	return r.queryMemberships(ctx, query, organizationID)
}

// CountByOrganization counts non-deleted memberships.
func (r *MembershipRepository) CountByOrganization(ctx context.Context, organizationID shared.ID) (int, error) {
	query := `SELECT COUNT(*) FROM memberships WHERE organization_id = $1 AND deleted_at IS NULL`

	var count int
	if err := r.db.QueryRowContext(ctx, query, organizationID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count memberships: %w", err)
	}
	return count, nil
}

// ExistsByOrganizationAndEmail reports whether a non-deleted
// membership with the email exists in the organization.
func (r *MembershipRepository) ExistsByOrganizationAndEmail(ctx context.Context, organizationID shared.ID, email string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM memberships
			WHERE organization_id = $1 AND email = $2 AND deleted_at IS NULL
		)
	`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, organizationID, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("check membership email: %w", err)
	}
	return exists, nil
}

// GetActiveByUserAndOrganization returns the active membership for a
// (user, organization) pair.
func (r *MembershipRepository) GetActiveByUserAndOrganization(ctx context.Context, userID, organizationID shared.ID) (*membership.Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM memberships
		WHERE user_id = $1 AND organization_id = $2
			AND state = 'active' AND deleted_at IS NULL
	`
	return r.scanMembership(r.db.QueryRowContext(ctx, query, userID, organizationID))
}

func (r *MembershipRepository) queryMemberships(ctx context.Context, query string, args ...any) ([]*membership.Membership, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	memberships := make([]*membership.Membership, 0)
	for rows.Next() {
		m, err := r.scanMembership(rows)
		if err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	return memberships, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *MembershipRepository) scanMembership(row rowScanner) (*membership.Membership, error) {
	var (
		m           membership.Membership
		userID      sql.NullString
		state       string
		activatedAt sql.NullTime
		listingIDs  pq.StringArray
		deletedAt   sql.NullTime
	)

	err := row.Scan(
		&m.ID, &m.OrganizationID, &userID, &m.Email, &m.Token, &state, &activatedAt,
		&m.AllListings, &listingIDs, &m.RoleName,
		&m.Permissions.Admin, &m.Permissions.Edit, &m.Permissions.Manage,
		&m.Permissions.Design, &m.Permissions.Promote, &m.Permissions.CheckIn,
		&m.Permissions.GuestsReport, &m.Permissions.Creatable, &m.Permissions.ReceivesEmails,
		&m.CreatedAt, &m.UpdatedAt, &deletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("scan membership: %w", err)
	}

	if userID.Valid {
		id, err := shared.IDFromString(userID.String)
		if err != nil {
			return nil, fmt.Errorf("scan membership user id: %w", err)
		}
		m.UserID = &id
	}
	m.State = membership.State(state)
	if activatedAt.Valid {
		t := activatedAt.Time
		m.ActivatedAt = &t
	}
	m.ListingIDs = []string(listingIDs)
	if deletedAt.Valid {
		t := deletedAt.Time
		m.DeletedAt = &t
	}

	return &m, nil
}

func userIDValue(m *membership.Membership) any {
	if m.UserID == nil {
		return nil
	}
	return *m.UserID
}
