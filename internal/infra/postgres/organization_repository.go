package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/stagepass/api/pkg/domain/organization"
	"github.com/stagepass/api/pkg/domain/shared"
)

// OrganizationRepository is the PostgreSQL implementation of
// organization.Repository.
type OrganizationRepository struct {
	db *DB
}

// NewOrganizationRepository creates a new OrganizationRepository.
func NewOrganizationRepository(db *DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

var _ organization.Repository = (*OrganizationRepository)(nil)

// GetByID retrieves an organization by id.
func (r *OrganizationRepository) GetByID(ctx context.Context, id shared.ID) (*organization.Organization, error) {
	query := `
		SELECT id, name, owner_id, created_at, updated_at, deleted_at
		FROM organizations
		WHERE id = $1 AND deleted_at IS NULL
	`

	var (
		org       organization.Organization
		deletedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&org.ID, &org.Name, &org.OwnerID, &org.CreatedAt, &org.UpdatedAt, &deletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("get organization: %w", err)
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		org.DeletedAt = &t
	}
	return &org, nil
}

// OwnerEmail returns the account email of the organization owner.
func (r *OrganizationRepository) OwnerEmail(ctx context.Context, id shared.ID) (string, error) {
	query := `
		SELECT u.email
		FROM organizations o
		JOIN users u ON u.id = o.owner_id
		WHERE o.id = $1 AND o.deleted_at IS NULL
	`

	var email string
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", fmt.Errorf("get owner email: %w", err)
	}
	return email, nil
}

// ListingIDs returns the ids of every live listing the organization owns.
func (r *OrganizationRepository) ListingIDs(ctx context.Context, id shared.ID) ([]string, error) {
	query := `SELECT id FROM listings WHERE organization_id = $1 AND deleted_at IS NULL ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var listingID string
		if err := rows.Scan(&listingID); err != nil {
			return nil, fmt.Errorf("scan listing id: %w", err)
		}
		ids = append(ids, listingID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	return ids, nil
}
