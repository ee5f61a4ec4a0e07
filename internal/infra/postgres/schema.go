package postgres

import (
	"context"
	"fmt"
)

// schema is the bootstrap DDL. Statements are idempotent so the
// server can apply them on every start.
//
// memberships carries a partial unique index over
// (user_id, organization_id) restricted to live active rows: the
// activation guard checks in application code first, and this index
// makes concurrent double activation impossible at the storage level.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         UUID PRIMARY KEY,
	email      TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower
	ON users (lower(email));

CREATE TABLE IF NOT EXISTS organizations (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL,
	owner_id   UUID NOT NULL REFERENCES users (id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS listings (
	id              TEXT PRIMARY KEY,
	organization_id UUID NOT NULL REFERENCES organizations (id),
	deleted_at      TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_listings_organization
	ON listings (organization_id);

CREATE TABLE IF NOT EXISTS memberships (
	id              UUID PRIMARY KEY,
	organization_id UUID NOT NULL REFERENCES organizations (id),
	user_id         UUID REFERENCES users (id),
	email           TEXT NOT NULL,
	token           TEXT NOT NULL,
	state           TEXT NOT NULL DEFAULT 'pending',
	activated_at    TIMESTAMPTZ,
	all_listings    BOOLEAN NOT NULL DEFAULT FALSE,
	listing_ids     TEXT[] NOT NULL DEFAULT '{}',
	role_name       TEXT NOT NULL DEFAULT '',
	admin           BOOLEAN NOT NULL DEFAULT FALSE,
	edit            BOOLEAN NOT NULL DEFAULT FALSE,
	manage          BOOLEAN NOT NULL DEFAULT FALSE,
	design          BOOLEAN NOT NULL DEFAULT FALSE,
	promote         BOOLEAN NOT NULL DEFAULT FALSE,
	check_in        BOOLEAN NOT NULL DEFAULT FALSE,
	guests_report   BOOLEAN NOT NULL DEFAULT FALSE,
	creatable       BOOLEAN NOT NULL DEFAULT FALSE,
	receives_emails BOOLEAN NOT NULL DEFAULT FALSE,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at      TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_memberships_deleted_user_org
	ON memberships (deleted_at, user_id, organization_id);

CREATE INDEX IF NOT EXISTS idx_memberships_deleted_org
	ON memberships (deleted_at, organization_id);

CREATE INDEX IF NOT EXISTS idx_memberships_org_user
	ON memberships (organization_id, user_id);

CREATE INDEX IF NOT EXISTS idx_memberships_token
	ON memberships (token);

CREATE UNIQUE INDEX IF NOT EXISTS idx_memberships_active_user_org
	ON memberships (user_id, organization_id)
	WHERE state = 'active' AND deleted_at IS NULL;
`

// Migrate applies the schema.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
