// Package user models the registered account a membership links to.
// Authentication itself is external; this service only resolves users
// by id and email.
package user

import (
	"time"

	"github.com/stagepass/api/pkg/domain/shared"
)

// User is a registered account.
type User struct {
	ID        shared.ID
	Email     string
	Name      string
	CreatedAt time.Time
}
