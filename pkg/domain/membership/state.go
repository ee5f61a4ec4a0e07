package membership

import "time"

// State is the lifecycle state of a membership.
type State string

const (
	// StatePending is the initial state: created, possibly invited,
	// not yet granted access.
	StatePending State = "pending"
	// StateActive means the membership is linked to a user and grants
	// access. Terminal; there is no transition back to pending.
	StateActive State = "active"
)

// IsValid reports whether s is a known state.
func (s State) IsValid() bool {
	return s == StatePending || s == StateActive
}

func (s State) String() string {
	return string(s)
}

// Activate applies the pending -> active transition. The guard: the
// membership must be pending, linked to a user, and hasOtherActive
// reflects whether another active membership already exists for the
// same (user, organization) pair. A failed guard is a no-op, not an
// error; callers must not assume activation happened because it was
// invoked. Persisting the new state is the caller's responsibility.
func (m *Membership) Activate(now time.Time, hasOtherActive bool) bool {
	if m.State != StatePending {
		return false
	}
	if m.UserID == nil || m.UserID.IsZero() {
		return false
	}
	if hasOtherActive {
		return false
	}

	t := now.UTC()
	m.State = StateActive
	m.ActivatedAt = &t
	m.UpdatedAt = t
	return true
}
