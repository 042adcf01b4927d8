// Package authz computes a user's effective capability set and plans
// permission mutations. Everything here is pure: the repository layer
// loads the id/name sets, asks this package what should happen, and
// applies the result inside its own transaction.
package authz

import "sort"

// PermissionState holds the three permission sources for a single user,
// each as a permission-id → name index. Precedence on resolution is
// Denial > Grant > RoleDefault.
type PermissionState struct {
	RolePerms map[uint64]string // defaults inherited from the user's role
	Grants    map[uint64]string // direct per-user grants
	Denials   map[uint64]string // explicit per-user denials
}

// EffectiveSet resolves (role ∪ grants) − denials into a sorted,
// duplicate-free list of capability names.
func EffectiveSet(s PermissionState) []string {
	seen := make(map[string]bool, len(s.RolePerms)+len(s.Grants))
	for id, name := range s.RolePerms {
		if _, denied := s.Denials[id]; !denied {
			seen[name] = true
		}
	}
	for id, name := range s.Grants {
		if _, denied := s.Denials[id]; !denied {
			seen[name] = true
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Outcome describes what a planned permission mutation did (or why it
// was a no-op). Handlers translate outcomes into HTTP responses and
// human-readable messages; nothing in the system inspects message
// strings to branch.
type Outcome int

const (
	// OutcomeGranted – a new direct grant row must be created.
	OutcomeGranted Outcome = iota
	// OutcomeDenialLifted – an existing denial row must be removed,
	// restoring role-derived (or previously granted) access.
	OutcomeDenialLifted
	// OutcomeAlreadyHeld – the user already holds the permission via a
	// direct grant; nothing to do.
	OutcomeAlreadyHeld
	// OutcomeGrantDeleted – an existing direct grant row must be removed.
	OutcomeGrantDeleted
	// OutcomeDenied – the permission is role-inherited and cannot be
	// deleted per-user, so a denial row must be created to override it.
	OutcomeDenied
	// OutcomeNotHeld – the user holds the permission neither directly
	// nor via the role; nothing to do.
	OutcomeNotHeld
)

// Applied reports whether the outcome changed state.
func (o Outcome) Applied() bool {
	switch o {
	case OutcomeGranted, OutcomeDenialLifted, OutcomeGrantDeleted, OutcomeDenied:
		return true
	}
	return false
}

func (o Outcome) String() string {
	switch o {
	case OutcomeGranted:
		return "granted"
	case OutcomeDenialLifted:
		return "denial lifted"
	case OutcomeAlreadyHeld:
		return "already held"
	case OutcomeGrantDeleted:
		return "grant deleted"
	case OutcomeDenied:
		return "denied"
	case OutcomeNotHeld:
		return "not held"
	}
	return "unknown"
}

// PlanAdd decides how to give permID to the user described by s.
// A suppressed permission is restored by lifting the denial instead of
// stacking a redundant grant on top of it; only when the permission is
// neither denied nor already granted does a new grant get created.
func PlanAdd(s PermissionState, permID uint64) Outcome {
	if _, denied := s.Denials[permID]; denied {
		return OutcomeDenialLifted
	}
	if _, granted := s.Grants[permID]; granted {
		return OutcomeAlreadyHeld
	}
	return OutcomeGranted
}

// PlanRemove decides how to take permID away from the user described
// by s. Direct grants are deleted; role-inherited permissions cannot be
// deleted per-user, so they are overridden with a denial. A permission
// the user does not hold at all is reported as such, with no change.
func PlanRemove(s PermissionState, permID uint64) Outcome {
	if _, granted := s.Grants[permID]; granted {
		return OutcomeGrantDeleted
	}
	if _, fromRole := s.RolePerms[permID]; fromRole {
		if _, denied := s.Denials[permID]; denied {
			return OutcomeNotHeld // already suppressed, nothing to change
		}
		return OutcomeDenied
	}
	return OutcomeNotHeld
}
