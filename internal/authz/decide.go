package authz

import "github.com/backstage-events/backstage/internal/registry"

// Decision is the outcome of evaluating an update against the permission
// model. Reason is set only on denial.
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow is the positive decision.
var Allow = Decision{Allowed: true}

// Deny constructs a negative decision.
func Deny(reason string) Decision {
	return Decision{Reason: reason}
}

// Decide evaluates the update permission table. Rules are ordered, first
// match wins:
//
//  1. admin capability allows every collection.
//  2. edit capability allows every collection except team-members and
//     departments.
//  3. read capability allows tasks whose department matches the principal's.
//  4. everything else is denied.
//
// The caller resolves token-level failures (missing or invalid token) before
// reaching this function.
func Decide(caps CapabilitySet, kind registry.Kind, resourceDepartment, principalDepartment string) Decision {
	if caps.Has(CapAdmin) {
		return Allow
	}
	if caps.Has(CapEdit) {
		if kind == registry.KindTeamMembers || kind == registry.KindDepartments {
			return Deny("permission denied")
		}
		return Allow
	}
	if caps.Has(CapRead) && kind == registry.KindTasks &&
		resourceDepartment != "" && resourceDepartment == principalDepartment {
		return Allow
	}
	return Deny("permission denied")
}
