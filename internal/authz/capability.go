// Package authz holds the role/position permission model for document writes.
package authz

import "strings"

// Capability is one write capability granted by a position tag.
type Capability uint8

const (
	// CapAdmin allows every write unconditionally.
	CapAdmin Capability = 1 << iota
	// CapEdit allows writes outside the restricted collections.
	CapEdit
	// CapRead allows task writes within the principal's own department.
	CapRead
)

// CapabilitySet is a combination of capabilities.
type CapabilitySet uint8

// Has reports whether the set contains the capability.
func (s CapabilitySet) Has(c Capability) bool {
	return s&CapabilitySet(c) != 0
}

// With returns the set with the capability added.
func (s CapabilitySet) With(c Capability) CapabilitySet {
	return s | CapabilitySet(c)
}

// ParsePositions converts position tags from a token into a CapabilitySet.
// Unknown tags are ignored.
func ParsePositions(tags []string) CapabilitySet {
	var set CapabilitySet
	for _, tag := range tags {
		switch strings.TrimSpace(strings.ToLower(tag)) {
		case "admin":
			set = set.With(CapAdmin)
		case "edit":
			set = set.With(CapEdit)
		case "read":
			set = set.With(CapRead)
		}
	}
	return set
}
