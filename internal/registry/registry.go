// Package registry defines the closed set of entity kinds served by the API.
// Every collection addressable over HTTP maps to exactly one Kind; an unknown
// path segment is a client error, never a fallback.
package registry

// Kind identifies one supported entity collection.
type Kind int

const (
	KindEventTypes Kind = iota
	KindTasks
	KindMaterials
	KindSuppliers
	KindDepartments
	KindEvents
	KindEventTasks
	KindEventMaterials
	KindEventSuppliers
	KindEventUTMs
	KindTaskCategories
	KindMaterialCategories
	KindSupplierCategories
	KindDefaultTasks
	KindDefaultMaterials
	KindTeamMembers
	KindInfluencers
	KindPromoters
	KindEventInfluencers
	KindEventPromoters
)

// Descriptor carries the static metadata of a Kind.
type Descriptor struct {
	Kind       Kind
	Segment    string
	Aliases    []string
	Collection string

	// Credential marks collections holding password material; their
	// password field is hashed on write and stripped on read.
	Credential bool

	// DepartmentScoped marks collections whose update permission may be
	// granted per department. DepartmentField names the reference field.
	DepartmentScoped bool
	DepartmentField  string

	// Required lists fields that must be present and non-empty on create.
	Required []string
}

var descriptors = []Descriptor{
	{Kind: KindEventTypes, Segment: "event-types", Collection: "event-types", Required: []string{"name"}},
	{Kind: KindTasks, Segment: "tasks", Collection: "tasks", DepartmentScoped: true, DepartmentField: "department", Required: []string{"name"}},
	{Kind: KindMaterials, Segment: "materials", Collection: "materials", Required: []string{"name"}},
	{Kind: KindSuppliers, Segment: "suppliers", Collection: "suppliers", Required: []string{"name"}},
	{Kind: KindDepartments, Segment: "departments", Collection: "departments", Required: []string{"name"}},
	{Kind: KindEvents, Segment: "events", Collection: "events", Required: []string{"name"}},
	{Kind: KindEventTasks, Segment: "event-tasks", Collection: "event-tasks", DepartmentScoped: true, DepartmentField: "department", Required: []string{"event"}},
	{Kind: KindEventMaterials, Segment: "event-materials", Collection: "event-materials", Required: []string{"event", "material"}},
	{Kind: KindEventSuppliers, Segment: "event-suppliers", Collection: "event-suppliers", Required: []string{"event", "supplier"}},
	{Kind: KindEventUTMs, Segment: "event-utms", Collection: "event-utms", Required: []string{"event"}},
	{Kind: KindTaskCategories, Segment: "task-categories", Collection: "task-categories", Required: []string{"name"}},
	{Kind: KindMaterialCategories, Segment: "material-categories", Collection: "material-categories", Required: []string{"name"}},
	{Kind: KindSupplierCategories, Segment: "supplier-categories", Collection: "supplier-categories", Required: []string{"name"}},
	{Kind: KindDefaultTasks, Segment: "default-tasks", Collection: "default-tasks", Required: []string{"name"}},
	{Kind: KindDefaultMaterials, Segment: "default-materials", Collection: "default-materials", Required: []string{"name"}},
	{Kind: KindTeamMembers, Segment: "team-members", Aliases: []string{"teammembers"}, Collection: "team-members", Credential: true, Required: []string{"name", "email"}},
	{Kind: KindInfluencers, Segment: "influencers", Collection: "influencers", Required: []string{"name"}},
	{Kind: KindPromoters, Segment: "promoters", Collection: "promoters", Required: []string{"name"}},
	{Kind: KindEventInfluencers, Segment: "event-influencers", Collection: "event-influencers", Required: []string{"event", "influencer"}},
	{Kind: KindEventPromoters, Segment: "event-promoters", Collection: "event-promoters", Required: []string{"event", "promoter"}},
}

var bySegment = func() map[string]Kind {
	m := make(map[string]Kind, len(descriptors))
	for _, d := range descriptors {
		m[d.Segment] = d.Kind
		for _, alias := range d.Aliases {
			m[alias] = d.Kind
		}
	}
	return m
}()

// Resolve maps a URL path segment to its Kind. The second return value is
// false for unknown segments.
func Resolve(segment string) (Kind, bool) {
	k, ok := bySegment[segment]
	return k, ok
}

// Descriptor returns the static metadata for the kind.
func (k Kind) Descriptor() Descriptor {
	return descriptors[k]
}

// Collection returns the storage collection name.
func (k Kind) Collection() string {
	return descriptors[k].Collection
}

// String returns the canonical path segment.
func (k Kind) String() string {
	return descriptors[k].Segment
}

// Kinds returns every supported kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(descriptors))
	for i, d := range descriptors {
		out[i] = d.Kind
	}
	return out
}
