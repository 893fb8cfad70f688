package acl

// MethodResource is an exact-match resource: it covers another resource
// only when application and name match and the method either matches or is
// the "*" wildcard.
type MethodResource struct {
	Base
}

// MethodWildcard covers every method of a named resource.
const MethodWildcard = "*"

// NewMethodResource creates an exact-match resource.
func NewMethodResource(app, name, method string) *MethodResource {
	return &MethodResource{Base: NewBase(app, name, method)}
}

// Implies reports whether this resource covers res.
func (m *MethodResource) Implies(res Resource) bool {
	if res == nil || m.Application() != res.Application() || m.Name() != res.Name() {
		return false
	}
	return m.Method() == MethodWildcard || m.Method() == res.Method()
}

// Equal reports value equality with another MethodResource. Resources of
// any other concrete type are never equal.
func (m *MethodResource) Equal(res Resource) bool {
	other, ok := res.(*MethodResource)
	return ok && m.SameIdentity(other)
}
