// Package acl defines the resource permission model consumed by the access
// control decision point: named, scoped resources with an implies relation.
package acl

// Resource is a named, scoped permission-like object. A resource is
// identified by the application that owns it, a resource name, and a
// method (action/verb). Resources are immutable after construction.
//
// Implies and Equal are independent contracts: Implies is the asymmetric
// "does this resource's scope cover that resource" test used by a Checker,
// while Equal is value equality. Implementations must key Equal on their
// concrete type; two resources of different concrete types are never equal,
// even when their identifying attributes match.
type Resource interface {
	// Application returns the owning application identifier.
	Application() string

	// Name returns the resource identifier.
	Name() string

	// Method returns the action or verb this resource covers.
	Method() string

	// Implies reports whether this resource's scope covers res.
	Implies(res Resource) bool

	// Equal reports whether res is the same resource value, including its
	// concrete type.
	Equal(res Resource) bool

	String() string
}

// Base carries the three identifying attributes shared by every resource
// implementation. It deliberately supplies no Implies or Equal; concrete
// types embedding Base must define both.
type Base struct {
	app    string
	name   string
	method string
}

// NewBase creates the shared identifying attributes of a resource.
func NewBase(app, name, method string) Base {
	return Base{app: app, name: name, method: method}
}

// Application returns the owning application identifier.
func (b Base) Application() string {
	return b.app
}

// Name returns the resource identifier.
func (b Base) Name() string {
	return b.name
}

// Method returns the action or verb.
func (b Base) Method() string {
	return b.method
}

func (b Base) String() string {
	return b.app + ":" + b.name + "." + b.method
}

// SameIdentity reports whether res carries the same identifying triple.
// It says nothing about concrete types; Equal implementations combine it
// with a type assertion.
func (b Base) SameIdentity(res Resource) bool {
	return res != nil &&
		b.app == res.Application() &&
		b.name == res.Name() &&
		b.method == res.Method()
}
