package acl

import (
	"context"
	"sync"
)

// Checker is the access control decision point: it decides whether a
// subject may access a requested resource.
type Checker interface {
	// Check reports whether subject is allowed to access res.
	Check(ctx context.Context, subject string, res Resource) (bool, error)
}

// SubjectWildcard grants a resource to every subject.
const SubjectWildcard = "*"

// PermissionSet is a Checker backed by an in-memory set of granted
// resources per subject. A request is allowed when any granted resource
// implies the requested one. Safe for concurrent use.
type PermissionSet struct {
	mu     sync.RWMutex
	grants map[string][]Resource
}

// NewPermissionSet creates an empty permission set.
func NewPermissionSet() *PermissionSet {
	return &PermissionSet{grants: make(map[string][]Resource)}
}

// Grant adds a resource to the subject's granted set. Use SubjectWildcard
// to grant the resource to every subject.
func (p *PermissionSet) Grant(subject string, res Resource) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.grants[subject] = append(p.grants[subject], res)
}

// Check reports whether any resource granted to subject (or to the
// wildcard subject) implies res.
func (p *PermissionSet) Check(_ context.Context, subject string, res Resource) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, granted := range p.grants[subject] {
		if granted.Implies(res) {
			return true, nil
		}
	}
	if subject != SubjectWildcard {
		for _, granted := range p.grants[SubjectWildcard] {
			if granted.Implies(res) {
				return true, nil
			}
		}
	}
	return false, nil
}
