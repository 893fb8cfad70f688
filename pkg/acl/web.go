package acl

import "strings"

// WebResource is a resource whose name is a URL pattern following the
// servlet mapping rules: an exact path, a path prefix ("/api/*"), an
// extension pattern ("*.jsp"), or the default pattern ("/"). An empty
// method covers every method.
type WebResource struct {
	Base
}

// NewWebResource creates a web resource for the given application, URL
// pattern, and method.
func NewWebResource(app, pattern, method string) *WebResource {
	return &WebResource{Base: NewBase(app, pattern, method)}
}

// Implies reports whether this resource's pattern and method cover res.
// The application must match exactly; the pattern is matched against
// res.Name() as a request path.
func (w *WebResource) Implies(res Resource) bool {
	if res == nil || w.Application() != res.Application() {
		return false
	}
	if w.Method() != "" && w.Method() != res.Method() {
		return false
	}
	return patternMatches(w.Name(), res.Name())
}

// Equal reports value equality with another WebResource. Resources of any
// other concrete type are never equal.
func (w *WebResource) Equal(res Resource) bool {
	other, ok := res.(*WebResource)
	return ok && w.SameIdentity(other)
}

// patternMatches applies the servlet URL pattern rules.
func patternMatches(pattern, path string) bool {
	switch {
	case pattern == path:
		return true
	case pattern == "/":
		// Default pattern covers everything.
		return true
	case strings.HasSuffix(pattern, "/*"):
		prefix := strings.TrimSuffix(pattern, "/*")
		if prefix == "" {
			return true
		}
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	case strings.HasPrefix(pattern, "*."):
		return strings.HasSuffix(path, pattern[1:])
	default:
		return false
	}
}
