package stamper

import (
	"github.com/google/uuid"
)

// Scope is one frame of variable bindings with a link to its enclosing
// frame. Lookups walk outward, so an inner binding shadows an outer one
// with the same name.
type Scope struct {
	parent *Scope
	vars   map[string]interface{}
}

// NewScope creates a scope enclosed by parent. A nil parent makes a root
// scope.
func NewScope(parent *Scope) *Scope {
	return &Scope{
		parent: parent,
		vars:   make(map[string]interface{}),
	}
}

// Child creates a new scope enclosed by this one.
func (s *Scope) Child() *Scope {
	return NewScope(s)
}

// Parent returns the enclosing scope, or nil for a root scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Define binds a name in this scope, shadowing any outer binding.
func (s *Scope) Define(name string, value interface{}) {
	s.vars[name] = value
}

// Lookup resolves a name against this scope and its ancestors, innermost
// first. The second result is false when no scope in the chain binds the
// name.
func (s *Scope) Lookup(name string) (interface{}, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if value, ok := cur.vars[name]; ok {
			return value, true
		}
	}
	return nil, false
}

// ContextRoot owns the root scope of a stamping session and the scope
// branches reachable by context key. One ContextRoot exists per session;
// it is not safe for concurrent use.
type ContextRoot struct {
	root     *Scope
	branches map[string]*Scope
}

// NewContextRoot builds the session's root scope from the caller's
// top-level data.
func NewContextRoot(globals map[string]interface{}) *ContextRoot {
	root := NewScope(nil)
	for name, value := range globals {
		root.Define(name, value)
	}
	return &ContextRoot{
		root:     root,
		branches: make(map[string]*Scope),
	}
}

// Root returns the session's root scope.
func (r *ContextRoot) Root() *Scope {
	return r.root
}

// Bind registers a scope branch under a fresh key and returns the key.
// Annotations inside repeated or otherwise rescoped fragments carry such
// a key so their evaluation sees the branch instead of the root.
func (r *ContextRoot) Bind(scope *Scope) string {
	key := uuid.NewString()
	r.branches[key] = scope
	return key
}

// Find returns the scope branch registered under key. An empty or unknown
// key yields the root scope: an annotation without a key legally sees the
// top-level data.
func (r *ContextRoot) Find(key string) *Scope {
	if key == "" {
		return r.root
	}
	if scope, ok := r.branches[key]; ok {
		return scope
	}
	return r.root
}
