package hop

import "fmt"

// Scope is the variable table of one context. The runtime only ever uses a
// single flat scope, but the engine talks to it through this interface so
// call frames with their own bindings can be layered on later.
type Scope interface {
	// Lookup returns the variable bound to name.
	Lookup(name string) (Variable, bool)
	// Exists reports whether name is bound.
	Exists(name string) bool
	// Declare binds a new variable; redeclaring a bound name fails.
	Declare(v Variable) error
	// Assign replaces the value of a bound variable of the same kind.
	Assign(name string, val Value) error
	// Delete unbinds name.
	Delete(name string) error
	// Bind declares or replaces a binding, kind included. It reports whether
	// an existing binding was replaced. Used by module merge.
	Bind(v Variable) bool
	// Variables returns the bindings in declaration order.
	Variables() []Variable
}

type flatScope struct {
	vars  []Variable
	index map[string]int
}

// NewScope returns an empty flat scope.
func NewScope() Scope {
	return &flatScope{index: make(map[string]int)}
}

func (s *flatScope) Lookup(name string) (Variable, bool) {
	idx, ok := s.index[name]
	if !ok {
		return Variable{}, false
	}
	return s.vars[idx], true
}

func (s *flatScope) Exists(name string) bool {
	_, ok := s.index[name]
	return ok
}

func (s *flatScope) Declare(v Variable) error {
	if _, ok := s.index[v.Name]; ok {
		return fmt.Errorf("%w: variable %s already exists", ErrRedeclaration, v.Name)
	}
	if v.Value.Kind() != v.Type {
		return fmt.Errorf("%w: %s declared %s but initialised with %s", ErrTypeMismatch, v.Name, v.Type, v.Value.Kind())
	}
	s.index[v.Name] = len(s.vars)
	s.vars = append(s.vars, v)
	return nil
}

func (s *flatScope) Assign(name string, val Value) error {
	idx, ok := s.index[name]
	if !ok {
		return fmt.Errorf("%w: undefined variable %s", ErrUndefinedReference, name)
	}
	if s.vars[idx].Type != val.Kind() {
		return fmt.Errorf("%w: cannot assign %s to %s variable %s", ErrTypeMismatch, val.Kind(), s.vars[idx].Type, name)
	}
	s.vars[idx].Value = val
	return nil
}

func (s *flatScope) Delete(name string) error {
	idx, ok := s.index[name]
	if !ok {
		return fmt.Errorf("%w: undefined variable %s", ErrUndefinedReference, name)
	}
	s.vars = append(s.vars[:idx], s.vars[idx+1:]...)
	delete(s.index, name)
	for i := idx; i < len(s.vars); i++ {
		s.index[s.vars[i].Name] = i
	}
	return nil
}

func (s *flatScope) Bind(v Variable) bool {
	if idx, ok := s.index[v.Name]; ok {
		s.vars[idx] = v
		return true
	}
	s.index[v.Name] = len(s.vars)
	s.vars = append(s.vars, v)
	return false
}

func (s *flatScope) Variables() []Variable {
	out := make([]Variable, len(s.vars))
	copy(out, s.vars)
	return out
}
