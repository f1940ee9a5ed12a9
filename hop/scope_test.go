package hop

import (
	"errors"
	"slices"
	"testing"
)

func TestScopeDeclareAssignDelete(t *testing.T) {
	s := NewScope()
	if err := s.Declare(Variable{Name: "x", Type: KindInteger, Value: NewInteger(1)}); err != nil {
		t.Fatalf("declare failed: %v", err)
	}
	if err := s.Declare(Variable{Name: "x", Type: KindInteger, Value: NewInteger(2)}); !errors.Is(err, ErrRedeclaration) {
		t.Fatalf("expected ErrRedeclaration, got %v", err)
	}
	if err := s.Declare(Variable{Name: "y", Type: KindString, Value: NewInteger(2)}); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	if err := s.Assign("x", NewInteger(5)); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if err := s.Assign("x", NewFloat(5)); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	if err := s.Assign("missing", NewInteger(5)); !errors.Is(err, ErrUndefinedReference) {
		t.Fatalf("expected ErrUndefinedReference, got %v", err)
	}
	v, ok := s.Lookup("x")
	if !ok || v.Value.Integer() != 5 {
		t.Fatalf("expected x = 5, got %#v", v)
	}
	if err := s.Delete("x"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if s.Exists("x") {
		t.Fatalf("expected x to be gone")
	}
	if err := s.Delete("x"); !errors.Is(err, ErrUndefinedReference) {
		t.Fatalf("expected ErrUndefinedReference, got %v", err)
	}
}

func TestScopeDeleteKeepsOrder(t *testing.T) {
	s := NewScope()
	for i, name := range []string{"a", "b", "c"} {
		if err := s.Declare(Variable{Name: name, Type: KindInteger, Value: NewInteger(int32(i))}); err != nil {
			t.Fatalf("declare %s failed: %v", name, err)
		}
	}
	if err := s.Delete("a"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := s.Assign("c", NewInteger(9)); err != nil {
		t.Fatalf("assign after delete failed: %v", err)
	}
	vars := s.Variables()
	if len(vars) != 2 || vars[0].Name != "b" || vars[1].Name != "c" || vars[1].Value.Integer() != 9 {
		t.Fatalf("unexpected variables after delete: %#v", vars)
	}
}

func TestScopeBindReplacesKind(t *testing.T) {
	s := NewScope()
	if replaced := s.Bind(Variable{Name: "x", Type: KindInteger, Value: NewInteger(1)}); replaced {
		t.Fatalf("expected fresh binding")
	}
	if replaced := s.Bind(Variable{Name: "x", Type: KindString, Value: NewString("s")}); !replaced {
		t.Fatalf("expected replaced binding")
	}
	v, _ := s.Lookup("x")
	if v.Type != KindString || v.Value.Str() != "s" {
		t.Fatalf("expected string binding, got %#v", v)
	}
}

func TestRegistryMergeAndClone(t *testing.T) {
	base := NewRegistry()
	base.Register("a", func(*Context) error { return nil })
	clone := base.Clone()
	clone.Register("b", func(*Context) error { return nil })
	if _, ok := base.Lookup("b"); ok {
		t.Fatalf("expected clone to be independent")
	}

	other := NewRegistry()
	other.Register("a", func(*Context) error { return errors.New("replaced") })
	other.Register("c", func(*Context) error { return nil })
	added := base.Merge(other)
	if !slices.Equal(added, []string{"c"}) {
		t.Fatalf("expected only c to be added, got %v", added)
	}
	fn, _ := base.Lookup("a")
	if err := fn(nil); err == nil || err.Error() != "replaced" {
		t.Fatalf("expected merged native to win, got %v", err)
	}
	if got := base.Names(); !slices.Equal(got, []string{"a", "c"}) {
		t.Fatalf("unexpected names %v", got)
	}
}
