package hop

import "testing"

func TestValueString(t *testing.T) {
	tests := []struct {
		val  Value
		want string
	}{
		{NewString("hi"), "hi"},
		{NewInteger(-12), "-12"},
		{NewFloat(2.5), "2.500000"},
		{NewBool(true), "true"},
		{NewBool(false), "false"},
		{NewWord(18446744073709551615), "18446744073709551615"},
		{NewErr("boom"), "[ERR]"},
	}
	for _, tc := range tests {
		if got := tc.val.String(); got != tc.want {
			t.Fatalf("expected %q, got %q", tc.want, got)
		}
	}
	if got := NewString("a\nb").Inspect(); got != `"a\nb"` {
		t.Fatalf("expected quoted inspect, got %q", got)
	}
}

func TestParseKind(t *testing.T) {
	for _, name := range TypeNames() {
		kind := ParseKind(name)
		if kind == KindErr {
			t.Fatalf("type name %s did not parse", name)
		}
		if kind.String() != name {
			t.Fatalf("expected %s to round trip, got %s", name, kind.String())
		}
	}
	if ParseKind("number") != KindErr {
		t.Fatalf("expected unknown type name to map to KindErr")
	}
}

func TestValueEqualRequiresSameKind(t *testing.T) {
	if !NewInteger(3).Equal(NewInteger(3)) {
		t.Fatalf("expected equal integers")
	}
	if NewInteger(3).Equal(NewWord(3)) {
		t.Fatalf("expected integer and word to differ")
	}
	if NewErr("a").Equal(NewErr("a")) {
		t.Fatalf("expected err values never to compare equal")
	}
}

func TestValueTruthy(t *testing.T) {
	tests := []struct {
		val   Value
		truth bool
		ok    bool
	}{
		{NewBool(true), true, true},
		{NewBool(false), false, true},
		{NewInteger(7), true, true},
		{NewInteger(0), false, true},
		{NewWord(1), false, false},
		{NewString("true"), false, false},
	}
	for _, tc := range tests {
		truth, ok := tc.val.Truthy()
		if truth != tc.truth || ok != tc.ok {
			t.Fatalf("%s: expected (%v, %v), got (%v, %v)", tc.val.Kind(), tc.truth, tc.ok, truth, ok)
		}
	}
}
