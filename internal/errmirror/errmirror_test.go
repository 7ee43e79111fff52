package errmirror

import "testing"

func TestNewIsOK(t *testing.T) {
	m := New()
	kind, msg := m.Last()
	if kind != KindOK || msg != "" {
		t.Errorf("expected fresh mirror to be OK, got %v %q", kind, msg)
	}
}

func TestSetThenLast(t *testing.T) {
	m := New()
	m.Set(KindConstraint, "duplicate key")
	kind, msg := m.Last()
	if kind != KindConstraint || msg != "duplicate key" {
		t.Errorf("unexpected mirrored state %v %q", kind, msg)
	}
}

func TestClearResetsToOK(t *testing.T) {
	m := New()
	m.Set(KindSyntax, "bad sql")
	m.Clear()
	kind, msg := m.Last()
	if kind != KindOK || msg != "" {
		t.Errorf("expected Clear to reset to OK, got %v %q", kind, msg)
	}
}

func TestSetOverwritesPrevious(t *testing.T) {
	m := New()
	m.Set(KindBusy, "first")
	m.Set(KindGeneric, "second")
	kind, msg := m.Last()
	if kind != KindGeneric || msg != "second" {
		t.Errorf("expected last Set to win, got %v %q", kind, msg)
	}
}
