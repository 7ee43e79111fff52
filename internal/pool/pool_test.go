package pool

import (
	"errors"
	"testing"

	"github.com/sqldef/plexpg/internal/session"
)

// fakeDialer lets tests exercise the pool without a live PostgreSQL
// connection; it only needs to satisfy Close().
func fakeDialer(fail *bool) func() (*session.Session, error) {
	return func() (*session.Session, error) {
		if fail != nil && *fail {
			return nil, errors.New("dial failed")
		}
		return &session.Session{}, nil
	}
}

func TestNewClampsCapacity(t *testing.T) {
	p := New(0, fakeDialer(nil))
	if p.Len() != DefaultCapacity {
		t.Errorf("expected default capacity, got %d", p.Len())
	}
	p2 := New(MaxCapacity+50, fakeDialer(nil))
	if p2.Len() != MaxCapacity {
		t.Errorf("expected clamp to MaxCapacity, got %d", p2.Len())
	}
}

func TestAcquireOpensAndMarksReady(t *testing.T) {
	p := New(2, fakeDialer(nil))
	h, err := p.Acquire()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Valid(h) {
		t.Errorf("expected handle to be valid immediately after acquire")
	}
	if p.Session(h) == nil {
		t.Errorf("expected a non-nil session")
	}
	if p.Statements(h) == nil {
		t.Errorf("expected a non-nil prepared-statement cache")
	}
}

func TestReleaseInvalidatesHandleViaGeneration(t *testing.T) {
	p := New(1, fakeDialer(nil))
	h, err := p.Acquire()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.Release(h)
	if p.Valid(h) {
		t.Errorf("expected handle invalidated after release")
	}
}

func TestAcquireFailsWhenPoolFullAndHealthy(t *testing.T) {
	p := New(1, fakeDialer(nil))
	h1, err := p.Acquire()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = h1
	if _, err := p.Acquire(); err != ErrUnavailable {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestMarkErrorThenAcquireReconnects(t *testing.T) {
	p := New(1, fakeDialer(nil))
	h, err := p.Acquire()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.MarkError(h)
	if p.Valid(h) {
		t.Errorf("expected handle invalidated after MarkError")
	}
	h2, err := p.Acquire()
	if err != nil {
		t.Fatalf("expected reconnect to succeed, got %v", err)
	}
	if h2.Generation == h.Generation {
		t.Errorf("expected generation to bump across reconnect")
	}
}

func TestAcquireSurfacesDialFailureAsUnavailable(t *testing.T) {
	fail := true
	p := New(1, fakeDialer(&fail))
	if _, err := p.Acquire(); err != ErrUnavailable {
		t.Errorf("expected ErrUnavailable when every dial fails, got %v", err)
	}
}
