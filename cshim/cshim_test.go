package main

import (
	"testing"

	"github.com/sqldef/plexpg/internal/statement"
)

func TestStatementHandleTableRoundTrips(t *testing.T) {
	h := storeStatement(&statement.Statement{})
	if h == 0 {
		t.Fatalf("expected a non-zero handle")
	}
	if lookupStatement(h) == nil {
		t.Fatalf("expected the stored statement to be retrievable")
	}
	dropStatement(h)
	if lookupStatement(h) != nil {
		t.Fatalf("expected the statement to be gone after drop")
	}
}

func TestStatementHandlesAreDistinct(t *testing.T) {
	a := storeStatement(&statement.Statement{})
	b := storeStatement(&statement.Statement{})
	if a == b {
		t.Errorf("expected distinct handles, got %d and %d", a, b)
	}
	dropStatement(a)
	dropStatement(b)
}

func TestLookupMissReturnsNil(t *testing.T) {
	if lookupStatement(999999) != nil {
		t.Errorf("expected a lookup miss for an unknown handle")
	}
}
