package ptr_test

import (
	"testing"

	"github.com/myrjola/petracoach/internal/ptr"
)

func TestRef(t *testing.T) {
	s := "test"
	p := ptr.Ref(s)
	if p == nil {
		t.Fatal("Expected pointer to be non-nil")
	}
	if *p != s {
		t.Errorf("Expected %q, got %q", s, *p)
	}

	// Modifying the original value doesn't affect the pointer.
	s = "modified"
	if *p == s {
		t.Errorf("Pointer value should not change when original value is modified")
	}
}

func TestDeref(t *testing.T) {
	if got := ptr.Deref[float64](nil, 2.5); got != 2.5 {
		t.Errorf("Deref(nil) = %v, want fallback 2.5", got)
	}
	if got := ptr.Deref(ptr.Ref(40.0), 2.5); got != 40 {
		t.Errorf("Deref(40) = %v, want 40", got)
	}
}

func TestClone(t *testing.T) {
	if ptr.Clone[int](nil) != nil {
		t.Error("Clone(nil) should be nil")
	}
	orig := ptr.Ref(42.5)
	clone := ptr.Clone(orig)
	*clone = 50
	if *orig != 42.5 {
		t.Errorf("Clone aliases the original: %v", *orig)
	}
}
