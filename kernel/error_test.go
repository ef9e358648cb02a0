package kernel

import "testing"

func TestErrorInterface(t *testing.T) {
	err := &Error{Module: "pmm", Message: "out of memory"}

	if exp, got := "out of memory", err.Error(); got != exp {
		t.Fatalf("expected Error() to return %q; got %q", exp, got)
	}
}
