package kernel

import "testing"

func TestKernelError(t *testing.T) {
	err := &Error{
		Module:  "foo",
		Message: "error message",
		Kind:    NotFound,
	}

	if err.Error() != err.Message {
		t.Fatalf("expected to err.Error() to return %q; got %q", err.Message, err.Error())
	}
}

func TestErrorKindString(t *testing.T) {
	specs := []struct {
		kind ErrorKind
		exp  string
	}{
		{KindInternal, "internal"},
		{ResourceExhausted, "resource exhausted"},
		{NotFound, "not found"},
		{InvalidFormat, "invalid format"},
		{InvalidArgument, "invalid argument"},
		{PermissionDenied, "permission denied"},
		{ErrorKind(42), "internal"},
	}

	for specIndex, spec := range specs {
		if got := spec.kind.String(); got != spec.exp {
			t.Errorf("[spec %d] expected %q; got %q", specIndex, spec.exp, got)
		}
	}
}
