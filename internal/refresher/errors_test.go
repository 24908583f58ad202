package refresher

import (
	"errors"
	"testing"
)

func TestWrapKeepsMarkerAndCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := wrap(ErrAuthFailure, "MK4", "poll", "", cause)
	if !errors.Is(err, ErrAuthFailure) || !errors.Is(err, cause) {
		t.Fatalf("wrap lost marker or cause: %v", err)
	}
	if got, want := err.Error(), "authentication failure: MK4: poll: dial tcp: refused"; got != want {
		t.Fatalf("message = %q, want %q", got, want)
	}
}

func TestWrapDefaults(t *testing.T) {
	err := wrap(nil, "", "", "", nil)
	if !errors.Is(err, ErrTransportFailure) {
		t.Fatalf("expected transport failure marker, got %v", err)
	}
	if err.Error() != "transport failure: refresh failure" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
