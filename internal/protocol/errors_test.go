package protocol

import "testing"

func TestIsKnownCode(t *testing.T) {
	cases := []string{
		"",
		ErrProtoBadRequest,
		ErrBadRequest,
		ErrInvalidTarget,
		ErrUnreachable,
		ErrCancelled,
		ErrConflict,
		ErrInternal,
	}
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
}

func TestEventType(t *testing.T) {
	if got := (Event{"type": EventTaskDone}).Type(); got != EventTaskDone {
		t.Fatalf("Event.Type()=%q", got)
	}
	if got := (Event{"type": 7}).Type(); got != "" {
		t.Fatalf("non-string type=%q", got)
	}
}
