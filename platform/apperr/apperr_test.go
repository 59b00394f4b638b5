package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{NotFound("missing"), http.StatusNotFound},
		{BadRequest("bad json"), http.StatusBadRequest},
		{Validation("invalid"), http.StatusBadRequest},
		{Unauthorized("nope"), http.StatusUnauthorized},
		{Internal("boom"), http.StatusInternalServerError},
		{New(KindUnknown, "unknown"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := tc.err.HTTPStatus(); got != tc.want {
			t.Fatalf("%q: expected status %d, got %d", tc.err.Message, tc.want, got)
		}
	}
}

func TestGetKindFindsWrappedErrors(t *testing.T) {
	base := errors.New("connection refused")
	err := fmt.Errorf("handle call_ended: %w", Wrap(KindInternal, "store unavailable", base))

	if !Is(err, KindInternal) {
		t.Fatalf("expected KindInternal, got %v", GetKind(err))
	}
	if !errors.Is(err, base) {
		t.Fatal("expected underlying error to be reachable")
	}
	if GetKind(base) != KindUnknown {
		t.Fatal("expected plain error to be KindUnknown")
	}
}
