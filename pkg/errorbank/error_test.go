package errorbank

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/grpc/codes"
)

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		err  *AppError
		http int
		grpc codes.Code
	}{
		{BadRequest("bad"), http.StatusBadRequest, codes.InvalidArgument},
		{Conflict("dup"), http.StatusConflict, codes.AlreadyExists},
		{NotFound("gone"), http.StatusNotFound, codes.NotFound},
		{Validation("invalid", nil), http.StatusUnprocessableEntity, codes.InvalidArgument},
		{Unprocessable("nope"), http.StatusUnprocessableEntity, codes.FailedPrecondition},
		{Internal("boom"), http.StatusInternalServerError, codes.Internal},
	}
	for _, tt := range tests {
		t.Run(string(tt.err.Kind()), func(t *testing.T) {
			if got := tt.err.StatusCode(); got != tt.http {
				t.Errorf("StatusCode() = %d, want %d", got, tt.http)
			}
			if got := tt.err.GRPCCode(); got != tt.grpc {
				t.Errorf("GRPCCode() = %v, want %v", got, tt.grpc)
			}
		})
	}
}

func TestFromPassesThroughAppErrors(t *testing.T) {
	orig := NotFound("order not found")
	wrapped := fmt.Errorf("handler: %w", orig)

	got := From(wrapped)
	if got.Kind() != KindNotFound {
		t.Errorf("Kind() = %v, want not_found", got.Kind())
	}
	if got != orig {
		t.Error("From must unwrap to the original AppError")
	}
}

func TestFromWrapsUnknownErrors(t *testing.T) {
	cause := errors.New("disk on fire")
	got := From(cause)
	if got.Kind() != KindInternal {
		t.Errorf("Kind() = %v, want internal", got.Kind())
	}
	if !errors.Is(got, cause) {
		t.Error("cause must stay reachable via errors.Is")
	}
	if From(nil) != nil {
		t.Error("From(nil) must be nil")
	}
}

func TestValidationCarriesFields(t *testing.T) {
	err := Validation("invalid order", map[string]string{"totalAmount": "must not be negative"})

	details := err.Details()
	fields, ok := details["fields"].(map[string]string)
	if !ok {
		t.Fatalf("details = %+v, want a fields map", details)
	}
	if fields["totalAmount"] != "must not be negative" {
		t.Errorf("fields = %+v", fields)
	}
}

func TestWithCauseAndMessage(t *testing.T) {
	cause := errors.New("timeout")
	err := Internal("failed to list orders", WithCause(cause))

	if err.Error() != "failed to list orders: timeout" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("Unwrap must expose the cause")
	}

	if msg := New(KindConflict, "").Message(); msg != string(KindConflict) {
		t.Errorf("empty message fallback = %q", msg)
	}
}
