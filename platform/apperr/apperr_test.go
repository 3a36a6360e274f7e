package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestInsufficientStockCarriesQuantities(t *testing.T) {
	err := InsufficientStock(2, 3)

	if err.Kind != KindInsufficientStock {
		t.Fatalf("expected kind %v, got %v", KindInsufficientStock, err.Kind)
	}
	shortage, ok := err.Details.(StockShortage)
	if !ok {
		t.Fatalf("expected StockShortage details, got %T", err.Details)
	}
	if shortage.Available != 2 || shortage.Required != 3 {
		t.Fatalf("expected available=2 required=3, got %+v", shortage)
	}
	if err.HTTPStatus() != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", err.HTTPStatus())
	}
}

func TestGetKindFollowsWrappedErrors(t *testing.T) {
	base := Forbidden("not allowed")
	wrapped := fmt.Errorf("transition order: %w", base)

	if !Is(wrapped, KindForbidden) {
		t.Fatalf("expected wrapped error to report KindForbidden")
	}
	if GetKind(errors.New("plain")) != KindUnknown {
		t.Fatalf("expected plain error to report KindUnknown")
	}
}

func TestKindCodes(t *testing.T) {
	cases := map[Kind]string{
		KindValidation:        "validation_failed",
		KindInsufficientStock: "insufficient_stock",
		KindConflict:          "conflict",
		Kind(99):              "unknown",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Fatalf("Kind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}
