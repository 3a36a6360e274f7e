package validator

import "testing"

type sample struct {
	Name string `validate:"notblank,max=20"`
}

func TestNotBlankRejectsWhitespace(t *testing.T) {
	val := New()

	if err := val.Struct(sample{Name: "   "}); err == nil {
		t.Fatal("expected whitespace-only name to fail validation")
	}
	if err := val.Struct(sample{Name: "Jane"}); err != nil {
		t.Fatalf("expected valid name, got %v", err)
	}
}
