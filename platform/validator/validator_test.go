package validator

import "testing"

type sample struct {
	Name  string  `validate:"notblank"`
	Value float64 `validate:"gte=0"`
}

func TestStructReportsFieldErrors(t *testing.T) {
	v := New()

	err := v.Struct(sample{Name: "   ", Value: -1})
	if err == nil {
		t.Fatal("expected validation error")
	}

	fields := FieldErrors(err)
	if fields["sample.Name"] != "notblank" {
		t.Fatalf("expected notblank on Name, got %v", fields)
	}
	if fields["sample.Value"] != "gte=0" {
		t.Fatalf("expected gte=0 on Value, got %v", fields)
	}
}

func TestStructAcceptsValidInput(t *testing.T) {
	if err := New().Struct(sample{Name: "ok", Value: 0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
