package validator

import "testing"

type reprocessBody struct {
	Steps []string `validate:"omitempty,dive,oneof=messages analysis"`
}

func TestStructRejectsUnknownStep(t *testing.T) {
	v := New()

	if err := v.Struct(reprocessBody{Steps: []string{"messages", "analysis"}}); err != nil {
		t.Fatalf("expected valid steps, got %v", err)
	}

	err := v.Struct(reprocessBody{Steps: []string{"everything"}})
	if err == nil {
		t.Fatal("expected validation error for unknown step")
	}
	if details := FieldErrors(err); len(details) != 1 {
		t.Fatalf("expected 1 field error, got %v", details)
	}
}
