package validation

import (
	"errors"
	"strings"
	"testing"
)

type sample struct {
	Name  string `json:"shape_name" validate:"required,oneof=Line Tee"`
	Count *int   `json:"count" validate:"required"`
	Tag   string `json:"-" validate:"omitempty,max=3"`
}

func TestStruct(t *testing.T) {
	zero := 0
	tests := []struct {
		name    string
		input   any
		wantErr string
	}{
		{"valid", &sample{Name: "Tee", Count: &zero}, ""},
		{"missing name", &sample{Count: &zero}, "shape_name: field is required"},
		{"bad oneof", &sample{Name: "Pipe", Count: &zero}, "shape_name: must be one of [Line Tee]"},
		{"nil pointer", &sample{Name: "Line"}, "count: field is required"},
		{"nil", nil, "value cannot be nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.input)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Struct() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestStruct_FieldError(t *testing.T) {
	zero := 0
	err := Struct(&sample{Name: "Line", Count: &zero, Tag: "toolong"})
	var fe *FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FieldError, got %T", err)
	}
	if fe.Tag != "max" || fe.Param != "3" {
		t.Errorf("FieldError = %+v", fe)
	}
}
