package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"config", fmt.Errorf("token: %w", ErrConfig), ExitConfig},
		{"auth", fmt.Errorf("list studies: %w", ErrAuth), ExitFailed},
		{"plain", errors.New("boom"), ExitFailed},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Fatalf("%s: ExitCode = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestKind(t *testing.T) {
	if got := Kind(fmt.Errorf("write: %w", ErrIO)); got != "io" {
		t.Fatalf("Kind = %q, want io", got)
	}
	if got := Kind(errors.New("boom")); got != "error" {
		t.Fatalf("Kind = %q, want error", got)
	}
}
