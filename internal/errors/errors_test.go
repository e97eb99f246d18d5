package errors

import (
	"testing"
)

func TestExitError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ExitError
		want string
	}{
		{
			name: "with underlying error",
			err:  NewExitError(New("disk unreachable"), ExitSystem),
			want: "disk unreachable",
		},
		{
			name: "nil underlying error",
			err:  NewExitError(nil, ExitUser),
			want: "exit code 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExitError_Unwrap(t *testing.T) {
	base := New("base failure")
	err := NewUserError(base, "check the path")

	if !Is(err, base) {
		t.Error("errors.Is should find the wrapped error")
	}

	var exitErr *ExitError
	if !As(err, &exitErr) {
		t.Fatal("errors.As should extract *ExitError")
	}
	if exitErr.Code != ExitUser {
		t.Errorf("Code = %d, want %d", exitErr.Code, ExitUser)
	}
	if exitErr.Suggestion != "check the path" {
		t.Errorf("Suggestion = %q", exitErr.Suggestion)
	}
}

func TestNewSystemError(t *testing.T) {
	err := NewSystemError(New("io failure"), "retry")
	if err.Code != ExitSystem {
		t.Errorf("Code = %d, want %d", err.Code, ExitSystem)
	}
}
