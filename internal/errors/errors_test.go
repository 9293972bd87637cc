package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestAaErrorFormat(t *testing.T) {
	tests := []struct {
		name     string
		err      *AaError
		wantErr  string
		wantUser string
	}{
		{
			name:     "what only",
			err:      &AaError{What: "something broke"},
			wantErr:  "something broke",
			wantUser: "Error: something broke",
		},
		{
			name:     "what and why",
			err:      &AaError{What: "something broke", Why: "bad input"},
			wantErr:  "something broke: bad input",
			wantUser: "Error: something broke\n\nWhy: bad input",
		},
		{
			name: "full error",
			err: &AaError{
				What: "something broke",
				Why:  "bad input",
				Fix:  "try again",
			},
			wantErr:  "something broke: bad input",
			wantUser: "Error: something broke\n\nWhy: bad input\n\nFix: try again",
		},
		{
			name: "with cause",
			err: &AaError{
				What:  "something broke",
				Cause: errors.New("underlying error"),
			},
			wantErr:  "something broke: underlying error",
			wantUser: "Error: something broke",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantErr {
				t.Errorf("Error() = %q, want %q", got, tt.wantErr)
			}
			if got := tt.err.UserMessage(); got != tt.wantUser {
				t.Errorf("UserMessage() = %q, want %q", got, tt.wantUser)
			}
		})
	}
}

func TestAaErrorJSON(t *testing.T) {
	err := &AaError{
		Code:  CodeCacheInvalid,
		What:  "invalid counter cache: .aa.cache.yaml",
		Why:   "negative counter",
		Cause: errors.New("last_root: -1"),
	}

	data, marshalErr := json.Marshal(err)
	if marshalErr != nil {
		t.Fatalf("MarshalJSON failed: %v", marshalErr)
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if result["code"] != string(CodeCacheInvalid) {
		t.Errorf("code = %v, want %v", result["code"], CodeCacheInvalid)
	}
	if result["cause"] != "last_root: -1" {
		t.Errorf("cause = %v, want %v", result["cause"], "last_root: -1")
	}
}

func TestConstructorsCarryCategory(t *testing.T) {
	tests := []struct {
		err  *AaError
		want Category
	}{
		{ErrConfigInvalid(".aa.yml", "projects: required"), CategoryConfiguration},
		{ErrConfigMissing(".aa.yml"), CategoryConfiguration},
		{ErrProjectUnknown("XYZ"), CategoryConfiguration},
		{ErrCacheInvalid(".aa.cache.yaml", "bad yaml"), CategoryCache},
		{ErrCacheWrite(".aa.cache.yaml"), CategoryCache},
		{ErrStaleCache("PRJ", []string{"root: observed 9, cached 5"}), CategoryConflict},
		{ErrDuplicateIdentifier("PRJ", []string{"PRJ-4: t1, t2"}), CategoryConflict},
		{ErrRemoteUnauthorized("asana"), CategoryRemote},
		{ErrRemoteFailed("PRJ"), CategoryRemote},
		{ErrAlreadyRunning(42), CategoryRun},
		{ErrBranchFailures(2), CategoryRun},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			if got := tt.err.Category(); got != tt.want {
				t.Errorf("Category() = %v, want %v", got, tt.want)
			}
			if tt.err.What == "" {
				t.Error("What should not be empty")
			}
		})
	}
}

func TestStaleCacheJoinsDetails(t *testing.T) {
	err := ErrStaleCache("PRJ", []string{"a", "b"})
	if err.Why != "a; b" {
		t.Errorf("Why = %q, want %q", err.Why, "a; b")
	}
}

func TestAaErrorIs(t *testing.T) {
	err1 := ErrCacheInvalid("a", "x")
	err2 := ErrCacheInvalid("b", "y")
	err3 := ErrConfigMissing("c")

	if !errors.Is(err1, err2) {
		t.Error("errors with same code should match")
	}
	if errors.Is(err1, err3) {
		t.Error("errors with different codes should not match")
	}
}

func TestWithCause(t *testing.T) {
	base := ErrCacheWrite("x")
	cause := errors.New("disk full")

	wrapped := base.WithCause(cause)

	if wrapped.Cause != cause {
		t.Error("cause should be set")
	}
	if base.Cause != nil {
		t.Error("original should not be modified")
	}
	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is should see the cause")
	}
}

func TestAsAaError(t *testing.T) {
	aaErr := ErrConfigMissing(".aa.yml")

	if got := AsAaError(aaErr); got != aaErr {
		t.Error("direct AaError should be returned")
	}

	wrapped := fmt.Errorf("load: %w", aaErr)
	if got := AsAaError(wrapped); got != aaErr {
		t.Error("wrapped AaError should be found")
	}

	joined := errors.Join(errors.New("other"), aaErr)
	if got := AsAaError(joined); got != aaErr {
		t.Error("joined AaError should be found")
	}

	if got := AsAaError(errors.New("plain")); got != nil {
		t.Error("plain error should return nil")
	}
	if got := AsAaError(nil); got != nil {
		t.Error("nil should return nil")
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(cause, "operation failed")

	if err.Code != "UNKNOWN" {
		t.Errorf("Code = %v, want UNKNOWN", err.Code)
	}
	if err.Error() != "operation failed: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
}
