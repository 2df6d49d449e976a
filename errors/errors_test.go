package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestAppError_New_Success(t *testing.T) {
	err := New(ErrCodeNotFound, "not found")
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, err.Code)
	}
	if err.Message != "not found" {
		t.Errorf("expected message 'not found', got %q", err.Message)
	}
	if err.Retryable {
		t.Error("NOT_FOUND should not be retryable")
	}
}

func TestAppError_New_Retryable(t *testing.T) {
	err := New(ErrCodeTimeout, "timed out")
	if !err.Retryable {
		t.Error("TIMEOUT should be retryable")
	}
}

func TestAppError_Configuration_Format(t *testing.T) {
	err := Configuration("no dependency of data kind %s has time information", "peaks")
	if err.Code != ErrCodeConfiguration {
		t.Fatalf("expected CONFIGURATION_ERROR, got %s", err.Code)
	}
	if !strings.Contains(err.Error(), "peaks") {
		t.Errorf("expected message to name the kind, got %q", err.Error())
	}
	if err.Retryable {
		t.Error("configuration errors must not be retryable")
	}
}

func TestAppError_Unimplemented_Details(t *testing.T) {
	err := Unimplemented("ComputeLoop", "event_basics")
	if err.Details["hook"] != "ComputeLoop" {
		t.Errorf("expected hook=ComputeLoop, got %v", err.Details["hook"])
	}
	if err.Details["owner"] != "event_basics" {
		t.Errorf("expected owner=event_basics, got %v", err.Details["owner"])
	}
}

func TestAppError_NotRegistered_NamesOutput(t *testing.T) {
	err := NotRegistered("records")
	if !strings.Contains(err.Message, "records") {
		t.Errorf("expected message to name the output, got %q", err.Message)
	}
}

func TestAppError_NotFound_EmptyID(t *testing.T) {
	err := NotFound("plugin", "")
	if _, ok := err.Details["id"]; ok {
		t.Error("expected no 'id' key in details when id is empty")
	}
}

func TestAppError_Internal_Success(t *testing.T) {
	cause := fmt.Errorf("worker crashed")
	err := Internal(cause)
	if err.Code != ErrCodeInternal {
		t.Errorf("expected INTERNAL_ERROR, got %s", err.Code)
	}
	if err.Cause != cause {
		t.Error("expected cause to be set")
	}
	if err.Retryable {
		t.Error("Internal should NOT be retryable by default")
	}
}

func TestAppError_WithCause_Chain(t *testing.T) {
	root := stderrors.New("root")
	err := Configuration("bad graph").WithCause(root)
	if !stderrors.Is(err, root) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestAppError_WithDetails_Merge(t *testing.T) {
	err := InvalidInput("batch_size", "must be positive")
	err.WithDetails(map[string]any{"value": -1})
	if err.Details["field"] != "batch_size" {
		t.Errorf("expected field detail to survive merge, got %v", err.Details["field"])
	}
	if err.Details["value"] != -1 {
		t.Errorf("expected value=-1, got %v", err.Details["value"])
	}
}

func TestAppError_WithDetail_NilMap(t *testing.T) {
	err := Misaligned("lengths differ")
	err.WithDetail("lengths", []int{3, 4})
	if err.Details == nil {
		t.Fatal("expected details map to be created")
	}
}

func TestAppError_Error_Format(t *testing.T) {
	err := New(ErrCodeInvalidInput, "bad")
	if err.Error() != "INVALID_INPUT: bad" {
		t.Errorf("unexpected format: %q", err.Error())
	}
	err.WithCause(stderrors.New("inner"))
	if !strings.Contains(err.Error(), "cause: inner") {
		t.Errorf("expected cause in message, got %q", err.Error())
	}
}

func TestAppError_Constructors_Table(t *testing.T) {
	tests := []struct {
		name      string
		err       *AppError
		code      ErrorCode
		retryable bool
	}{
		{"Configuration", Configuration("x"), ErrCodeConfiguration, false},
		{"Unimplemented", Unimplemented("Compute", "p"), ErrCodeUnimplemented, false},
		{"NotRegistered", NotRegistered("records"), ErrCodeNotRegistered, false},
		{"AlreadyExists", AlreadyExists("plugin", "peaks"), ErrCodeAlreadyExists, false},
		{"MissingField", MissingField("time"), ErrCodeMissingField, false},
		{"Misaligned", Misaligned("x"), ErrCodeMisaligned, false},
		{"Validation", Validation("bad input"), ErrCodeInvalidInput, false},
		{"Unavailable", Unavailable("pool"), ErrCodeUnavailable, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.Code != tc.code {
				t.Errorf("expected code %s, got %s", tc.code, tc.err.Code)
			}
			if tc.err.Retryable != tc.retryable {
				t.Errorf("expected retryable=%v, got %v", tc.retryable, tc.err.Retryable)
			}
		})
	}
}

func TestAppError_HasCode_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("building graph: %w", Configuration("cycle"))
	if !IsConfiguration(wrapped) {
		t.Error("expected wrapped configuration error to be detected")
	}
	if IsUnimplemented(wrapped) {
		t.Error("did not expect unimplemented code")
	}
	if HasCode(stderrors.New("plain"), ErrCodeConfiguration) {
		t.Error("plain error should not match any code")
	}
}

func TestAppError_AsAppError_Success(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NotFound("plugin", "peaks"))
	appErr, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("expected AsAppError to succeed")
	}
	if appErr.Code != ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND, got %s", appErr.Code)
	}
	if _, ok := AsAppError(stderrors.New("plain")); ok {
		t.Error("expected plain error to fail conversion")
	}
}

func TestJoin(t *testing.T) {
	if got := Join([]string{"a", "b"}); got != "[a, b]" {
		t.Errorf("unexpected join: %q", got)
	}
}

func TestAppError_ImplementsErrorInterface(t *testing.T) {
	var _ error = &AppError{}
}
