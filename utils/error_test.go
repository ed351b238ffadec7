package utils_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fueltrack360/dispatch_backend/utils"
)

func TestKindOf(t *testing.T) {
	if got := utils.KindOf(utils.NewValidationError("bad input")); got != utils.ErrorKindValidation {
		t.Fatalf("expected VALIDATION, got %s", got)
	}
	if got := utils.KindOf(utils.NewNotFoundError("missing %s", "x")); got != utils.ErrorKindNotFound {
		t.Fatalf("expected NOT_FOUND, got %s", got)
	}
	if got := utils.KindOf(utils.NewPermissionError("nope")); got != utils.ErrorKindPermission {
		t.Fatalf("expected PERMISSION, got %s", got)
	}
	if got := utils.KindOf(utils.NewConflictError("busy")); got != utils.ErrorKindConflict {
		t.Fatalf("expected CONFLICT, got %s", got)
	}
	if got := utils.KindOf(errors.New("plain")); got != "" {
		t.Fatalf("expected empty kind for plain error, got %s", got)
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	inner := utils.NewConflictError("checklist already submitted")
	wrapped := fmt.Errorf("submit failed: %w", inner)

	if !utils.IsConflictError(wrapped) {
		t.Fatal("wrapped conflict error must still report CONFLICT")
	}
	if utils.IsNotFoundError(wrapped) {
		t.Fatal("wrapped conflict error must not report NOT_FOUND")
	}
}

func TestAppError_Message(t *testing.T) {
	err := utils.NewNotFoundError("truck %s not found", "abc")
	if err.Error() != "truck abc not found" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}
