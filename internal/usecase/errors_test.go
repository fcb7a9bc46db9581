package usecase

import (
	"errors"
	"fmt"
	"testing"

	"github.com/arklim/account-service/internal/repository"
)

func TestKindCodes(t *testing.T) {
	cases := map[Kind]int{
		KindBadRequest:         400,
		KindValidation:         422,
		KindInvalidCredentials: 401,
		KindUnauthorized:       401,
		KindRiskControlBlocked: 403001,
		KindForbidden:          403,
		KindNotFound:           404,
		KindConflict:           409,
		KindStoreUnavailable:   100101,
		KindCacheUnavailable:   100201,
		KindInternal:           600000,
	}

	for kind, want := range cases {
		if got := kind.Code(); got != want {
			t.Errorf("%s: expected code %d, got %d", kind, want, got)
		}
	}
}

func TestPublicMessageHidesInfrastructure(t *testing.T) {
	err := storeError("load", fmt.Errorf("dial: %w", repository.ErrUnavailable))
	if err.Kind != KindStoreUnavailable {
		t.Fatalf("expected store unavailable, got %s", err.Kind)
	}
	if err.PublicMessage() != "Server error" {
		t.Fatalf("expected generic message, got %q", err.PublicMessage())
	}
	if !errors.Is(err, repository.ErrUnavailable) {
		t.Fatal("expected wrapped cause to stay reachable")
	}

	exposed := newError(KindConflict, "Username or email already exists", nil)
	if exposed.PublicMessage() != "Username or email already exists" {
		t.Fatalf("unexpected message %q", exposed.PublicMessage())
	}
}

func TestKindOfForeignError(t *testing.T) {
	if KindOf(errors.New("boom")) != KindInternal {
		t.Fatal("foreign errors must map to internal")
	}
	wrapped := fmt.Errorf("handler: %w", newError(KindNotFound, "User not found", nil))
	if KindOf(wrapped) != KindNotFound {
		t.Fatal("expected kind to survive wrapping")
	}
}
