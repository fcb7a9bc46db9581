package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/arklim/account-service/internal/core/domain"
	"github.com/arklim/account-service/internal/repository"
)

var adminPrincipal = domain.Principal{ID: "admin-1", Username: "root", Role: domain.RoleAdmin}

func TestResetPasswordBySelf(t *testing.T) {
	f := newProfileFixture(t, seedUser("u-1", "alice@example.com", "correct-horse"))
	ctx := context.Background()

	if _, err := f.svc.GetProfile(ctx, "u-1"); err != nil {
		t.Fatalf("GetProfile returned error: %v", err)
	}

	if err := f.svc.ResetPasswordBySelf(ctx, "u-1", "correct-horse", "battery-staple"); err != nil {
		t.Fatalf("ResetPasswordBySelf returned error: %v", err)
	}

	stored := f.users.get("u-1")
	if stored.PasswordHash != "plain$battery-staple" {
		t.Fatalf("unexpected stored digest %q", stored.PasswordHash)
	}
	if stored.UpdatedBy == nil || *stored.UpdatedBy != "u-1" {
		t.Fatalf("expected updated_by to be the caller, got %v", stored.UpdatedBy)
	}
	if _, ok := f.profiles.cached("u-1"); ok {
		t.Fatal("expected cached profile to be evicted")
	}
	if len(f.events.passwords) != 1 || f.events.passwords[0].ChangedBy != "self" {
		t.Fatalf("unexpected password events: %+v", f.events.passwords)
	}
}

func TestResetPasswordBySelfWrongOldPassword(t *testing.T) {
	f := newProfileFixture(t, seedUser("u-1", "alice@example.com", "correct-horse"))

	err := f.svc.ResetPasswordBySelf(context.Background(), "u-1", "guess", "battery-staple")
	if KindOf(err) != KindInvalidCredentials {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	var ucErr *Error
	if !errors.As(err, &ucErr) || ucErr.PublicMessage() != "Invalid old password" {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored := f.users.get("u-1"); stored.PasswordHash != "plain$correct-horse" {
		t.Fatal("password must not change on a failed check")
	}
}

func TestResetPasswordBySelfWeakPassword(t *testing.T) {
	f := newProfileFixture(t, seedUser("u-1", "alice@example.com", "correct-horse"))

	err := f.svc.ResetPasswordBySelf(context.Background(), "u-1", "correct-horse", "abc")
	if KindOf(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResetPasswordByAdminGeneratesPassword(t *testing.T) {
	f := newProfileFixture(t, seedUser("u-1", "alice@example.com", "correct-horse"))
	ctx := context.Background()

	generated, err := f.svc.ResetPasswordByAdmin(ctx, adminPrincipal, "u-1", "")
	if err != nil {
		t.Fatalf("ResetPasswordByAdmin returned error: %v", err)
	}
	if len(generated) != 8 {
		t.Fatalf("expected 8 character password, got %q", generated)
	}

	stored := f.users.get("u-1")
	if ok, _ := (plainHasher{}).Verify("correct-horse", stored.PasswordHash); ok {
		t.Fatal("old password still verifies after admin reset")
	}
	if ok, _ := (plainHasher{}).Verify(generated, stored.PasswordHash); !ok {
		t.Fatal("generated password does not verify")
	}
	if stored.UpdatedBy == nil || *stored.UpdatedBy != "admin-1" {
		t.Fatalf("expected updated_by admin-1, got %v", stored.UpdatedBy)
	}
	if len(f.events.passwords) != 1 || f.events.passwords[0].ChangedBy != "admin-1" {
		t.Fatalf("unexpected password events: %+v", f.events.passwords)
	}
}

func TestResetPasswordByAdminExplicitPassword(t *testing.T) {
	f := newProfileFixture(t, seedUser("u-1", "alice@example.com", "correct-horse"))

	got, err := f.svc.ResetPasswordByAdmin(context.Background(), adminPrincipal, "u-1", "battery-staple")
	if err != nil {
		t.Fatalf("ResetPasswordByAdmin returned error: %v", err)
	}
	if got != "battery-staple" {
		t.Fatalf("expected supplied password to be echoed, got %q", got)
	}
}

func TestResetPasswordByAdminRejects(t *testing.T) {
	cases := []struct {
		name   string
		actor  domain.Principal
		target string
		want   Kind
	}{
		{"plain user", domain.Principal{ID: "u-2", Role: domain.RoleUser}, "u-1", KindForbidden},
		{"guest", domain.AnonymousPrincipal(), "u-1", KindForbidden},
		{"missing target id", adminPrincipal, " ", KindBadRequest},
		{"unknown target", adminPrincipal, "ghost", KindNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newProfileFixture(t, seedUser("u-1", "alice@example.com", "correct-horse"))
			_, err := f.svc.ResetPasswordByAdmin(context.Background(), tc.actor, tc.target, "")
			if KindOf(err) != tc.want {
				t.Fatalf("expected %s, got %v", tc.want, err)
			}
		})
	}
}

func TestResetPasswordCacheEvictionFailure(t *testing.T) {
	f := newProfileFixture(t, seedUser("u-1", "alice@example.com", "correct-horse"))
	f.profiles.deleteErr = repository.ErrUnavailable

	_, err := f.svc.ResetPasswordByAdmin(context.Background(), adminPrincipal, "u-1", "")
	if KindOf(err) != KindCacheUnavailable {
		t.Fatalf("expected cache unavailable, got %v", err)
	}
}
