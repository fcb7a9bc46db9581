package security

import (
	"errors"
	"strings"
	"testing"

	"github.com/arklim/account-service/internal/infra/config"
)

func TestPasswordPolicyDefaultsArePermissive(t *testing.T) {
	policy := NewPasswordPolicy(config.PasswordPolicySettings{MinLength: 3})

	if err := policy.Validate("pw1", "alice", "a@x.com"); err != nil {
		t.Fatalf("expected short password to pass permissive policy, got %v", err)
	}
}

func TestPasswordPolicyViolations(t *testing.T) {
	policy := NewPasswordPolicy(config.PasswordPolicySettings{MinLength: 10, MinStrength: 3})

	assertViolation := func(password, expectedCode string) {
		t.Helper()
		err := policy.Validate(password)
		if err == nil {
			t.Fatalf("expected validation error for %s", expectedCode)
		}
		var vErr *PasswordValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected PasswordValidationError, got %T", err)
		}
		if vErr.Code != expectedCode {
			t.Fatalf("expected %s code, got %s", expectedCode, vErr.Code)
		}
	}

	assertViolation("Short1!", "min_length")
	assertViolation("password123", "weak_password")
	assertViolation(strings.Repeat("a", maxPasswordBytes+1), "max_length")

	if err := policy.Validate("C0mplex!Passphrase#2025"); err != nil {
		t.Fatalf("expected strong password to pass, got %v", err)
	}
}

func TestStrengthRulePenalisesUserInputs(t *testing.T) {
	rule := RequirePasswordStrengthRule(2)

	if err := rule.Validate("alicealice", []string{"alicealice"}); err == nil {
		t.Fatal("expected password equal to a user input to be rejected")
	}
}
