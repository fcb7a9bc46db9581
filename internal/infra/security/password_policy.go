package security

import (
	"github.com/arklim/account-service/internal/core/port"
	"github.com/arklim/account-service/internal/infra/config"
)

const maxPasswordBytes = 256

// NewPasswordPolicy builds the validator used by registration, profile updates and resets.
func NewPasswordPolicy(cfg config.PasswordPolicySettings) *PasswordValidator {
	minLength := cfg.MinLength
	if minLength <= 0 {
		minLength = 1
	}

	return NewPasswordValidator(
		MinLengthRule(minLength),
		MaxLengthRule(maxPasswordBytes),
		RequirePasswordStrengthRule(cfg.MinStrength),
	)
}

var _ port.PasswordPolicyValidator = (*PasswordValidator)(nil)
