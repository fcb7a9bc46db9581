package port

import "github.com/arklim/account-service/internal/core/domain"

// PasswordPolicyValidator enforces password strength requirements.
// userInputs are personal values (username, email) the password must not resemble.
type PasswordPolicyValidator interface {
	Validate(password string, userInputs ...string) error
}

// PasswordHasher hashes and verifies secrets using the configured algorithm.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password string, encoded string) (bool, error)
}

// TokenIssuer signs and verifies bearer tokens.
type TokenIssuer interface {
	Issue(principal domain.Principal) (domain.AccessToken, error)
	Verify(token string) (domain.Principal, error)
}
