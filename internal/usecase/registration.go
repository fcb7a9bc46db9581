package usecase

import (
	"context"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/account-service/internal/core/domain"
	"github.com/arklim/account-service/internal/core/port"
	"github.com/arklim/account-service/internal/infra/logger"
)

const maxUsernameLength = 64

// RegisterInput carries the fields accepted on sign-up.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// RegistrationDeps lists the collaborators of RegistrationService.
type RegistrationDeps struct {
	Users   port.UserRepository
	Hasher  port.PasswordHasher
	Policy  port.PasswordPolicyValidator
	Events  port.EventPublisher
	Metrics port.AuthMetrics
	Logger  *zap.Logger
}

// RegistrationService creates new accounts.
type RegistrationService struct {
	deps RegistrationDeps
	now  func() time.Time
}

// NewRegistrationService constructs a registration service.
func NewRegistrationService(deps RegistrationDeps) *RegistrationService {
	if deps.Metrics == nil {
		deps.Metrics = port.NoopAuthMetrics{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &RegistrationService{deps: deps, now: time.Now}
}

// Register validates the input and stores a new user with role user.
func (s *RegistrationService) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	ctx, span := tracer.Start(ctx, "RegistrationService.Register")
	defer span.End()

	user, err := s.register(ctx, in)
	s.deps.Metrics.ObserveRegistration(err == nil)
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *RegistrationService) register(ctx context.Context, in RegisterInput) (domain.User, error) {
	username, err := normalizeUsername(in.Username)
	if err != nil {
		return domain.User{}, err
	}
	email, err := normalizeEmailAddress(in.Email)
	if err != nil {
		return domain.User{}, err
	}
	if in.Password == "" {
		return domain.User{}, validationError("Password is required")
	}
	if err := s.deps.Policy.Validate(in.Password, username, email); err != nil {
		return domain.User{}, newError(KindValidation, err.Error(), err)
	}

	digest, err := s.deps.Hasher.Hash(in.Password)
	if err != nil {
		return domain.User{}, internalError("hash password", err)
	}

	now := s.now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: digest,
		Role:         domain.RoleUser,
		IsActive:     true,
		IsVerified:   false,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}

	if err := s.deps.Users.Create(ctx, user); err != nil {
		return domain.User{}, storeError("create user", err)
	}

	log := logger.WithContext(ctx, s.deps.Logger)
	log.Info("user registered", zap.String("user_id", user.ID), zap.String("email", logger.MaskEmail(email)))

	if s.deps.Events != nil {
		event := domain.UserRegisteredEvent{
			UserID:       user.ID,
			Username:     user.Username,
			Email:        user.Email,
			Role:         user.Role,
			RegisteredAt: now,
		}
		if err := s.deps.Events.PublishUserRegistered(ctx, event); err != nil {
			log.Warn("publish registration event failed", zap.Error(err))
		}
	}

	return user.Sanitized(), nil
}

func normalizeUsername(raw string) (string, error) {
	username := strings.TrimSpace(raw)
	switch {
	case username == "":
		return "", validationError("Username is required")
	case utf8.RuneCountInString(username) > maxUsernameLength:
		return "", validationError("Username must be at most 64 characters")
	case strings.ContainsAny(username, " \t\r\n@"):
		return "", validationError("Username must not contain whitespace or @")
	}
	return username, nil
}

func normalizeEmailAddress(raw string) (string, error) {
	email := domain.NormalizeEmail(raw)
	if email == "" {
		return "", validationError("Email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", validationError("Email is not a valid address")
	}
	return email, nil
}
