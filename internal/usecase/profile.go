package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/account-service/internal/core/domain"
	"github.com/arklim/account-service/internal/core/port"
	"github.com/arklim/account-service/internal/infra/logger"
	"github.com/arklim/account-service/internal/repository"
)

// PasswordGenerator produces a random password of the requested length.
type PasswordGenerator func(length int) (string, error)

// ProfileConfig tunes the profile cache and generated passwords.
type ProfileConfig struct {
	CacheTTL                time.Duration
	GeneratedPasswordLength int
}

// ProfileDeps lists the collaborators of ProfileService.
type ProfileDeps struct {
	Users     port.UserRepository
	Profiles  port.ProfileCache
	Hasher    port.PasswordHasher
	Policy    port.PasswordPolicyValidator
	Generator PasswordGenerator
	Events    port.EventPublisher
	Metrics   port.AuthMetrics
	Logger    *zap.Logger
}

// ProfileService serves profile reads through the cache and keeps the cache
// coherent with every write.
type ProfileService struct {
	deps ProfileDeps
	cfg  ProfileConfig
	now  func() time.Time
}

// NewProfileService constructs a ProfileService.
func NewProfileService(deps ProfileDeps, cfg ProfileConfig) *ProfileService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.GeneratedPasswordLength <= 0 {
		cfg.GeneratedPasswordLength = 8
	}
	if deps.Metrics == nil {
		deps.Metrics = port.NoopAuthMetrics{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &ProfileService{deps: deps, cfg: cfg, now: time.Now}
}

// GetProfile returns the user, preferring the cached snapshot. A failing cache
// read falls through to the store.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (domain.User, error) {
	ctx, span := tracer.Start(ctx, "ProfileService.GetProfile")
	defer span.End()

	log := logger.WithContext(ctx, s.deps.Logger)
	if strings.TrimSpace(userID) == "" {
		return domain.User{}, newError(KindUnauthorized, "Authentication required", nil)
	}

	cached, err := s.deps.Profiles.Get(ctx, userID)
	switch {
	case err == nil:
		s.deps.Metrics.ObserveProfileCache(true)
		return *cached, nil
	case errors.Is(err, repository.ErrNotFound):
		s.deps.Metrics.ObserveProfileCache(false)
	default:
		s.deps.Metrics.ObserveProfileCache(false)
		log.Warn("profile cache read failed, reading from store", zap.String("user_id", userID), zap.Error(err))
	}

	user, err := s.deps.Users.GetByID(ctx, userID)
	if err != nil {
		return domain.User{}, storeError("load profile", err)
	}

	sanitized := user.Sanitized()
	if err := s.deps.Profiles.Set(ctx, sanitized, s.cfg.CacheTTL); err != nil {
		log.Warn("profile cache populate failed", zap.String("user_id", userID), zap.Error(err))
	}
	return sanitized, nil
}

// UpdateProfile applies patch to the caller's record and refreshes the cache
// before returning.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, patch domain.ProfilePatch) (domain.User, error) {
	ctx, span := tracer.Start(ctx, "ProfileService.UpdateProfile")
	defer span.End()

	if patch.Empty() {
		return domain.User{}, validationError("No profile fields to update")
	}

	user, err := s.deps.Users.GetByID(ctx, userID)
	if err != nil {
		return domain.User{}, storeError("load profile", err)
	}

	fields, err := s.applyPatch(user, patch)
	if err != nil {
		return domain.User{}, err
	}

	now := s.now().UTC()
	user.UpdatedAt = now
	user.UpdatedBy = &userID

	if err := s.deps.Users.Update(ctx, *user); err != nil {
		return domain.User{}, storeError("update profile", err)
	}
	user.Version++

	sanitized := user.Sanitized()
	if err := s.refreshCache(ctx, sanitized); err != nil {
		return domain.User{}, err
	}

	if s.deps.Events != nil {
		event := domain.ProfileUpdatedEvent{UserID: user.ID, Fields: fields, Version: user.Version, UpdatedAt: now}
		if err := s.deps.Events.PublishProfileUpdated(ctx, event); err != nil {
			logger.WithContext(ctx, s.deps.Logger).Warn("publish profile event failed", zap.Error(err))
		}
	}

	return sanitized, nil
}

// applyPatch mutates user in place and returns the names of the changed fields.
func (s *ProfileService) applyPatch(user *domain.User, patch domain.ProfilePatch) ([]string, error) {
	fields := make([]string, 0, 7)

	if patch.Username != nil {
		username, err := normalizeUsername(*patch.Username)
		if err != nil {
			return nil, err
		}
		user.Username = username
		fields = append(fields, "username")
	}
	if patch.Email != nil {
		email, err := normalizeEmailAddress(*patch.Email)
		if err != nil {
			return nil, err
		}
		user.Email = email
		fields = append(fields, "email")
	}
	if patch.Name != nil {
		user.Name = optionalString(*patch.Name)
		fields = append(fields, "name")
	}
	if patch.PhoneNumber != nil {
		user.PhoneNumber = optionalString(*patch.PhoneNumber)
		fields = append(fields, "phone_number")
	}
	if patch.ProfilePicture != nil {
		user.ProfilePicture = optionalString(*patch.ProfilePicture)
		fields = append(fields, "profile_picture")
	}
	if patch.DateOfBirth != nil {
		dob := patch.DateOfBirth.UTC()
		if dob.After(s.now()) {
			return nil, validationError("Date of birth must be in the past")
		}
		user.DateOfBirth = &dob
		fields = append(fields, "date_of_birth")
	}
	if patch.Address != nil {
		user.Address = optionalString(*patch.Address)
		fields = append(fields, "address")
	}

	return fields, nil
}

func (s *ProfileService) hashNewPassword(password string, userInputs ...string) (string, error) {
	if password == "" {
		return "", validationError("New password is required")
	}
	if err := s.deps.Policy.Validate(password, userInputs...); err != nil {
		return "", newError(KindValidation, err.Error(), err)
	}
	digest, err := s.deps.Hasher.Hash(password)
	if err != nil {
		return "", internalError("hash password", err)
	}
	return digest, nil
}

// refreshCache overwrites the cached snapshot. When the overwrite fails the
// entry is evicted instead; only when both fail is the write reported.
func (s *ProfileService) refreshCache(ctx context.Context, user domain.User) error {
	setErr := s.deps.Profiles.Set(ctx, user, s.cfg.CacheTTL)
	if setErr == nil {
		return nil
	}
	if err := s.deps.Profiles.Delete(ctx, user.ID); err != nil {
		return cacheError("refresh profile cache", errors.Join(setErr, err))
	}
	logger.WithContext(ctx, s.deps.Logger).Warn("profile cache overwrite failed, entry evicted", zap.Error(setErr))
	return nil
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
