package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/arklim/account-service/internal/core/domain"
	"github.com/arklim/account-service/internal/infra/logger"
)

const changedBySelf = "self"

// ResetPasswordBySelf replaces the caller's password after checking the old one.
func (s *ProfileService) ResetPasswordBySelf(ctx context.Context, userID, oldPassword, newPassword string) error {
	ctx, span := tracer.Start(ctx, "ProfileService.ResetPasswordBySelf")
	defer span.End()

	if oldPassword == "" {
		return validationError("Old password is required")
	}

	user, err := s.deps.Users.GetByID(ctx, userID)
	if err != nil {
		return storeError("load user", err)
	}

	ok, err := s.deps.Hasher.Verify(oldPassword, user.PasswordHash)
	if err != nil {
		return internalError("verify password", err)
	}
	if !ok {
		return newError(KindInvalidCredentials, "Invalid old password", nil)
	}

	digest, err := s.hashNewPassword(newPassword, user.Username, user.Email)
	if err != nil {
		return err
	}

	return s.storePassword(ctx, user.ID, digest, userID, changedBySelf)
}

// ResetPasswordByAdmin sets a new password for target without the old one.
// An empty newPassword is replaced by a generated one, which is returned.
func (s *ProfileService) ResetPasswordByAdmin(ctx context.Context, actor domain.Principal, targetID, newPassword string) (string, error) {
	ctx, span := tracer.Start(ctx, "ProfileService.ResetPasswordByAdmin")
	defer span.End()

	if !actor.HasAnyRole(domain.RoleAdmin, domain.RoleSuper) {
		return "", newError(KindForbidden, "Forbidden", nil)
	}
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return "", newError(KindBadRequest, "userId is required", nil)
	}

	user, err := s.deps.Users.GetByID(ctx, targetID)
	if err != nil {
		return "", storeError("load user", err)
	}

	if newPassword == "" {
		if s.deps.Generator == nil {
			return "", internalError("generate password", errNoGenerator)
		}
		generated, err := s.deps.Generator(s.cfg.GeneratedPasswordLength)
		if err != nil {
			return "", internalError("generate password", err)
		}
		newPassword = generated
	} else if err := s.deps.Policy.Validate(newPassword, user.Username, user.Email); err != nil {
		return "", newError(KindValidation, err.Error(), err)
	}

	digest, err := s.deps.Hasher.Hash(newPassword)
	if err != nil {
		return "", internalError("hash password", err)
	}

	if err := s.storePassword(ctx, user.ID, digest, actor.ID, actor.ID); err != nil {
		return "", err
	}
	return newPassword, nil
}

// storePassword persists the digest, evicts the cached profile and emits the change event.
func (s *ProfileService) storePassword(ctx context.Context, userID, digest, updatedBy, changedBy string) error {
	now := s.now().UTC()
	if err := s.deps.Users.UpdatePassword(ctx, userID, digest, &updatedBy, now); err != nil {
		return storeError("update password", err)
	}

	if err := s.deps.Profiles.Delete(ctx, userID); err != nil {
		return cacheError("evict profile", err)
	}

	log := logger.WithContext(ctx, s.deps.Logger)
	log.Info("password reset", zap.String("user_id", userID), zap.String("changed_by", changedBy))

	if s.deps.Events != nil {
		event := domain.PasswordChangedEvent{UserID: userID, ChangedAt: now, ChangedBy: changedBy}
		if err := s.deps.Events.PublishPasswordChanged(ctx, event); err != nil {
			log.Warn("publish password event failed", zap.Error(err))
		}
	}
	return nil
}
