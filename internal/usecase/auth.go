package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/arklim/account-service/internal/core/domain"
	"github.com/arklim/account-service/internal/core/port"
	"github.com/arklim/account-service/internal/infra/logger"
	"github.com/arklim/account-service/internal/repository"
)

var tracer = otel.Tracer("github.com/arklim/account-service/internal/usecase")

// AuthConfig tunes the login throttle and the profile cache written on login.
type AuthConfig struct {
	MaxAttempts     int64
	AttemptWindow   time.Duration
	ProfileCacheTTL time.Duration
}

// DefaultAuthConfig allows ten failures per day and caches profiles for an hour.
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		MaxAttempts:     10,
		AttemptWindow:   24 * time.Hour,
		ProfileCacheTTL: time.Hour,
	}
}

// AuthDeps lists the collaborators of AuthService.
type AuthDeps struct {
	Users    port.UserRepository
	Attempts port.AttemptCounter
	Profiles port.ProfileCache
	Hasher   port.PasswordHasher
	Tokens   port.TokenIssuer
	Events   port.EventPublisher
	Metrics  port.AuthMetrics
	Logger   *zap.Logger
}

// AuthService runs the login flow and resolves bearer tokens to principals.
type AuthService struct {
	deps AuthDeps
	cfg  AuthConfig
	now  func() time.Time
}

// NewAuthService constructs an AuthService. Zero config values fall back to the defaults.
func NewAuthService(deps AuthDeps, cfg AuthConfig) *AuthService {
	defaults := DefaultAuthConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}
	if cfg.AttemptWindow <= 0 {
		cfg.AttemptWindow = defaults.AttemptWindow
	}
	if cfg.ProfileCacheTTL <= 0 {
		cfg.ProfileCacheTTL = defaults.ProfileCacheTTL
	}
	if deps.Metrics == nil {
		deps.Metrics = port.NoopAuthMetrics{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &AuthService{deps: deps, cfg: cfg, now: time.Now}
}

// WithClock overrides the time source.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

// LoginInput carries the credentials of a login request.
type LoginInput struct {
	Email    string
	Password string
	ClientIP string
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	Token domain.AccessToken
	User  domain.User
}

// Login authenticates by email and password.
//
// The attempt counter is only touched once the email resolves to an active
// account, and a password mismatch does not roll the increment back.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	result, outcome, err := s.login(ctx, in)
	s.deps.Metrics.ObserveLogin(outcome)
	span.SetAttributes(attribute.String("login.outcome", string(outcome)))
	if err != nil {
		if !KindOf(err).Exposed() {
			span.RecordError(err)
			span.SetStatus(codes.Error, "login failed")
		}
		return LoginResult{}, err
	}
	return result, nil
}

func (s *AuthService) login(ctx context.Context, in LoginInput) (LoginResult, port.LoginOutcome, error) {
	log := logger.WithContext(ctx, s.deps.Logger)
	email := domain.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return LoginResult{}, port.LoginInvalidCredentials, newError(KindBadRequest, "Email and password are required", nil)
	}

	user, err := s.deps.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return LoginResult{}, port.LoginInvalidCredentials, invalidCredentials()
		}
		return LoginResult{}, port.LoginFailed, storeError("lookup user", err)
	}
	if !user.IsActive {
		return LoginResult{}, port.LoginInvalidCredentials, invalidCredentials()
	}

	attempts, err := s.deps.Attempts.Increment(ctx, email, s.cfg.AttemptWindow)
	if err != nil {
		return LoginResult{}, port.LoginFailed, cacheError("increment login attempts", err)
	}
	if attempts > s.cfg.MaxAttempts {
		log.Warn("login blocked by attempt throttle",
			zap.String("email", logger.MaskEmail(email)),
			zap.Int64("attempts", attempts),
		)
		return LoginResult{}, port.LoginBlocked, newError(KindRiskControlBlocked, "Too many login attempts. Please try again later.", nil)
	}

	ok, err := s.deps.Hasher.Verify(in.Password, user.PasswordHash)
	if err != nil {
		return LoginResult{}, port.LoginFailed, internalError("verify password", err)
	}
	if !ok {
		return LoginResult{}, port.LoginInvalidCredentials, invalidCredentials()
	}

	if err := s.deps.Attempts.Reset(ctx, email); err != nil {
		return LoginResult{}, port.LoginFailed, cacheError("reset login attempts", err)
	}

	now := s.now().UTC()
	if err := s.deps.Users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return LoginResult{}, port.LoginFailed, storeError("update last login", err)
	}
	user.LastLogin = &now
	user.UpdatedAt = now
	user.Version++

	token, err := s.deps.Tokens.Issue(domain.Principal{ID: user.ID, Username: user.Username, Role: user.Role})
	if err != nil {
		return LoginResult{}, port.LoginFailed, internalError("issue token", err)
	}

	sanitized := user.Sanitized()
	if err := s.deps.Profiles.Set(ctx, sanitized, s.cfg.ProfileCacheTTL); err != nil {
		return LoginResult{}, port.LoginFailed, cacheError("cache profile", err)
	}

	s.publishLogin(ctx, log, user.ID, now, in.ClientIP)
	log.Info("user logged in", zap.String("user_id", user.ID))

	return LoginResult{Token: token, User: sanitized}, port.LoginSucceeded, nil
}

func (s *AuthService) publishLogin(ctx context.Context, log *zap.Logger, userID string, at time.Time, clientIP string) {
	if s.deps.Events == nil {
		return
	}

	event := domain.UserLoggedInEvent{UserID: userID, LoggedInAt: at}
	if ip := strings.TrimSpace(clientIP); ip != "" {
		event.ClientIP = &ip
	}
	if err := s.deps.Events.PublishUserLoggedIn(ctx, event); err != nil {
		log.Warn("publish login event failed", zap.Error(err))
	}
}

// ResolvePrincipal verifies a bearer token. Every verification failure yields
// the anonymous principal; access decisions are left to the role gate.
func (s *AuthService) ResolvePrincipal(ctx context.Context, rawToken string) domain.Principal {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return domain.AnonymousPrincipal()
	}

	principal, err := s.deps.Tokens.Verify(rawToken)
	if err != nil {
		logger.WithContext(ctx, s.deps.Logger).Debug("token rejected, continuing as guest", zap.Error(err))
		return domain.AnonymousPrincipal()
	}
	return principal
}
