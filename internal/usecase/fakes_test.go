package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/arklim/account-service/internal/core/domain"
	"github.com/arklim/account-service/internal/core/port"
	"github.com/arklim/account-service/internal/infra/config"
	"github.com/arklim/account-service/internal/infra/security"
	"github.com/arklim/account-service/internal/repository"
)

var errBackendDown = errors.New("connection refused")

// memUsers is an in-memory UserRepository with optimistic versioning.
type memUsers struct {
	mu        sync.Mutex
	users     map[string]domain.User
	getErr    error
	updateErr error
}

func newMemUsers(users ...domain.User) *memUsers {
	repo := &memUsers{users: make(map[string]domain.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *memUsers) Create(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return repository.ErrConflict
		}
	}
	r.users[user.ID] = user
	return nil
}

func (r *memUsers) GetByID(_ context.Context, id string, _ ...port.FindOption) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	user, ok := r.users[id]
	if !ok || user.Deleted() {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	email = domain.NormalizeEmail(email)
	for _, user := range r.users {
		if user.Email == email && !user.Deleted() {
			u := user
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUsers) FindOne(ctx context.Context, filter port.Filter, opts ...port.FindOption) (*domain.User, error) {
	all, err := r.FindAll(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, repository.ErrNotFound
	}
	return &all[0], nil
}

func (r *memUsers) FindAll(_ context.Context, filter port.Filter, _ ...port.FindOption) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, user := range r.users {
		if id, ok := filter["id"]; ok && id != user.ID {
			continue
		}
		out = append(out, user)
	}
	return out, nil
}

func (r *memUsers) Update(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	stored, ok := r.users[user.ID]
	if !ok || stored.Deleted() {
		return repository.ErrNotFound
	}
	if stored.Version != user.Version {
		return repository.ErrStaleVersion
	}
	user.Version++
	r.users[user.ID] = user
	return nil
}

func (r *memUsers) SoftDelete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now().UTC()
	user.DeletedAt = &now
	user.IsActive = false
	user.Version++
	r.users[id] = user
	return nil
}

func (r *memUsers) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.LastLogin = &at
	user.UpdatedAt = at
	user.Version++
	r.users[id] = user
	return nil
}

func (r *memUsers) UpdatePassword(_ context.Context, id, passwordHash string, updatedBy *string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.UpdatedBy = updatedBy
	user.UpdatedAt = at
	user.Version++
	r.users[id] = user
	return nil
}

func (r *memUsers) get(id string) domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id]
}

// memAttempts counts attempts per key and ignores the window.
type memAttempts struct {
	mu       sync.Mutex
	counts   map[string]int64
	incErr   error
	resetErr error
}

func newMemAttempts() *memAttempts {
	return &memAttempts{counts: make(map[string]int64)}
}

func (c *memAttempts) Increment(_ context.Context, key string, _ time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.incErr != nil {
		return 0, c.incErr
	}
	c.counts[key]++
	return c.counts[key], nil
}

func (c *memAttempts) Reset(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resetErr != nil {
		return c.resetErr
	}
	delete(c.counts, key)
	return nil
}

func (c *memAttempts) count(key string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[key]
}

type memProfiles struct {
	mu        sync.Mutex
	entries   map[string]domain.User
	getErr    error
	setErr    error
	deleteErr error
}

func newMemProfiles() *memProfiles {
	return &memProfiles{entries: make(map[string]domain.User)}
}

func (c *memProfiles) Get(_ context.Context, userID string) (*domain.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	user, ok := c.entries[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (c *memProfiles) Set(_ context.Context, user domain.User, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[user.ID] = user
	return nil
}

func (c *memProfiles) Delete(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deleteErr != nil {
		return c.deleteErr
	}
	delete(c.entries, userID)
	return nil
}

func (c *memProfiles) cached(userID string) (domain.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	user, ok := c.entries[userID]
	return user, ok
}

// plainHasher keeps tests fast; digests are the password with a prefix.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) {
	return "plain$" + password, nil
}

func (plainHasher) Verify(password, encoded string) (bool, error) {
	digest, ok := strings.CutPrefix(encoded, "plain$")
	if !ok {
		return false, errors.New("unknown digest")
	}
	return digest == password, nil
}

type recordingEvents struct {
	mu         sync.Mutex
	registered []domain.UserRegisteredEvent
	loggedIn   []domain.UserLoggedInEvent
	passwords  []domain.PasswordChangedEvent
	profiles   []domain.ProfileUpdatedEvent
}

func (e *recordingEvents) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registered = append(e.registered, event)
	return nil
}

func (e *recordingEvents) PublishUserLoggedIn(_ context.Context, event domain.UserLoggedInEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loggedIn = append(e.loggedIn, event)
	return nil
}

func (e *recordingEvents) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.passwords = append(e.passwords, event)
	return nil
}

func (e *recordingEvents) PublishProfileUpdated(_ context.Context, event domain.ProfileUpdatedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profiles = append(e.profiles, event)
	return nil
}

type recordingMetrics struct {
	logins        map[port.LoginOutcome]int
	registrations map[bool]int
	cacheLookups  map[bool]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		logins:        make(map[port.LoginOutcome]int),
		registrations: make(map[bool]int),
		cacheLookups:  make(map[bool]int),
	}
}

func (m *recordingMetrics) ObserveLogin(outcome port.LoginOutcome) { m.logins[outcome]++ }

func (m *recordingMetrics) ObserveRegistration(success bool) { m.registrations[success]++ }

func (m *recordingMetrics) ObserveProfileCache(hit bool) { m.cacheLookups[hit]++ }

func testPolicy() port.PasswordPolicyValidator {
	return security.NewPasswordPolicy(config.PasswordPolicySettings{MinLength: 8})
}

func newTestIssuer() *security.TokenIssuer {
	issuer, err := security.NewTokenIssuer(security.TokenIssuerConfig{Secret: "test-secret", Issuer: "account-service"})
	if err != nil {
		panic(err)
	}
	return issuer
}

func seedUser(id, email, password string) domain.User {
	now := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	return domain.User{
		ID:           id,
		Username:     strings.Split(email, "@")[0],
		Email:        email,
		PasswordHash: "plain$" + password,
		Role:         domain.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
}
