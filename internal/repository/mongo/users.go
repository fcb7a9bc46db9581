package mongo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/arklim/account-service/internal/core/domain"
	"github.com/arklim/account-service/internal/core/port"
	"github.com/arklim/account-service/internal/repository"
)

const defaultUsersCollection = "users"

// filterableFields maps Filter keys onto document fields.
var filterableFields = map[string]string{
	"id":          "_id",
	"username":    "username",
	"email":       "email",
	"role":        "role",
	"is_active":   "is_active",
	"is_verified": "is_verified",
}

// UserRepository implements port.UserRepository on a MongoDB collection.
type UserRepository struct {
	coll *mongo.Collection
}

// NewUserRepository binds the repository to collection in db.
func NewUserRepository(db *mongo.Database, collection string) *UserRepository {
	if strings.TrimSpace(collection) == "" {
		collection = defaultUsersCollection
	}
	return &UserRepository{coll: db.Collection(collection)}
}

// EnsureIndexes creates the unique username and email indexes.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("users_username_key"),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("users_email_key"),
		},
	})
	if err != nil {
		return classify("create user indexes", err)
	}
	return nil
}

// Create inserts a new user document.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	user.Email = domain.NormalizeEmail(user.Email)
	if user.Version <= 0 {
		user.Version = 1
	}

	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		return classify("insert user", err)
	}
	return nil
}

// GetByID retrieves a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string, opts ...port.FindOption) (*domain.User, error) {
	return r.FindOne(ctx, port.Filter{"id": id}, opts...)
}

// GetByEmail retrieves an active user by normalised email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.FindOne(ctx, port.Filter{"email": domain.NormalizeEmail(email)})
}

// FindOne returns the first document matching filter.
func (r *UserRepository) FindOne(ctx context.Context, filter port.Filter, opts ...port.FindOption) (*domain.User, error) {
	query, err := buildFilter(filter, port.ResolveFindOptions(opts...))
	if err != nil {
		return nil, err
	}

	var user domain.User
	if err := r.coll.FindOne(ctx, query).Decode(&user); err != nil {
		return nil, classify("find user", err)
	}
	return &user, nil
}

// FindAll returns every document matching filter, oldest first.
func (r *UserRepository) FindAll(ctx context.Context, filter port.Filter, opts ...port.FindOption) ([]domain.User, error) {
	query, err := buildFilter(filter, port.ResolveFindOptions(opts...))
	if err != nil {
		return nil, err
	}

	cursor, err := r.coll.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, classify("find users", err)
	}
	defer cursor.Close(ctx)

	users := make([]domain.User, 0)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, classify("decode users", err)
	}
	return users, nil
}

// Update replaces the mutable fields when user.Version matches the stored
// version, and increments the stored version.
func (r *UserRepository) Update(ctx context.Context, user domain.User) error {
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = time.Now().UTC()
	}

	query := bson.D{
		{Key: "_id", Value: user.ID},
		{Key: "version", Value: user.Version},
		{Key: "deleted_at", Value: nil},
	}

	res, err := r.coll.UpdateOne(ctx, query, bson.D{
		{Key: "$set", Value: mutableFields(user)},
		{Key: "$inc", Value: bson.D{{Key: "version", Value: 1}}},
	})
	if err != nil {
		return classify("update user", err)
	}
	if res.MatchedCount == 0 {
		return r.missOrStale(ctx, user.ID)
	}
	return nil
}

// UpdateLastLogin records a successful sign-in.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.touch(ctx, "update last login", id, bson.D{
		{Key: "last_login", Value: at},
		{Key: "updated_at", Value: at},
	})
}

// UpdatePassword replaces the stored digest.
func (r *UserRepository) UpdatePassword(ctx context.Context, id string, passwordHash string, updatedBy *string, at time.Time) error {
	if strings.TrimSpace(passwordHash) == "" {
		return errors.New("password hash is required")
	}
	return r.touch(ctx, "update password", id, bson.D{
		{Key: "password_hash", Value: passwordHash},
		{Key: "updated_by", Value: updatedBy},
		{Key: "updated_at", Value: at},
	})
}

// SoftDelete stamps deleted_at and deactivates the account.
func (r *UserRepository) SoftDelete(ctx context.Context, id string) error {
	now := time.Now().UTC()
	return r.touch(ctx, "soft delete user", id, bson.D{
		{Key: "deleted_at", Value: now},
		{Key: "is_active", Value: false},
		{Key: "updated_at", Value: now},
	})
}

func (r *UserRepository) touch(ctx context.Context, op, id string, set bson.D) error {
	res, err := r.coll.UpdateOne(ctx, liveByID(id), bson.D{
		{Key: "$set", Value: set},
		{Key: "$inc", Value: bson.D{{Key: "version", Value: 1}}},
	})
	if err != nil {
		return classify(op, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) missOrStale(ctx context.Context, id string) error {
	count, err := r.coll.CountDocuments(ctx, liveByID(id))
	if err != nil {
		return classify("count users", err)
	}
	if count == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrStaleVersion
}

func liveByID(id string) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "deleted_at", Value: nil},
	}
}

// buildFilter translates a port.Filter into a query document with a stable key order.
func buildFilter(filter port.Filter, opts port.FindOptions) (bson.D, error) {
	keys := make([]string, 0, len(filter))
	for key := range filter {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	query := make(bson.D, 0, len(keys)+1)
	for _, key := range keys {
		field, ok := filterableFields[key]
		if !ok {
			return nil, fmt.Errorf("unsupported user filter %q", key)
		}
		value := filter[key]
		if role, ok := value.(domain.Role); ok {
			value = string(role)
		}
		query = append(query, bson.E{Key: field, Value: value})
	}

	if !opts.IncludeDeleted {
		query = append(query, bson.E{Key: "deleted_at", Value: nil})
	}
	return query, nil
}

func mutableFields(user domain.User) bson.D {
	return bson.D{
		{Key: "username", Value: user.Username},
		{Key: "email", Value: domain.NormalizeEmail(user.Email)},
		{Key: "password_hash", Value: user.PasswordHash},
		{Key: "role", Value: string(user.Role)},
		{Key: "name", Value: user.Name},
		{Key: "phone_number", Value: user.PhoneNumber},
		{Key: "profile_picture", Value: user.ProfilePicture},
		{Key: "date_of_birth", Value: user.DateOfBirth},
		{Key: "address", Value: user.Address},
		{Key: "is_active", Value: user.IsActive},
		{Key: "is_verified", Value: user.IsVerified},
		{Key: "updated_at", Value: user.UpdatedAt},
		{Key: "updated_by", Value: user.UpdatedBy},
	}
}

func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repository.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %s: %v", repository.ErrConflict, op, err)
	case mongo.IsNetworkError(err), mongo.IsTimeout(err), errors.Is(err, mongo.ErrClientDisconnected):
		return fmt.Errorf("%w: %s: %v", repository.ErrUnavailable, op, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

var _ port.UserRepository = (*UserRepository)(nil)
