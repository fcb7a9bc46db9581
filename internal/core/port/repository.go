package port

import "context"

// Filter matches records whose fields equal the supplied values.
// Keys are the snake_case field names shared by every backend.
type Filter map[string]any

// FindOptions tunes read queries.
type FindOptions struct {
	IncludeDeleted bool
}

// FindOption mutates FindOptions.
type FindOption func(*FindOptions)

// IncludeDeleted makes reads return soft-deleted records as well.
func IncludeDeleted() FindOption {
	return func(o *FindOptions) {
		o.IncludeDeleted = true
	}
}

// ResolveFindOptions folds the supplied options into a FindOptions value.
func ResolveFindOptions(opts ...FindOption) FindOptions {
	var resolved FindOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&resolved)
		}
	}
	return resolved
}

// Repository is the persistence contract shared by every entity.
//
// Reads exclude soft-deleted records unless IncludeDeleted is passed.
// Update is optimistic: the entity's Version must match the stored one and the
// stored version is incremented on success.
type Repository[T any] interface {
	Create(ctx context.Context, entity T) error
	GetByID(ctx context.Context, id string, opts ...FindOption) (*T, error)
	FindOne(ctx context.Context, filter Filter, opts ...FindOption) (*T, error)
	FindAll(ctx context.Context, filter Filter, opts ...FindOption) ([]T, error)
	Update(ctx context.Context, entity T) error
	SoftDelete(ctx context.Context, id string) error
}
