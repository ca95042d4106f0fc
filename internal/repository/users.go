package repository

import (
	"context"

	"github.com/dszwed/wp-blueprints/internal/database"
	"github.com/dszwed/wp-blueprints/internal/models"
)

// UserRepository defines the interface for user operations
type UserRepository interface {
	Upsert(ctx context.Context, user *models.User) error
	Get(ctx context.Context, id string) (*models.User, error)
}

type userStore interface {
	PutUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
}

var (
	_ userStore = (*database.UserOperations)(nil)
	_ userStore = (*database.BoltStore)(nil)
)

type userRepository struct {
	db userStore
}

// NewUserRepository creates a DynamoDB-backed user repository
func NewUserRepository(db *database.UserOperations) UserRepository {
	return &userRepository{db: db}
}

// NewBoltUserRepository creates a BoltDB-backed user repository
func NewBoltUserRepository(store *database.BoltStore) UserRepository {
	return &userRepository{db: store}
}

func (r *userRepository) Upsert(ctx context.Context, user *models.User) error {
	return r.db.PutUser(ctx, user)
}

func (r *userRepository) Get(ctx context.Context, id string) (*models.User, error) {
	return r.db.GetUser(ctx, id)
}
