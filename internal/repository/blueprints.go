package repository

import (
	"context"

	"github.com/dszwed/wp-blueprints/internal/database"
	"github.com/dszwed/wp-blueprints/internal/models"
)

// Re-export errors from database package so callers need not import it
var (
	ErrNotFound      = database.ErrNotFound
	ErrAlreadyExists = database.ErrAlreadyExists
	ErrConflict      = database.ErrConflict
)

// MutateFunc computes the value saved by BlueprintRepository.Update
type MutateFunc = database.MutateFunc

// BlueprintRepository defines the interface for blueprint operations
type BlueprintRepository interface {
	Create(ctx context.Context, bp *models.Blueprint) error
	// Get returns soft deleted blueprints too
	Get(ctx context.Context, id string) (*models.Blueprint, error)
	// Update atomically replaces the blueprint with the result of mutate
	Update(ctx context.Context, id string, mutate MutateFunc) (*models.Blueprint, error)
	// List returns one page of live blueprints matching filter, newest first
	List(ctx context.Context, filter models.BlueprintFilter, page, perPage int) (*models.BlueprintPage, error)
}

// blueprintStore is implemented by both storage backends
type blueprintStore interface {
	CreateBlueprint(ctx context.Context, bp *models.Blueprint) error
	GetBlueprint(ctx context.Context, id string) (*models.Blueprint, error)
	UpdateBlueprint(ctx context.Context, id string, mutate database.MutateFunc) (*models.Blueprint, error)
	ListBlueprints(ctx context.Context, filter models.BlueprintFilter, page, perPage int) (*models.BlueprintPage, error)
}

var (
	_ blueprintStore = (*database.BlueprintOperations)(nil)
	_ blueprintStore = (*database.BoltStore)(nil)
)

type blueprintRepository struct {
	db blueprintStore
}

// NewBlueprintRepository creates a DynamoDB-backed blueprint repository
func NewBlueprintRepository(db *database.BlueprintOperations) BlueprintRepository {
	return &blueprintRepository{db: db}
}

// NewBoltBlueprintRepository creates a BoltDB-backed blueprint repository
func NewBoltBlueprintRepository(store *database.BoltStore) BlueprintRepository {
	return &blueprintRepository{db: store}
}

// Create stores a new blueprint
func (r *blueprintRepository) Create(ctx context.Context, bp *models.Blueprint) error {
	return r.db.CreateBlueprint(ctx, bp)
}

// Get retrieves a blueprint by ID
func (r *blueprintRepository) Get(ctx context.Context, id string) (*models.Blueprint, error) {
	return r.db.GetBlueprint(ctx, id)
}

// Update runs mutate against the stored blueprint and saves the result
func (r *blueprintRepository) Update(ctx context.Context, id string, mutate MutateFunc) (*models.Blueprint, error) {
	return r.db.UpdateBlueprint(ctx, id, mutate)
}

// List retrieves one page of matching blueprints
func (r *blueprintRepository) List(ctx context.Context, filter models.BlueprintFilter, page, perPage int) (*models.BlueprintPage, error) {
	return r.db.ListBlueprints(ctx, filter, page, perPage)
}
