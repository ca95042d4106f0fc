package repository

import (
	"context"
	"time"

	"github.com/dszwed/wp-blueprints/internal/database"
	"github.com/dszwed/wp-blueprints/internal/models"
)

// StatisticsRepository defines the interface for blueprint statistics
type StatisticsRepository interface {
	Get(ctx context.Context, blueprintId string) (*models.BlueprintStatistics, error)
	Record(ctx context.Context, blueprintId string, kind models.StatisticKind, at time.Time) error
}

type statisticsStore interface {
	GetStatistics(ctx context.Context, blueprintId string) (*models.BlueprintStatistics, error)
	RecordEvent(ctx context.Context, blueprintId string, kind models.StatisticKind, at time.Time) error
}

var (
	_ statisticsStore = (*database.StatisticsOperations)(nil)
	_ statisticsStore = (*database.BoltStore)(nil)
)

type statisticsRepository struct {
	db statisticsStore
}

// NewStatisticsRepository creates a DynamoDB-backed statistics repository
func NewStatisticsRepository(db *database.StatisticsOperations) StatisticsRepository {
	return &statisticsRepository{db: db}
}

// NewBoltStatisticsRepository creates a BoltDB-backed statistics repository
func NewBoltStatisticsRepository(store *database.BoltStore) StatisticsRepository {
	return &statisticsRepository{db: store}
}

func (r *statisticsRepository) Get(ctx context.Context, blueprintId string) (*models.BlueprintStatistics, error) {
	return r.db.GetStatistics(ctx, blueprintId)
}

func (r *statisticsRepository) Record(ctx context.Context, blueprintId string, kind models.StatisticKind, at time.Time) error {
	return r.db.RecordEvent(ctx, blueprintId, kind, at)
}
