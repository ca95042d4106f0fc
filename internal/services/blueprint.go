package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dszwed/wp-blueprints/internal/logger"
	"github.com/dszwed/wp-blueprints/internal/metrics"
	"github.com/dszwed/wp-blueprints/internal/models"
	"github.com/dszwed/wp-blueprints/internal/playground"
	"github.com/dszwed/wp-blueprints/internal/repository"
	"github.com/dszwed/wp-blueprints/internal/validation"
	"github.com/google/uuid"
)

// BlueprintService implements the blueprint lifecycle: creation, partial
// updates with ownership claims, soft deletion, listing and export.
type BlueprintService struct {
	repo      repository.BlueprintRepository
	users     repository.UserRepository
	stats     *StatisticsRecorder
	validator *validation.Validator
	metrics   *metrics.Metrics

	now   func() time.Time
	newID func() string
}

// NewBlueprintService creates a new blueprint service
func NewBlueprintService(
	repo repository.BlueprintRepository,
	users repository.UserRepository,
	stats *StatisticsRecorder,
	validator *validation.Validator,
	m *metrics.Metrics,
) *BlueprintService {
	return &BlueprintService{
		repo:      repo,
		users:     users,
		stats:     stats,
		validator: validator,
		metrics:   m,
		// Stored timestamps have millisecond precision
		now:   func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		newID: func() string { return uuid.New().String() },
	}
}

// Create validates raw and stores a new blueprint owned by actor, or an
// anonymous one when actor is nil
func (s *BlueprintService) Create(ctx context.Context, raw map[string]interface{}, actor *Actor) (bp *models.Blueprint, err error) {
	timer := metrics.NewTimer(s.metrics, "create")
	defer func() { timer.Stop(outcomeOf(err)) }()

	payload, err := s.validator.ValidateCreate(raw)
	if err != nil {
		return nil, err
	}

	bp = NewBlueprint(s.newID(), payload, actor, s.now())
	if err := s.repo.Create(ctx, bp); err != nil {
		return nil, fmt.Errorf("failed to create blueprint: %w", err)
	}

	s.rememberActor(ctx, actor)

	logger.WithFields(logger.Fields{
		"blueprint_id": bp.Id,
		"anonymous":    bp.IsAnonymous,
		"steps":        len(bp.Steps),
	}).Info("Blueprint created")

	return bp, nil
}

// Update applies the fields present in raw. The whole check-and-write runs
// atomically: lookup, permission, validation, merge, then the ownership
// claim when an identified actor edits an anonymous blueprint.
func (s *BlueprintService) Update(ctx context.Context, id string, raw map[string]interface{}, actor *Actor) (bp *models.Blueprint, err error) {
	timer := metrics.NewTimer(s.metrics, "update")
	defer func() { timer.Stop(outcomeOf(err)) }()

	claimed := false
	bp, err = s.repo.Update(ctx, id, func(current *models.Blueprint) (*models.Blueprint, error) {
		if current.IsDeleted() {
			return nil, ErrNotFound
		}
		if !CanModify(current, actor) {
			return nil, ErrForbidden
		}
		payload, err := s.validator.ValidateUpdate(raw)
		if err != nil {
			return nil, err
		}

		now := s.now()
		merged := Merge(current, payload, now)
		next := ClaimIfAnonymous(merged, actor, now)
		claimed = next != merged
		return next, nil
	})
	if err != nil {
		return nil, s.wrap("update", id, err)
	}

	s.rememberActor(ctx, actor)

	entry := logger.ForBlueprint(id)
	if claimed {
		entry.WithField("owner_id", bp.OwnerId).Info("Anonymous blueprint claimed")
	}
	entry.Info("Blueprint updated")

	return bp, nil
}

// Delete soft deletes a blueprint under the same permission rule as Update.
// Ownership never changes here.
func (s *BlueprintService) Delete(ctx context.Context, id string, actor *Actor) (err error) {
	timer := metrics.NewTimer(s.metrics, "delete")
	defer func() { timer.Stop(outcomeOf(err)) }()

	_, err = s.repo.Update(ctx, id, func(current *models.Blueprint) (*models.Blueprint, error) {
		if current.IsDeleted() {
			return nil, ErrNotFound
		}
		if !CanModify(current, actor) {
			return nil, ErrForbidden
		}
		now := s.now()
		current.DeletedAt = &now
		current.UpdatedAt = now
		return current, nil
	})
	if err != nil {
		return s.wrap("delete", id, err)
	}

	logger.ForBlueprint(id).Info("Blueprint deleted")
	return nil
}

// Get returns a blueprint, soft deleted ones included, with its statistics.
// Statistics are best effort and may be nil.
func (s *BlueprintService) Get(ctx context.Context, id string) (*models.Blueprint, *models.BlueprintStatistics, error) {
	bp, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, s.wrap("get", id, err)
	}

	stats, err := s.stats.Get(ctx, id)
	if err != nil {
		logger.ForBlueprint(id).WithError(err).Warn("Failed to load blueprint statistics")
		stats = nil
	}
	return bp, stats, nil
}

// List returns one page of live blueprints. Paging parameters are clamped.
func (s *BlueprintService) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	q = q.Normalize()

	page, err := s.repo.List(ctx, q.Filter, q.Page, q.PerPage)
	if err != nil {
		return nil, fmt.Errorf("failed to list blueprints: %w", err)
	}
	return &ListResult{Page: page, CurrentPage: q.Page, PerPage: q.PerPage}, nil
}

// Export renders a live blueprint as a Playground document and counts a view
func (s *BlueprintService) Export(ctx context.Context, id string) (doc *playground.Document, err error) {
	timer := metrics.NewTimer(s.metrics, "export")
	defer func() { timer.Stop(outcomeOf(err)) }()

	bp, err := s.live(ctx, id)
	if err != nil {
		return nil, err
	}

	doc = playground.Project(bp, s.owner(ctx, bp))
	s.stats.Record(bp.Id, models.StatisticView)
	return doc, nil
}

// RecordRun counts a Playground run of a live blueprint
func (s *BlueprintService) RecordRun(ctx context.Context, id string) error {
	if _, err := s.live(ctx, id); err != nil {
		return err
	}
	s.stats.Record(id, models.StatisticRun)
	return nil
}

func (s *BlueprintService) live(ctx context.Context, id string) (*models.Blueprint, error) {
	bp, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.wrap("get", id, err)
	}
	if bp.IsDeleted() {
		return nil, ErrNotFound
	}
	return bp, nil
}

// owner resolves the author of an owned blueprint; nil falls back to the
// anonymous author
func (s *BlueprintService) owner(ctx context.Context, bp *models.Blueprint) *models.User {
	if bp.IsAnonymous || bp.OwnerId == "" {
		return nil
	}
	user, err := s.users.Get(ctx, bp.OwnerId)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.ForBlueprint(bp.Id).WithError(err).Warn("Failed to resolve blueprint owner")
		}
		return nil
	}
	return user
}

// rememberActor keeps the display name of identified actors for exports
func (s *BlueprintService) rememberActor(ctx context.Context, actor *Actor) {
	if actor == nil || actor.Id == "" || actor.Name == "" {
		return
	}
	user := &models.User{Id: actor.Id, Name: actor.Name, UpdatedAt: s.now()}
	if err := s.users.Upsert(ctx, user); err != nil {
		logger.WithError(err).WithField("user_id", actor.Id).Warn("Failed to save user")
	}
}

// wrap keeps domain errors recognizable and adds context to the rest
func (s *BlueprintService) wrap(op, id string, err error) error {
	var verrs *validation.Errors
	switch {
	case errors.As(err, &verrs):
		return err
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrForbidden), errors.Is(err, ErrConflict):
		return err
	}
	logger.ForBlueprint(id).WithError(err).Errorf("Failed to %s blueprint", op)
	return fmt.Errorf("failed to %s blueprint %s: %w", op, id, err)
}
