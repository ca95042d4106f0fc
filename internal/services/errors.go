package services

import (
	"errors"

	"github.com/dszwed/wp-blueprints/internal/metrics"
	"github.com/dszwed/wp-blueprints/internal/repository"
	"github.com/dszwed/wp-blueprints/internal/validation"
)

var (
	// ErrNotFound is returned for unknown and soft deleted blueprints
	ErrNotFound = repository.ErrNotFound
	// ErrForbidden is returned when the actor may not modify the blueprint
	ErrForbidden = errors.New("not allowed to modify this blueprint")
	// ErrConflict is returned when concurrent writers kept winning
	ErrConflict = repository.ErrConflict
)

// outcomeOf classifies err for metrics
func outcomeOf(err error) string {
	var verrs *validation.Errors
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.As(err, &verrs):
		return metrics.OutcomeInvalid
	case errors.Is(err, ErrForbidden):
		return metrics.OutcomeForbidden
	case errors.Is(err, ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, ErrConflict):
		return metrics.OutcomeConflict
	}
	return metrics.OutcomeError
}
