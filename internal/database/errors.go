package database

import (
	"errors"

	"github.com/dszwed/wp-blueprints/internal/models"
)

var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when a record already exists
	ErrAlreadyExists = errors.New("record already exists")
	// ErrConflict is returned when a record kept changing under a conditional write
	ErrConflict = errors.New("record was modified concurrently")
)

// MutateFunc receives a private copy of the stored blueprint and returns the
// value to save. Returning an error aborts the write and is passed through.
type MutateFunc func(current *models.Blueprint) (*models.Blueprint, error)
