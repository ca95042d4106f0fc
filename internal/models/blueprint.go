package models

import "time"

// Status controls whether a blueprint shows up for everyone
type Status string

const (
	StatusPublic  Status = "public"
	StatusPrivate Status = "private"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	return s == StatusPublic || s == StatusPrivate
}

// Features toggles Playground runtime features
type Features struct {
	Networking bool
}

// Blueprint represents the domain model for a stored blueprint
// This is a database-agnostic business entity
type Blueprint struct {
	Id               string
	Name             string
	Description      *string
	Status           Status
	PHPVersion       string
	WordPressVersion string
	LandingPage      string
	Features         Features
	Steps            Steps
	OwnerId          string // empty for anonymous blueprints
	IsAnonymous      bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
	Version          int64 // bumped on every write, used for conditional saves
}

// IsDeleted reports whether the blueprint was soft deleted
func (b *Blueprint) IsDeleted() bool {
	return b.DeletedAt != nil
}

// IsOwnedBy reports whether userId owns the blueprint
func (b *Blueprint) IsOwnedBy(userId string) bool {
	return !b.IsAnonymous && userId != "" && b.OwnerId == userId
}

// Clone returns a copy that shares no slices or pointers with b.
// Step values are treated as immutable and are not copied.
func (b *Blueprint) Clone() *Blueprint {
	c := *b
	if b.Description != nil {
		d := *b.Description
		c.Description = &d
	}
	if b.DeletedAt != nil {
		t := *b.DeletedAt
		c.DeletedAt = &t
	}
	if b.Steps != nil {
		c.Steps = make(Steps, len(b.Steps))
		copy(c.Steps, b.Steps)
	}
	return &c
}

// BlueprintFilter is a conjunction of exact-match constraints; empty fields
// do not constrain.
type BlueprintFilter struct {
	Status           Status
	PHPVersion       string
	WordPressVersion string
	OwnerId          string
}

// Matches reports whether b satisfies every constraint of f. Soft deleted
// blueprints never match.
func (f BlueprintFilter) Matches(b *Blueprint) bool {
	if b.IsDeleted() {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.PHPVersion != "" && b.PHPVersion != f.PHPVersion {
		return false
	}
	if f.WordPressVersion != "" && b.WordPressVersion != f.WordPressVersion {
		return false
	}
	if f.OwnerId != "" && b.OwnerId != f.OwnerId {
		return false
	}
	return true
}

// BlueprintPage is one page of a filtered listing
type BlueprintPage struct {
	Items []*Blueprint
	Total int
}

// NewerFirst orders blueprints by creation time descending, breaking ties by
// id descending so pages are stable.
func NewerFirst(a, b *Blueprint) int {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	}
	switch {
	case a.Id > b.Id:
		return -1
	case a.Id < b.Id:
		return 1
	}
	return 0
}

// PageBounds returns the slice bounds of page (1-based) over total items.
// Pages past the end yield an empty range at total.
func PageBounds(total, page, perPage int) (int, int) {
	if page < 1 || perPage < 1 {
		return total, total
	}
	// Compare page counts first so huge pages never overflow the multiply
	pages := total / perPage
	if total%perPage != 0 {
		pages++
	}
	if page-1 >= pages {
		return total, total
	}
	start := (page - 1) * perPage
	end := start + perPage
	if end > total {
		end = total
	}
	return start, end
}
