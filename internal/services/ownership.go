package services

import (
	"time"

	"github.com/dszwed/wp-blueprints/internal/models"
)

// Actor is the caller behind a request. A nil *Actor is an anonymous caller.
type Actor struct {
	Id   string
	Name string
}

func (a *Actor) id() string {
	if a == nil {
		return ""
	}
	return a.Id
}

// CanModify reports whether actor may update or delete bp. Anonymous
// blueprints are open to everyone, owned ones only to their owner.
func CanModify(bp *models.Blueprint, actor *Actor) bool {
	if bp.IsAnonymous {
		return true
	}
	return bp.IsOwnedBy(actor.id())
}

// NewBlueprint builds the record for a validated create payload
func NewBlueprint(id string, p *models.BlueprintPayload, actor *Actor, now time.Time) *models.Blueprint {
	bp := &models.Blueprint{
		Id:          id,
		Status:      models.StatusPublic,
		IsAnonymous: true,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
	if p.Name != nil {
		bp.Name = *p.Name
	}
	if p.Description != nil {
		d := *p.Description
		bp.Description = &d
	}
	if p.Status != nil {
		bp.Status = *p.Status
	}
	if p.LandingPage != nil {
		bp.LandingPage = *p.LandingPage
	}
	if p.PreferredVersions != nil {
		bp.PHPVersion = p.PreferredVersions.PHP
		bp.WordPressVersion = p.PreferredVersions.WP
	}
	if p.Features != nil {
		bp.Features = *p.Features
	}
	bp.Steps = append(models.Steps{}, p.Steps...)

	if id := actor.id(); id != "" {
		bp.OwnerId = id
		bp.IsAnonymous = false
	}
	return bp
}

// Merge returns a new record holding bp's values overwritten by every field
// present in p. bp is left untouched.
func Merge(bp *models.Blueprint, p *models.BlueprintPayload, now time.Time) *models.Blueprint {
	next := bp.Clone()
	if p.Name != nil {
		next.Name = *p.Name
	}
	if p.DescriptionSet {
		next.Description = nil
		if p.Description != nil {
			d := *p.Description
			next.Description = &d
		}
	}
	if p.Status != nil {
		next.Status = *p.Status
	}
	if p.LandingPage != nil {
		next.LandingPage = *p.LandingPage
	}
	if p.PreferredVersions != nil {
		next.PHPVersion = p.PreferredVersions.PHP
		next.WordPressVersion = p.PreferredVersions.WP
	}
	if p.Features != nil {
		next.Features = *p.Features
	}
	if p.StepsSet {
		next.Steps = append(models.Steps{}, p.Steps...)
	}
	next.UpdatedAt = now
	return next
}

// ClaimIfAnonymous hands an anonymous blueprint to an identified actor. It
// returns bp itself when there is nothing to claim, otherwise a new record.
func ClaimIfAnonymous(bp *models.Blueprint, actor *Actor, now time.Time) *models.Blueprint {
	id := actor.id()
	if !bp.IsAnonymous || id == "" {
		return bp
	}
	claimed := bp.Clone()
	claimed.OwnerId = id
	claimed.IsAnonymous = false
	claimed.UpdatedAt = now
	return claimed
}
