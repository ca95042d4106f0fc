package database

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/dszwed/wp-blueprints/internal/models"
)

// blueprintRecord is the stored shape of a blueprint, shared by both
// backends. Steps are kept as their JSON encoding so the variant fields
// survive untouched.
type blueprintRecord struct {
	Id               string  `dynamodbav:"id" json:"id"`
	Name             string  `dynamodbav:"Name" json:"name"`
	Description      *string `dynamodbav:"Description,omitempty" json:"description,omitempty"`
	Status           string  `dynamodbav:"Status" json:"status"`
	PHPVersion       string  `dynamodbav:"PHPVersion" json:"phpVersion"`
	WordPressVersion string  `dynamodbav:"WordPressVersion" json:"wordpressVersion"`
	LandingPage      string  `dynamodbav:"LandingPage" json:"landingPage"`
	Networking       bool    `dynamodbav:"Networking" json:"networking"`
	Steps            string  `dynamodbav:"Steps" json:"steps"`
	OwnerId          string  `dynamodbav:"OwnerId,omitempty" json:"ownerId,omitempty"`
	IsAnonymous      bool    `dynamodbav:"IsAnonymous" json:"isAnonymous"`
	CreatedAt        int64   `dynamodbav:"CreatedAt" json:"createdAt"`
	UpdatedAt        int64   `dynamodbav:"UpdatedAt" json:"updatedAt"`
	DeletedAt        *int64  `dynamodbav:"DeletedAt,omitempty" json:"deletedAt,omitempty"`
	Version          int64   `dynamodbav:"Version" json:"version"`
}

func toBlueprintRecord(bp *models.Blueprint) (*blueprintRecord, error) {
	steps, err := json.Marshal(bp.Steps)
	if err != nil {
		return nil, fmt.Errorf("failed to encode steps: %w", err)
	}

	rec := &blueprintRecord{
		Id:               bp.Id,
		Name:             bp.Name,
		Description:      bp.Description,
		Status:           string(bp.Status),
		PHPVersion:       bp.PHPVersion,
		WordPressVersion: bp.WordPressVersion,
		LandingPage:      bp.LandingPage,
		Networking:       bp.Features.Networking,
		Steps:            string(steps),
		OwnerId:          bp.OwnerId,
		IsAnonymous:      bp.IsAnonymous,
		CreatedAt:        bp.CreatedAt.UnixMilli(),
		UpdatedAt:        bp.UpdatedAt.UnixMilli(),
		Version:          bp.Version,
	}
	if bp.DeletedAt != nil {
		ms := bp.DeletedAt.UnixMilli()
		rec.DeletedAt = &ms
	}
	return rec, nil
}

func (r *blueprintRecord) toModel() (*models.Blueprint, error) {
	var steps models.Steps
	if r.Steps != "" {
		if err := json.Unmarshal([]byte(r.Steps), &steps); err != nil {
			return nil, fmt.Errorf("failed to decode steps of %s: %w", r.Id, err)
		}
	}

	bp := &models.Blueprint{
		Id:               r.Id,
		Name:             r.Name,
		Description:      r.Description,
		Status:           models.Status(r.Status),
		PHPVersion:       r.PHPVersion,
		WordPressVersion: r.WordPressVersion,
		LandingPage:      r.LandingPage,
		Features:         models.Features{Networking: r.Networking},
		Steps:            steps,
		OwnerId:          r.OwnerId,
		IsAnonymous:      r.IsAnonymous,
		CreatedAt:        time.UnixMilli(r.CreatedAt).UTC(),
		UpdatedAt:        time.UnixMilli(r.UpdatedAt).UTC(),
		Version:          r.Version,
	}
	if r.DeletedAt != nil {
		t := time.UnixMilli(*r.DeletedAt).UTC()
		bp.DeletedAt = &t
	}
	return bp, nil
}

type statisticsRecord struct {
	BlueprintId  string `dynamodbav:"blueprint_id" json:"blueprintId"`
	ViewsCount   int64  `dynamodbav:"ViewsCount" json:"viewsCount"`
	RunsCount    int64  `dynamodbav:"RunsCount" json:"runsCount"`
	LastViewedAt *int64 `dynamodbav:"LastViewedAt,omitempty" json:"lastViewedAt,omitempty"`
	LastRunAt    *int64 `dynamodbav:"LastRunAt,omitempty" json:"lastRunAt,omitempty"`
}

func toStatisticsRecord(s *models.BlueprintStatistics) *statisticsRecord {
	return &statisticsRecord{
		BlueprintId:  s.BlueprintId,
		ViewsCount:   s.ViewsCount,
		RunsCount:    s.RunsCount,
		LastViewedAt: millisPtr(s.LastViewedAt),
		LastRunAt:    millisPtr(s.LastRunAt),
	}
}

func (r *statisticsRecord) toModel() *models.BlueprintStatistics {
	return &models.BlueprintStatistics{
		BlueprintId:  r.BlueprintId,
		ViewsCount:   r.ViewsCount,
		RunsCount:    r.RunsCount,
		LastViewedAt: timePtr(r.LastViewedAt),
		LastRunAt:    timePtr(r.LastRunAt),
	}
}

type userRecord struct {
	Id        string `dynamodbav:"id" json:"id"`
	Name      string `dynamodbav:"Name" json:"name"`
	UpdatedAt int64  `dynamodbav:"UpdatedAt" json:"updatedAt"`
}

func toUserRecord(u *models.User) *userRecord {
	return &userRecord{Id: u.Id, Name: u.Name, UpdatedAt: u.UpdatedAt.UnixMilli()}
}

func (r *userRecord) toModel() *models.User {
	return &models.User{Id: r.Id, Name: r.Name, UpdatedAt: time.UnixMilli(r.UpdatedAt).UTC()}
}

func millisPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func timePtr(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms).UTC()
	return &t
}

// pageOf sorts matches newest first and cuts out one page
func pageOf(matches []*models.Blueprint, page, perPage int) *models.BlueprintPage {
	slices.SortFunc(matches, models.NewerFirst)
	start, end := models.PageBounds(len(matches), page, perPage)
	items := make([]*models.Blueprint, end-start)
	copy(items, matches[start:end])
	return &models.BlueprintPage{Items: items, Total: len(matches)}
}
