package models

import "time"

// StatisticKind names the counter an analytics event bumps
type StatisticKind string

const (
	StatisticView StatisticKind = "view"
	StatisticRun  StatisticKind = "run"
)

// BlueprintStatistics is maintained by the statistics recorder only
type BlueprintStatistics struct {
	BlueprintId  string
	ViewsCount   int64
	RunsCount    int64
	LastViewedAt *time.Time
	LastRunAt    *time.Time
}

// StatisticsResponse represents the statistics attached to a blueprint response
type StatisticsResponse struct {
	ViewsCount   int64      `json:"viewsCount"`
	RunsCount    int64      `json:"runsCount"`
	LastViewedAt *time.Time `json:"lastViewedAt"`
	LastRunAt    *time.Time `json:"lastRunAt"`
}

// ToResponse converts statistics to their DTO
func (s *BlueprintStatistics) ToResponse() StatisticsResponse {
	return StatisticsResponse{
		ViewsCount:   s.ViewsCount,
		RunsCount:    s.RunsCount,
		LastViewedAt: s.LastViewedAt,
		LastRunAt:    s.LastRunAt,
	}
}

// Apply returns a copy of s with one event of kind recorded at t
func (s BlueprintStatistics) Apply(kind StatisticKind, t time.Time) BlueprintStatistics {
	switch kind {
	case StatisticView:
		s.ViewsCount++
		s.LastViewedAt = &t
	case StatisticRun:
		s.RunsCount++
		s.LastRunAt = &t
	}
	return s
}
