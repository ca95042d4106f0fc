package models

import "time"

// PreferredVersions is the nested version pair of a payload
type PreferredVersions struct {
	PHP string
	WP  string
}

// BlueprintPayload is a validated create or update payload. Nil pointers
// (and false *Set flags) mark fields that were absent from the request.
type BlueprintPayload struct {
	Name              *string
	Description       *string
	DescriptionSet    bool // true when description was sent, even as null
	Status            *Status
	LandingPage       *string
	PreferredVersions *PreferredVersions
	Features          *Features
	Steps             Steps
	StepsSet          bool
}

// FeaturesResponse is the JSON shape of Features
type FeaturesResponse struct {
	Networking bool `json:"networking"`
}

// BlueprintResponse represents the response structure for a single blueprint
type BlueprintResponse struct {
	Id               string           `json:"id"`
	Name             string           `json:"name"`
	Description      *string          `json:"description"`
	Status           Status           `json:"status"`
	PHPVersion       string           `json:"phpVersion"`
	WordPressVersion string           `json:"wordpressVersion"`
	LandingPage      string           `json:"landingPage"`
	Features         FeaturesResponse `json:"features"`
	Steps            Steps            `json:"steps"`
	OwnerId          *string          `json:"ownerId"`
	IsAnonymous      bool             `json:"isAnonymous"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// BlueprintDetailResponse adds audit and statistics data to a single record
type BlueprintDetailResponse struct {
	BlueprintResponse
	DeletedAt  *time.Time          `json:"deletedAt"`
	Statistics *StatisticsResponse `json:"statistics"`
}

// PageMeta describes the page returned by a listing
type PageMeta struct {
	CurrentPage int `json:"currentPage"`
	PerPage     int `json:"perPage"`
	Total       int `json:"total"`
}

// BlueprintListResponse represents the response structure for listing blueprints
type BlueprintListResponse struct {
	Data []BlueprintResponse `json:"data"`
	Meta PageMeta            `json:"meta"`
}

// ToResponse converts a domain Blueprint to a BlueprintResponse DTO
func (b *Blueprint) ToResponse() BlueprintResponse {
	steps := b.Steps
	if steps == nil {
		steps = Steps{}
	}

	var owner *string
	if b.OwnerId != "" {
		id := b.OwnerId
		owner = &id
	}

	return BlueprintResponse{
		Id:               b.Id,
		Name:             b.Name,
		Description:      b.Description,
		Status:           b.Status,
		PHPVersion:       b.PHPVersion,
		WordPressVersion: b.WordPressVersion,
		LandingPage:      b.LandingPage,
		Features:         FeaturesResponse{Networking: b.Features.Networking},
		Steps:            steps,
		OwnerId:          owner,
		IsAnonymous:      b.IsAnonymous,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
}

// ToDetailResponse converts a domain Blueprint and its statistics (may be nil)
func (b *Blueprint) ToDetailResponse(stats *BlueprintStatistics) BlueprintDetailResponse {
	resp := BlueprintDetailResponse{
		BlueprintResponse: b.ToResponse(),
		DeletedAt:         b.DeletedAt,
	}
	if stats != nil {
		s := stats.ToResponse()
		resp.Statistics = &s
	}
	return resp
}

// NewListResponse converts a page of blueprints to the list DTO
func NewListResponse(page *BlueprintPage, currentPage, perPage int) BlueprintListResponse {
	data := make([]BlueprintResponse, 0, len(page.Items))
	for _, b := range page.Items {
		data = append(data, b.ToResponse())
	}
	return BlueprintListResponse{
		Data: data,
		Meta: PageMeta{
			CurrentPage: currentPage,
			PerPage:     perPage,
			Total:       page.Total,
		},
	}
}
