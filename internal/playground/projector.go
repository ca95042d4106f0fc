// Package playground renders stored blueprints as WordPress Playground
// blueprint documents.
package playground

import (
	"encoding/json"

	"github.com/dszwed/wp-blueprints/internal/models"
)

const (
	SchemaURL         = "https://playground.wordpress.net/blueprint-schema.json"
	AnonymousAuthor   = "Anonymous"
	GeneratedCategory = "generated"

	// Every export lands on the dashboard with networking on, whatever the
	// stored blueprint says.
	DefaultLandingPage = "/wp-admin/"
	DefaultNetworking  = true
)

// Document is the Playground configuration file. Field order is the
// serialized key order.
type Document struct {
	Schema            string            `json:"$schema"`
	Meta              Meta              `json:"meta"`
	LandingPage       string            `json:"landingPage"`
	Login             bool              `json:"login"`
	PreferredVersions PreferredVersions `json:"preferredVersions"`
	Features          Features          `json:"features"`
	Steps             models.Steps      `json:"steps"`
}

type Meta struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Author      string   `json:"author"`
	Categories  []string `json:"categories"`
}

type PreferredVersions struct {
	PHP string `json:"php"`
	WP  string `json:"wp"`
}

type Features struct {
	Networking bool `json:"networking"`
}

// Project maps bp to a Playground document. owner may be nil for anonymous
// blueprints or when the owner cannot be resolved.
func Project(bp *models.Blueprint, owner *models.User) *Document {
	description := ""
	if bp.Description != nil {
		description = *bp.Description
	}

	author := AnonymousAuthor
	if !bp.IsAnonymous && owner != nil && owner.Id == bp.OwnerId && owner.Name != "" {
		author = owner.Name
	}

	steps := make(models.Steps, len(bp.Steps))
	copy(steps, bp.Steps)

	return &Document{
		Schema: SchemaURL,
		Meta: Meta{
			Title:       bp.Name,
			Description: description,
			Author:      author,
			Categories:  []string{GeneratedCategory},
		},
		LandingPage: DefaultLandingPage,
		Login:       true,
		PreferredVersions: PreferredVersions{
			PHP: bp.PHPVersion,
			WP:  bp.WordPressVersion,
		},
		Features: Features{Networking: DefaultNetworking},
		Steps:    steps,
	}
}

// Encode serializes the document. Equal documents encode to equal bytes.
func (d *Document) Encode() ([]byte, error) {
	return json.Marshal(d)
}
