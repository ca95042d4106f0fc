package models

import (
	"math"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBlueprintFilterMatches(t *testing.T) {
	deleted := time.Now()
	bp := &Blueprint{Status: StatusPublic, PHPVersion: "8.2", WordPressVersion: "6.8", OwnerId: "u1"}

	assert.True(t, BlueprintFilter{}.Matches(bp))
	assert.True(t, BlueprintFilter{Status: StatusPublic, PHPVersion: "8.2"}.Matches(bp))
	assert.False(t, BlueprintFilter{Status: StatusPrivate}.Matches(bp))
	assert.False(t, BlueprintFilter{WordPressVersion: "6.7"}.Matches(bp))
	assert.False(t, BlueprintFilter{OwnerId: "u2"}.Matches(bp))

	bp.DeletedAt = &deleted
	assert.False(t, BlueprintFilter{}.Matches(bp))
}

func TestNewerFirst(t *testing.T) {
	base := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	items := []*Blueprint{
		{Id: "a", CreatedAt: base},
		{Id: "c", CreatedAt: base.Add(time.Hour)},
		{Id: "b", CreatedAt: base},
	}
	slices.SortFunc(items, NewerFirst)

	ids := []string{items[0].Id, items[1].Id, items[2].Id}
	assert.Equal(t, []string{"c", "b", "a"}, ids)
}

func TestPageBounds(t *testing.T) {
	tests := []struct {
		total, page, perPage int
		start, end           int
	}{
		{25, 1, 10, 0, 10},
		{25, 3, 10, 20, 25},
		{25, 4, 10, 25, 25},
		{0, 1, 15, 0, 0},
		{30, 3, 15, 30, 30},
		{1, math.MaxInt, 100, 1, 1},
		{250, math.MaxInt / 50, 100, 250, 250},
		{5, 1, math.MaxInt, 0, 5},
		{5, 0, 10, 5, 5},
	}
	for _, tt := range tests {
		start, end := PageBounds(tt.total, tt.page, tt.perPage)
		assert.Equal(t, tt.start, start)
		assert.Equal(t, tt.end, end)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	desc := "original"
	bp := &Blueprint{Id: "x", Description: &desc, Steps: Steps{RunCodeStep{Code: "a"}}}

	c := bp.Clone()
	*c.Description = "changed"
	c.Steps[0] = RunCodeStep{Code: "b"}

	assert.Equal(t, "original", *bp.Description)
	assert.Equal(t, RunCodeStep{Code: "a"}, bp.Steps[0])
}

func TestToResponseAnonymous(t *testing.T) {
	resp := (&Blueprint{Id: "x", IsAnonymous: true}).ToResponse()
	assert.Nil(t, resp.OwnerId)
	assert.NotNil(t, resp.Steps)
	assert.True(t, resp.IsAnonymous)
}
