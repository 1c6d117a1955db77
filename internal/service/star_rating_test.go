package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStarRating(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{"", "0"},
		{"reviewed by expert panel", "4"},
		{"REVIEWED BY EXPERT PANEL", "4"},
		{"practice guideline, reviewed by Expert Panel", "4"},
		{"criteria provided, multiple submitters, no conflicts", "3"},
		{"criteria provided, multiple submitters", "2"},
		{"criteria provided, conflicting classifications, multiple submitters", "2"},
		{"criteria provided, single submitter", "1"},
		{"no assertion criteria provided", "0"},
		{"no classification provided, no criteria", "0"},
		{"practice guideline", "N/A"},
		{"Unknown", "N/A"},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.want, StarRating(tt.status))
		})
	}
}

func TestStarRating_FirstRuleWins(t *testing.T) {
	assert.Equal(t, "4", StarRating("expert panel, single submitter"))
	assert.Equal(t, "3", StarRating("single submitter; multiple submitters, no conflicts"))
}

func TestStarRating_AlwaysDefinedValue(t *testing.T) {
	allowed := map[string]bool{"0": true, "1": true, "2": true, "3": true, "4": true, "N/A": true}
	for _, status := range []string{"", " ", "???", "expert", "panel", "multiple", "no conflict", "submitter"} {
		assert.True(t, allowed[StarRating(status)], "status %q", status)
	}
}
