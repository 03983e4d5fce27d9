package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected []string
	}{
		{"drops stop words", "what is the dark mode", []string{"what", "dark", "mode"}},
		{"lowercases and trims", "Dark Mode!", []string{"dark", "mode"}},
		{"empty query", "", nil},
		{"only stop words", "is the a of", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractKeywords(tt.query))
		})
	}
}

func TestScoreContent(t *testing.T) {
	keywords := ExtractKeywords("dark mode")

	full := ScoreContent("user prefers dark mode", keywords)
	partial := ScoreContent("the mode is set", keywords)
	none := ScoreContent("likes green tea", keywords)

	assert.Greater(t, full, partial)
	assert.Greater(t, partial, none)
	assert.Zero(t, none)
}

func TestScoreContentFrequencyBonus(t *testing.T) {
	keywords := []string{"mode"}
	once := ScoreContent("mode", keywords)
	twice := ScoreContent("mode mode", keywords)
	assert.Greater(t, twice, once)
}

func TestRankResults(t *testing.T) {
	now := time.Now()
	results := []Result{
		{Entry: Entry{ID: "low", CreatedAt: now}, Score: 0.1},
		{Entry: Entry{ID: "high", CreatedAt: now}, Score: 0.9},
		{Entry: Entry{ID: "mid-old", CreatedAt: now.Add(-time.Hour)}, Score: 0.5},
		{Entry: Entry{ID: "mid-new", CreatedAt: now}, Score: 0.5},
	}

	ranked := RankResults(results, 3)
	assert.Len(t, ranked, 3)
	assert.Equal(t, "high", ranked[0].ID)
	// Same score, newer first.
	assert.Equal(t, "mid-new", ranked[1].ID)
	assert.Equal(t, "mid-old", ranked[2].ID)
}

func TestNormalizeScores(t *testing.T) {
	results := NormalizeScores([]Result{
		{Score: 2.0},
		{Score: 4.0},
		{Score: 3.0},
	})
	assert.Equal(t, 0.0, results[0].Score)
	assert.Equal(t, 1.0, results[1].Score)
	assert.Equal(t, 0.5, results[2].Score)

	same := NormalizeScores([]Result{{Score: 3.0}, {Score: 3.0}})
	assert.Equal(t, 1.0, same[0].Score)
	assert.Equal(t, 1.0, same[1].Score)
}
