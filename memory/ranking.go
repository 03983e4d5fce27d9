package memory

import (
	"sort"
	"strings"
)

// stopWords are excluded from query keyword extraction.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "from": true,
	"is": true, "was": true, "are": true, "were": true, "be": true,
	"been": true, "being": true, "have": true, "has": true, "had": true,
	"do": true, "does": true, "did": true, "will": true, "would": true,
	"could": true, "should": true, "may": true, "might": true, "can": true,
}

// ExtractKeywords extracts important keywords from a query.
func ExtractKeywords(query string) []string {
	words := strings.Fields(query)
	var keywords []string

	for _, word := range words {
		clean := strings.Trim(strings.ToLower(word), ".,!?;:'\"()[]{}")
		if len(clean) > 1 && !stopWords[clean] {
			keywords = append(keywords, clean)
		}
	}

	return keywords
}

// ScoreContent scores content against extracted keywords. Each matched
// keyword contributes its match fraction; repeated occurrences add a small
// frequency bonus so denser matches rank higher.
func ScoreContent(content string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}

	lower := strings.ToLower(content)
	matched := 0
	bonus := 0.0
	for _, kw := range keywords {
		n := strings.Count(lower, kw)
		if n > 0 {
			matched++
			bonus += float64(n-1) * 0.05
		}
	}
	if matched == 0 {
		return 0
	}

	return float64(matched)/float64(len(keywords)) + bonus
}

// RankResults sorts results by score descending and truncates to limit.
// Ties are broken by recency so fresher memories surface first.
func RankResults(results []Result, limit int) []Result {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// NormalizeScores normalizes scores to [0, 1] range
func NormalizeScores(results []Result) []Result {
	if len(results) == 0 {
		return results
	}

	minScore := results[0].Score
	maxScore := results[0].Score
	for _, r := range results {
		if r.Score < minScore {
			minScore = r.Score
		}
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}

	if maxScore > minScore {
		for i := range results {
			results[i].Score = (results[i].Score - minScore) / (maxScore - minScore)
		}
	} else {
		for i := range results {
			results[i].Score = 1.0
		}
	}

	return results
}
