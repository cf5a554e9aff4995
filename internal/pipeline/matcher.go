package pipeline

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"almacen/backend/internal/domain"
)

// DefaultMatchThreshold is the minimum similarity score (0-100) for a
// catalog match to be accepted.
const DefaultMatchThreshold = 85.0

// Match pairs a catalog product with its similarity score against a
// detected name.
type Match struct {
	Product domain.Product
	Score   float64
}

// MatchProduct scores the detected name against every product in the
// catalog snapshot and returns the best match at or above the threshold,
// or nil when nothing qualifies. Comparison is case-insensitive. Ties keep
// the first maximal-scoring product in catalog order, so results are
// deterministic for a fixed snapshot.
func MatchProduct(detectedName string, threshold float64, catalog []domain.Product) *Match {
	needle := strings.ToLower(detectedName)

	var best *Match
	bestScore := 0.0
	for _, product := range catalog {
		score := similarityRatio(needle, strings.ToLower(product.Name))
		if score > bestScore && score >= threshold {
			bestScore = score
			best = &Match{Product: product, Score: score}
		}
	}
	return best
}

// similarityRatio is a normalized Levenshtein ratio in the 0-100 range.
func similarityRatio(a, b string) float64 {
	if a == b {
		return 100
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	return (1 - float64(dist)/float64(longest)) * 100
}
