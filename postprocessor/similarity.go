package postprocessor

import "github.com/w-h-a/docchat/index"

const DefaultCutoff = 0.50

// SimilarityFilter drops retrieved chunks whose score falls below the
// cutoff. The result is an order-preserving subsequence, so applying
// the filter twice changes nothing.
type SimilarityFilter struct {
	cutoff float64
}

func NewSimilarityFilter(cutoff float64) *SimilarityFilter {
	return &SimilarityFilter{
		cutoff: cutoff,
	}
}

func (f *SimilarityFilter) Cutoff() float64 {
	return f.cutoff
}

func (f *SimilarityFilter) Apply(results []index.Result) []index.Result {
	filtered := make([]index.Result, 0, len(results))
	for _, result := range results {
		if result.Score >= f.cutoff {
			filtered = append(filtered, result)
		}
	}
	return filtered
}
