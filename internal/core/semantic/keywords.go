package semantic

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/avoronov/metadoc/internal/core/domain"
)

const (
	defaultTopKeywords = 10
	mmrDiversity       = 0.5
	maxCandidates      = 30
	keywordInputCap    = 1024
)

// englishStopWords is the usual short list; candidates made entirely of
// these never become keywords.
var englishStopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a about above after again against all am an and any are as at be because
been before being below between both but by can did do does doing down during each few for from further had has
have having he her here hers herself him himself his how i if in into is it its itself just me more most my myself
no nor not now of off on once only or other our ours ourselves out over own same she should so some such than that
the their theirs them themselves then there these they this those through to too under until up very was we were
what when where which while who whom why will with you your yours yourself yourselves`) {
		englishStopWords[w] = struct{}{}
	}
}

// ExtractKeywords scores candidate 1-2-grams by embedding similarity to
// the whole document and re-ranks with maximal marginal relevance
// (diversity 0.5). It needs a live embedder; the caller degrades to an
// empty result when none is available.
func ExtractKeywords(ctx context.Context, embedder Embedder, text string, topK int) ([]domain.Keyword, error) {
	if topK <= 0 {
		topK = defaultTopKeywords
	}
	text = Truncate(text, keywordInputCap)

	candidates := candidatePhrases(text)
	if len(candidates) == 0 {
		return nil, nil
	}

	inputs := make([]string, 0, len(candidates)+1)
	inputs = append(inputs, text)
	inputs = append(inputs, candidates...)

	vectors, err := embedder.Embed(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("embed keyword candidates: %w", err)
	}
	if len(vectors) != len(inputs) {
		return nil, fmt.Errorf("embedding count mismatch: %d/%d", len(vectors), len(inputs))
	}

	docVec := vectors[0]
	candVecs := vectors[1:]

	relevance := make([]float64, len(candidates))
	for i, v := range candVecs {
		relevance[i] = cosine(docVec, v)
	}

	selected := mmrSelect(candidates, candVecs, relevance, topK, mmrDiversity)

	out := make([]domain.Keyword, 0, len(selected))
	for _, idx := range selected {
		out = append(out, domain.Keyword{Phrase: candidates[idx], Score: relevance[idx]})
	}
	return out, nil
}

// candidatePhrases builds distinct stop-word-free 1-2-grams ordered by
// frequency, capped to keep the embedding request bounded.
func candidatePhrases(text string) []string {
	tokens := Tokens(text)
	counts := make(map[string]int)

	for _, tok := range tokens {
		if len(tok) < 3 {
			continue
		}
		if _, stop := englishStopWords[tok]; stop {
			continue
		}
		counts[tok]++
	}
	for i := 0; i+1 < len(tokens); i++ {
		a, b := tokens[i], tokens[i+1]
		if len(a) < 3 || len(b) < 3 {
			continue
		}
		if _, stop := englishStopWords[a]; stop {
			continue
		}
		if _, stop := englishStopWords[b]; stop {
			continue
		}
		counts[a+" "+b]++
	}

	phrases := make([]string, 0, len(counts))
	for p := range counts {
		phrases = append(phrases, p)
	}
	sort.Slice(phrases, func(i, j int) bool {
		if counts[phrases[i]] != counts[phrases[j]] {
			return counts[phrases[i]] > counts[phrases[j]]
		}
		return phrases[i] < phrases[j]
	})
	if len(phrases) > maxCandidates {
		phrases = phrases[:maxCandidates]
	}
	return phrases
}

// mmrSelect repeatedly picks the candidate maximizing
// (1-diversity)*relevance - diversity*maxSimilarityToSelected.
func mmrSelect(candidates []string, vectors [][]float32, relevance []float64, topK int, diversity float64) []int {
	if topK > len(candidates) {
		topK = len(candidates)
	}

	selected := make([]int, 0, topK)
	remaining := make(map[int]struct{}, len(candidates))
	for i := range candidates {
		remaining[i] = struct{}{}
	}

	for len(selected) < topK && len(remaining) > 0 {
		best := -1
		bestScore := math.Inf(-1)
		for idx := range remaining {
			penalty := 0.0
			for _, sel := range selected {
				if sim := cosine(vectors[idx], vectors[sel]); sim > penalty {
					penalty = sim
				}
			}
			score := (1-diversity)*relevance[idx] - diversity*penalty
			if score > bestScore || (score == bestScore && (best == -1 || idx < best)) {
				bestScore = score
				best = idx
			}
		}
		selected = append(selected, best)
		delete(remaining, best)
	}
	return selected
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
