package semantic

import (
	"regexp"
	"sort"
	"strings"
)

const (
	maxKeySections      = 5
	maxHeadingSections  = 5
	maxDenseSentences   = 3
	minSentenceLength   = 50
)

var headingPattern = regexp.MustCompile(`(?m)^(#{1,6}\s+.+)$`)

// IdentifyKeySections combines two strategies: markdown-style headings in
// document order, then sentences ranked by entity density. The combined
// result is capped at 5 entries.
func IdentifyKeySections(text string, entities map[string][]string) []string {
	sections := make([]string, 0, maxKeySections)

	headings := headingPattern.FindAllString(text, -1)
	if len(headings) > maxHeadingSections {
		headings = headings[:maxHeadingSections]
	}
	sections = append(sections, headings...)

	sections = append(sections, entityDenseSentences(text, entities)...)
	if len(sections) > maxKeySections {
		sections = sections[:maxKeySections]
	}
	return sections
}

type scoredSentence struct {
	text  string
	score float64
}

func entityDenseSentences(text string, entities map[string][]string) []string {
	surfaces := make([]string, 0, 16)
	for _, values := range entities {
		surfaces = append(surfaces, values...)
	}

	// Long sentences stay in the ranking even without entity hits, at score
	// zero, so entity-free documents still surface candidate sections.
	var scored []scoredSentence
	for _, sentence := range Sentences(text) {
		if len(sentence) <= minSentenceLength {
			continue
		}
		hits := 0
		for _, surface := range surfaces {
			if strings.Contains(sentence, surface) {
				hits++
			}
		}
		tokens := len(Tokens(sentence))
		if tokens == 0 {
			tokens = 1
		}
		scored = append(scored, scoredSentence{
			text:  strings.TrimSpace(sentence),
			score: float64(hits) / float64(tokens),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > maxDenseSentences {
		scored = scored[:maxDenseSentences]
	}

	out := make([]string, 0, len(scored))
	for _, s := range scored {
		out = append(out, s.text)
	}
	return out
}
