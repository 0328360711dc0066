package semantic

import (
	"strings"
	"testing"
)

func TestIdentifyKeySectionsHeadings(t *testing.T) {
	text := "# One\nbody\n## Two\nmore body\n### Three\n#### Four\n##### Five\n###### Six\n"
	sections := IdentifyKeySections(text, nil)
	if len(sections) != 5 {
		t.Fatalf("expected 5 sections, got %d: %v", len(sections), sections)
	}
	if sections[0] != "# One" || sections[4] != "##### Five" {
		t.Fatalf("expected first five headings in document order, got %v", sections)
	}
}

func TestIdentifyKeySectionsEntityDensity(t *testing.T) {
	dense := "Acme Corporation met Globex Industries in Berlin to plan the yearly summit schedule."
	sparse := "This sentence is long enough to qualify but mentions no known entities whatsoever here."
	text := sparse + " " + dense

	entities := map[string][]string{
		"ORG": {"Acme Corporation", "Globex Industries"},
		"GPE": {"Berlin"},
	}
	sections := IdentifyKeySections(text, entities)
	if len(sections) == 0 {
		t.Fatalf("expected entity-dense sentences")
	}
	if !strings.Contains(sections[0], "Acme Corporation") {
		t.Fatalf("expected densest sentence first, got %q", sections[0])
	}
}

func TestIdentifyKeySectionsWithoutEntities(t *testing.T) {
	text := "Short lead-in. " +
		"The committee reviewed the proposed budget allocations over several working sessions. " +
		"Participants agreed to reconvene after the adjusted figures had been circulated internally. " +
		"A written summary of the outstanding questions was distributed to every regional office. " +
		"Final remarks were brief."
	sections := IdentifyKeySections(text, map[string][]string{})
	if len(sections) != 3 {
		t.Fatalf("expected top 3 long sentences for an entity-free document, got %d: %v", len(sections), sections)
	}
	if !strings.HasPrefix(sections[0], "The committee reviewed") {
		t.Fatalf("expected document-order ranking at equal score, got %q", sections[0])
	}
}

func TestIdentifyKeySectionsCombinedCap(t *testing.T) {
	var b strings.Builder
	b.WriteString("# H1\n## H2\n### H3\n#### H4\n")
	b.WriteString("Acme and Globex and Initech convened in Paris for the annual review period. ")
	b.WriteString("Acme alone published a short follow-up statement about the Paris review outcome. ")
	text := b.String()

	entities := map[string][]string{"ORG": {"Acme", "Globex", "Initech"}, "GPE": {"Paris"}}
	sections := IdentifyKeySections(text, entities)
	if len(sections) != 5 {
		t.Fatalf("expected combined cap of 5, got %d: %v", len(sections), sections)
	}
}

func TestSentencesAndTokens(t *testing.T) {
	sentences := Sentences("First sentence. Second one! A third? Trailing fragment")
	if len(sentences) != 4 {
		t.Fatalf("expected 4 sentences, got %v", sentences)
	}
	tokens := Tokens("Hello, World - 42 times")
	if len(tokens) != 4 || tokens[0] != "hello" || tokens[2] != "42" {
		t.Fatalf("unexpected tokens %v", tokens)
	}
}
