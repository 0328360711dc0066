// Package dublincore maps extracted features and file metadata into the
// Dublin Core element subset. Every field resolves through an ordered
// fallback chain; missing data degrades to a documented default, never
// to an error.
package dublincore

import (
	"regexp"
	"strings"
	"time"

	"github.com/avoronov/metadoc/internal/core/domain"
)

const (
	defaultPublisher = "Automated Metadata Generation System"
	defaultType      = "Text"
	maxSubjects      = 15
	maxDescription   = 500
)

var (
	headingMarkers = regexp.MustCompile(`^#+\s*`)
	isoDate        = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	yearPattern    = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

// DefaultTypeByCategory maps genre labels to Dublin Core types. All the
// built-in genres are textual; the table exists so deployments can remap
// overridden label sets.
var DefaultTypeByCategory = map[string]string{
	"Technical Documentation": "Text",
	"Legal Document":          "Text",
	"Financial Report":        "Text",
	"Academic Paper":          "Text",
	"Medical Document":        "Text",
	"Business Report":         "Text",
	"Marketing Material":      "Text",
	"News Article":            "Text",
	"Educational Content":     "Text",
	"Research Paper":          "Text",
}

type Mapper struct {
	typeByCategory map[string]string
	now            func() time.Time
}

type Option func(*Mapper)

// WithTypeMapping overrides the genre to dc:type lookup table.
func WithTypeMapping(mapping map[string]string) Option {
	return func(m *Mapper) {
		if len(mapping) > 0 {
			m.typeByCategory = mapping
		}
	}
}

// WithClock fixes the clock used for the dc:date fallback.
func WithClock(now func() time.Time) Option {
	return func(m *Mapper) {
		if now != nil {
			m.now = now
		}
	}
}

func NewMapper(opts ...Option) *Mapper {
	m := &Mapper{
		typeByCategory: DefaultTypeByCategory,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Map is a pure function of (features, fileMeta).
func (m *Mapper) Map(features domain.ExtractedFeatures, fileMeta domain.FileMetadata) domain.DublinCoreRecord {
	return domain.DublinCoreRecord{
		Title:       m.title(features, fileMeta),
		Creator:     m.creator(features, fileMeta),
		Subject:     m.subject(features),
		Description: m.description(features),
		Publisher:   m.publisher(features, fileMeta),
		Date:        m.date(features, fileMeta),
		Type:        m.docType(features),
		Format:      m.format(fileMeta),
		Language:    "en",
		Identifier:  m.identifier(fileMeta),
		Rights:      "All rights reserved",
	}
}

// title: native title, then first markdown heading among key sections
// (stripped, >5 chars), then the cleaned filename, then a literal default.
func (m *Mapper) title(features domain.ExtractedFeatures, fileMeta domain.FileMetadata) string {
	if fileMeta.Title != "" {
		return fileMeta.Title
	}
	for _, section := range features.KeySections {
		if !strings.HasPrefix(section, "#") {
			continue
		}
		title := strings.TrimSpace(headingMarkers.ReplaceAllString(section, ""))
		if len(title) > 5 {
			return title
		}
	}
	if fileMeta.Filename != "" {
		name := fileMeta.Filename
		if idx := strings.LastIndex(name, "."); idx > 0 {
			name = name[:idx]
		}
		name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
		return titleCase(name)
	}
	return "Untitled Document"
}

func (m *Mapper) creator(features domain.ExtractedFeatures, fileMeta domain.FileMetadata) string {
	if fileMeta.Author != "" {
		return fileMeta.Author
	}
	if persons := features.Entities["PERSON"]; len(persons) > 0 {
		return persons[0]
	}
	return "Unknown"
}

// subject: top-10 keyword phrases, top-3 entities from a fixed label set,
// all classification labels; deduplicated, entries of <=2 chars dropped,
// capped at 15. Order within the union is implementation-defined.
func (m *Mapper) subject(features domain.ExtractedFeatures) []string {
	candidates := make([]string, 0, 32)

	keywords := features.Keywords
	if len(keywords) > 10 {
		keywords = keywords[:10]
	}
	for _, kw := range keywords {
		candidates = append(candidates, kw.Phrase)
	}

	for _, entityType := range []string{"ORG", "GPE", "LOC", "PRODUCT", "EVENT"} {
		values := features.Entities[entityType]
		if len(values) > 3 {
			values = values[:3]
		}
		candidates = append(candidates, values...)
	}

	candidates = append(candidates, features.Categories...)

	seen := make(map[string]struct{}, len(candidates))
	subjects := make([]string, 0, maxSubjects)
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if len(c) <= 2 {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		subjects = append(subjects, c)
		if len(subjects) == maxSubjects {
			break
		}
	}
	return subjects
}

func (m *Mapper) description(features domain.ExtractedFeatures) string {
	if len(features.Summary) > 20 {
		return features.Summary
	}
	if len(features.KeySections) > 0 {
		sections := features.KeySections
		if len(sections) > 2 {
			sections = sections[:2]
		}
		description := strings.Join(sections, " ")
		if runes := []rune(description); len(runes) > maxDescription {
			description = string(runes[:maxDescription]) + "..."
		}
		return description
	}
	return "No description available"
}

func (m *Mapper) publisher(features domain.ExtractedFeatures, fileMeta domain.FileMetadata) string {
	if fileMeta.Creator != "" {
		return fileMeta.Creator
	}
	if orgs := features.Entities["ORG"]; len(orgs) > 0 {
		return orgs[0]
	}
	return defaultPublisher
}

// date: first native date field containing YYYY-MM-DD, then the first
// 19xx/20xx year inside any DATE entity, then today.
func (m *Mapper) date(features domain.ExtractedFeatures, fileMeta domain.FileMetadata) string {
	for _, value := range []string{fileMeta.Created, fileMeta.Modified} {
		if value == "" {
			continue
		}
		if match := isoDate.FindString(value); match != "" {
			return match
		}
	}
	for _, dateEntity := range features.Entities["DATE"] {
		if year := yearPattern.FindString(dateEntity); year != "" {
			return year
		}
	}
	return m.now().Format("2006-01-02")
}

func (m *Mapper) docType(features domain.ExtractedFeatures) string {
	if len(features.Categories) > 0 {
		if mapped, ok := m.typeByCategory[features.Categories[0]]; ok {
			return mapped
		}
	}
	return defaultType
}

func (m *Mapper) format(fileMeta domain.FileMetadata) string {
	if fileMeta.Format != "" {
		return fileMeta.Format
	}
	return "application/octet-stream"
}

func (m *Mapper) identifier(fileMeta domain.FileMetadata) string {
	if fileMeta.Filename != "" {
		return fileMeta.Filename
	}
	return "unknown"
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		if len(runes) > 0 {
			runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
		}
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
