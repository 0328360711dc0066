package domain

import "time"

type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// ValidatedContent is the output of content validation: the raw bytes
// together with their permanent content-addressed identity.
type ValidatedContent struct {
	Content      []byte
	Filename     string
	Extension    string
	DeclaredMIME string
	Size         int64
	Fingerprint  string
}

// FileMetadata carries format-native document properties. Fields a format
// cannot supply stay empty strings, never omitted.
type FileMetadata struct {
	Filename       string `json:"filename"`
	Format         string `json:"format"`
	Size           int64  `json:"size"`
	Title          string `json:"title"`
	Author         string `json:"author"`
	Subject        string `json:"subject"`
	Keywords       string `json:"keywords"`
	Comments       string `json:"comments"`
	Creator        string `json:"creator"`
	Producer       string `json:"producer"`
	Created        string `json:"created"`
	Modified       string `json:"modified"`
	LastModifiedBy string `json:"last_modified_by"`
	Revision       string `json:"revision"`
	Category       string `json:"category"`
	PageCount      int    `json:"page_count"`
}

type Keyword struct {
	Phrase string  `json:"phrase"`
	Score  float64 `json:"score"`
}

type Sentiment struct {
	Label string  `json:"label,omitempty"`
	Score float64 `json:"score,omitempty"`
}

// ExtractedFeatures is built exactly once per pipeline run and never
// mutated afterwards.
type ExtractedFeatures struct {
	Entities    map[string][]string `json:"entities"`
	Summary     string              `json:"summary"`
	Categories  []string            `json:"categories"`
	Keywords    []Keyword           `json:"keywords"`
	Sentiment   Sentiment           `json:"sentiment"`
	KeySections []string            `json:"key_sections"`
	TextLength  int                 `json:"text_length"`
	WordCount   int                 `json:"word_count"`
	ProcessedAt time.Time           `json:"processing_date"`
}

// DublinCoreRecord is the fixed 11-field subset this system populates.
// The dc: key names are part of the interchange contract.
type DublinCoreRecord struct {
	Title       string   `json:"dc:title"`
	Creator     string   `json:"dc:creator"`
	Subject     []string `json:"dc:subject"`
	Description string   `json:"dc:description"`
	Publisher   string   `json:"dc:publisher"`
	Date        string   `json:"dc:date"`
	Type        string   `json:"dc:type"`
	Format      string   `json:"dc:format"`
	Language    string   `json:"dc:language"`
	Identifier  string   `json:"dc:identifier"`
	Rights      string   `json:"dc:rights"`
}

// DocumentRecord is identified by its content fingerprint: byte-identical
// uploads must always resolve to the same record.
type DocumentRecord struct {
	ID           string            `json:"id"`
	Filename     string            `json:"filename"`
	Fingerprint  string            `json:"file_hash"`
	Size         int64             `json:"file_size"`
	Extension    string            `json:"file_extension"`
	DublinCore   DublinCoreRecord  `json:"dublin_core_metadata"`
	Features     ExtractedFeatures `json:"extracted_metadata"`
	FileMetadata FileMetadata      `json:"file_metadata"`
	Status       ProcessingStatus  `json:"processing_status"`
	Error        string            `json:"error,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}
