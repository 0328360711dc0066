package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/avoronov/metadoc/internal/core/domain"
)

func (e *Extractor) extractDOCX(_ context.Context, content []byte, meta domain.FileMetadata) (string, domain.FileMetadata, error) {
	if props, err := readCoreProperties(content); err == nil {
		applyCoreProperties(&meta, props)
	} else {
		e.logger.Debug("docx core properties unavailable", "filename", meta.Filename, "error", err)
	}

	doc, err := docx.Parse(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		e.logger.Warn("docx parse failed", "filename", meta.Filename, "error", err)
		return "", meta, nil
	}

	// paragraph text first in document order, table rows appended after
	var paragraphs, tableRows []string
	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			if s := strings.TrimSpace(it.String()); s != "" {
				paragraphs = append(paragraphs, s)
			}
		case *docx.Table:
			for _, row := range it.TableRows {
				var cells []string
				for _, cell := range row.TableCells {
					var cellText []string
					for _, p := range cell.Paragraphs {
						if s := strings.TrimSpace(p.String()); s != "" {
							cellText = append(cellText, s)
						}
					}
					cells = append(cells, strings.Join(cellText, " "))
				}
				if row := strings.TrimSpace(strings.Join(cells, " | ")); row != "" {
					tableRows = append(tableRows, row)
				}
			}
		}
	}
	return strings.Join(append(paragraphs, tableRows...), "\n"), meta, nil
}

// coreProperties mirrors docProps/core.xml of an OOXML package.
type coreProperties struct {
	Title          string `xml:"title"`
	Creator        string `xml:"creator"`
	Subject        string `xml:"subject"`
	Keywords       string `xml:"keywords"`
	Description    string `xml:"description"`
	LastModifiedBy string `xml:"lastModifiedBy"`
	Revision       string `xml:"revision"`
	Category       string `xml:"category"`
	Created        string `xml:"created"`
	Modified       string `xml:"modified"`
}

func readCoreProperties(content []byte) (coreProperties, error) {
	var props coreProperties

	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return props, err
	}
	for _, f := range zr.File {
		if f.Name != "docProps/core.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return props, err
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return props, err
		}
		if err := xml.Unmarshal(raw, &props); err != nil {
			return props, err
		}
		return props, nil
	}
	return props, io.EOF
}

func applyCoreProperties(meta *domain.FileMetadata, props coreProperties) {
	meta.Title = props.Title
	meta.Author = props.Creator
	meta.Subject = props.Subject
	meta.Keywords = props.Keywords
	meta.Comments = props.Description
	meta.LastModifiedBy = props.LastModifiedBy
	meta.Revision = props.Revision
	meta.Category = props.Category
	meta.Created = props.Created
	meta.Modified = props.Modified
}
