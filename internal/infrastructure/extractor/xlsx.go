package extractor

import (
	"bytes"
	"context"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/avoronov/metadoc/internal/core/domain"
)

func (e *Extractor) extractXLSX(_ context.Context, content []byte, meta domain.FileMetadata) (string, domain.FileMetadata, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		e.logger.Warn("xlsx parse failed", "filename", meta.Filename, "error", err)
		return "", meta, nil
	}
	defer func() {
		if cErr := f.Close(); cErr != nil {
			e.logger.Debug("close xlsx", "filename", meta.Filename, "error", cErr)
		}
	}()

	if props, pErr := f.GetDocProps(); pErr == nil && props != nil {
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

	var parts []string
	for _, sheet := range f.GetSheetList() {
		rows, rErr := f.GetRows(sheet)
		if rErr != nil {
			e.logger.Warn("read sheet failed", "filename", meta.Filename, "sheet", sheet, "error", rErr)
			continue
		}
		parts = append(parts, sheet)
		for _, row := range rows {
			var cells []string
			for _, cell := range row {
				if s := strings.TrimSpace(cell); s != "" {
					cells = append(cells, s)
				}
			}
			if len(cells) > 0 {
				parts = append(parts, strings.Join(cells, " | "))
			}
		}
	}
	return strings.Join(parts, "\n"), meta, nil
}
