package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/leaflet-scanner/internal/match"
	"github.com/joseph-ayodele/leaflet-scanner/internal/repository"
)

// Service produces XLSX bytes for keyword-match reports out of the cache.
type Service struct {
	cache  *repository.Cache
	logger *slog.Logger
}

func NewService(cache *repository.Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cache: cache, logger: logger}
}

// ExportMatchesXLSX returns an XLSX workbook listing every cached page whose
// recognized text contains the keyword as a whole word.
func (s *Service) ExportMatchesXLSX(ctx context.Context, keyword string) ([]byte, error) {
	start := time.Now()

	hits, err := s.cache.LookupKeyword(ctx, nil, keyword)
	if err != nil {
		return nil, fmt.Errorf("query cache: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Matches"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	_ = f.DeleteSheet("Sheet1")

	headers := []string{"Document", "Page", "Image URL", "Indexed At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, hit := range hits {
		if !match.Matches(hit.RecognizedText, keyword) {
			continue
		}
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, hit.DocumentName)
		write(2, hit.PageNumber)
		write(3, hit.ImageURL)
		write(4, hit.IndexedAt.Format("2006-01-02 15:04:05"))
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}

	s.logger.Info("export.matches",
		"keyword", keyword,
		"rows", row-2,
		"bytes", buf.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
