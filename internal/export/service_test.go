package export

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/leaflet-scanner/internal/entity"
	"github.com/joseph-ayodele/leaflet-scanner/internal/repository"
)

func TestExportMatchesXLSX(t *testing.T) {
	ctx := context.Background()
	cache, err := repository.Open(ctx, repository.Config{
		Path:       filepath.Join(t.TempDir(), "cache.db"),
		FlushEvery: 100,
	}, nil)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer cache.Close()

	records := []entity.CacheRecord{
		{ImageURL: "https://img/a", DocumentID: "d", DocumentName: "Gazetka A", PageNumber: 1, RecognizedText: "acme baton sale", IndexedAt: time.Now().UTC()},
		{ImageURL: "https://img/b", DocumentID: "d", DocumentName: "Gazetka B", PageNumber: 2, RecognizedText: "czekolada batonowa", IndexedAt: time.Now().UTC()},
		{ImageURL: "https://img/c", DocumentID: "d", DocumentName: "Gazetka C", PageNumber: 3, RecognizedText: "baton promo", IndexedAt: time.Now().UTC()},
	}
	for _, rec := range records {
		if err := cache.Upsert(ctx, rec); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	if err := cache.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	svc := NewService(cache, nil)
	data, err := svc.ExportMatchesXLSX(ctx, "baton")
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Matches")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	// Header plus the two whole-word matches; "batonowa" is excluded.
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d: %v", len(rows), rows)
	}
	if rows[0][0] != "Document" {
		t.Errorf("missing header row: %v", rows[0])
	}
	docs := map[string]bool{}
	for _, row := range rows[1:] {
		docs[row[0]] = true
	}
	if !docs["Gazetka A"] || !docs["Gazetka C"] || docs["Gazetka B"] {
		t.Fatalf("unexpected exported documents: %v", docs)
	}
}
