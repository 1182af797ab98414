package notify

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joseph-ayodele/leaflet-scanner/internal/common"
	"github.com/joseph-ayodele/leaflet-scanner/internal/entity"
)

func testPacker(maxBytes int64, maxItems, maxCaptions int) *Packer {
	return NewPacker(common.NotifyConfig{
		MaxBatchBytes: maxBytes,
		MaxItems:      maxItems,
		MaxCaptions:   maxCaptions,
		MaxImageWidth: 2000,
		JPEGQuality:   80,
	}, nil)
}

func fixedItems(n int, size int) []Item {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{
			Filename:     fmt.Sprintf("img_%02d.jpg", i),
			DocumentName: "Gazetka",
			PageNumber:   i + 1,
			Data:         make([]byte, size),
		}
	}
	return items
}

func assertWithinLimits(t *testing.T, p *Packer, batches []Batch) {
	t.Helper()
	for _, b := range batches {
		var total int64
		for _, it := range b.Items {
			total += int64(len(it.Data))
		}
		if len(b.Items) == 1 && b.Items[0].Oversize {
			continue
		}
		if total > p.cfg.MaxBatchBytes {
			t.Errorf("batch %d exceeds byte limit: %d > %d", b.Index, total, p.cfg.MaxBatchBytes)
		}
		if len(b.Items) > p.cfg.MaxItems {
			t.Errorf("batch %d exceeds item limit: %d", b.Index, len(b.Items))
		}
		if len(b.Items) > p.cfg.MaxCaptions {
			t.Errorf("batch %d exceeds caption limit: %d", b.Index, len(b.Items))
		}
	}
}

func TestPackTwelveOneMBImages(t *testing.T) {
	p := testPacker(7_500_000, 10, 10)
	batches := p.Pack(fixedItems(12, 1_000_000))

	if len(batches) < 2 {
		t.Fatalf("expected at least 2 batches, got %d", len(batches))
	}
	total := 0
	for _, b := range batches {
		total += len(b.Items)
	}
	if total != 12 {
		t.Fatalf("expected all 12 images packed, got %d", total)
	}
	assertWithinLimits(t, p, batches)

	// Size binds first: 7MB fits, the 8th MB would not.
	if len(batches[0].Items) != 7 {
		t.Fatalf("expected 7 items in first batch, got %d", len(batches[0].Items))
	}
	if len(batches[1].Items) != 5 {
		t.Fatalf("expected 5 items in second batch, got %d", len(batches[1].Items))
	}
}

func TestPackItemCountBindsBeforeSize(t *testing.T) {
	p := testPacker(100_000_000, 10, 10)
	batches := p.Pack(fixedItems(12, 1_000_000))

	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if len(batches[0].Items) != 10 || len(batches[1].Items) != 2 {
		t.Fatalf("expected 10+2 split, got %d+%d", len(batches[0].Items), len(batches[1].Items))
	}
	assertWithinLimits(t, p, batches)
}

func TestPackCaptionCountBinds(t *testing.T) {
	p := testPacker(100_000_000, 10, 3)
	batches := p.Pack(fixedItems(7, 1000))

	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	for i, want := range []int{3, 3, 1} {
		if len(batches[i].Items) != want {
			t.Fatalf("batch %d: expected %d items, got %d", i, want, len(batches[i].Items))
		}
	}
}

func TestPackOversizeItemIsolatedAndFlagged(t *testing.T) {
	p := testPacker(7_500_000, 10, 10)
	items := fixedItems(3, 1_000_000)
	items[1].Data = make([]byte, 8_000_000)

	batches := p.Pack(items)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	mid := batches[1]
	if len(mid.Items) != 1 || !mid.Items[0].Oversize {
		t.Fatalf("expected the oversize item alone and flagged, got %+v", mid)
	}
	total := 0
	for _, b := range batches {
		total += len(b.Items)
	}
	if total != 3 {
		t.Fatalf("oversize handling dropped an item: packed %d of 3", total)
	}
}

func TestPackPreservesInputOrder(t *testing.T) {
	p := testPacker(7_500_000, 4, 10)
	batches := p.Pack(fixedItems(9, 1000))

	i := 0
	for _, b := range batches {
		for _, it := range b.Items {
			want := fmt.Sprintf("img_%02d.jpg", i)
			if it.Filename != want {
				t.Fatalf("position %d: got %q, want %q", i, it.Filename, want)
			}
			i++
		}
	}
	if i != 9 {
		t.Fatalf("expected 9 items total, got %d", i)
	}
}

func TestPackEmptyInput(t *testing.T) {
	p := testPacker(7_500_000, 10, 10)
	if batches := p.Pack(nil); len(batches) != 0 {
		t.Fatalf("expected no batches for empty input, got %d", len(batches))
	}
}

func TestCompressBoundsWidthAndRecodesJPEG(t *testing.T) {
	dir := t.TempDir()
	src := image.NewRGBA(image.Rect(0, 0, 600, 300))
	for i := range src.Pix {
		src.Pix[i] = uint8(i)
	}
	path := filepath.Join(dir, "Gazetka_page_1.png")
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	p := NewPacker(common.NotifyConfig{MaxImageWidth: 400, JPEGQuality: 70, MaxBatchBytes: 1 << 20, MaxItems: 10, MaxCaptions: 10}, nil)
	item, err := p.Compress(entity.MatchResult{
		Task:      entity.PageTask{DocumentName: "Gazetka", PageNumber: 1},
		SavedPath: path,
	})
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if !strings.HasSuffix(item.Filename, ".jpg") {
		t.Fatalf("expected .jpg output name, got %q", item.Filename)
	}

	out, _, err := image.Decode(bytes.NewReader(item.Data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if w := out.Bounds().Dx(); w != 400 {
		t.Fatalf("expected width bounded to 400, got %d", w)
	}
	// Aspect ratio preserved.
	if h := out.Bounds().Dy(); h != 200 {
		t.Fatalf("expected height 200, got %d", h)
	}
}

func TestCompressSmallImageKeptAtSize(t *testing.T) {
	dir := t.TempDir()
	src := image.NewRGBA(image.Rect(0, 0, 100, 50))
	for y := 0; y < 50; y++ {
		for x := 0; x < 100; x++ {
			src.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	path := filepath.Join(dir, "small.png")
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	p := testPacker(1<<20, 10, 10)
	item, err := p.Compress(entity.MatchResult{Task: entity.PageTask{PageNumber: 1}, SavedPath: path})
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	out, _, err := image.Decode(bytes.NewReader(item.Data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if out.Bounds().Dx() != 100 {
		t.Fatalf("small image should not be upscaled, got width %d", out.Bounds().Dx())
	}
}
