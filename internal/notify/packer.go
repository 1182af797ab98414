package notify

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/joseph-ayodele/leaflet-scanner/internal/common"
	"github.com/joseph-ayodele/leaflet-scanner/internal/entity"
)

// Item is one transport-ready compressed image with its display metadata.
type Item struct {
	Filename     string
	DocumentName string
	PageNumber   int
	Data         []byte

	// Oversize marks an item whose compressed size alone exceeds the batch
	// byte ceiling. It ships alone in its own batch, never silently dropped.
	Oversize bool
}

// Batch is a transient grouping of items bounded by the transport's payload
// size, attachment count, and caption count ceilings.
type Batch struct {
	Index int
	Items []Item
	Bytes int64
}

// Packer recompresses matched images and groups them into batches that
// honor the transport limits.
type Packer struct {
	cfg    common.NotifyConfig
	logger *slog.Logger
}

func NewPacker(cfg common.NotifyConfig, logger *slog.Logger) *Packer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxImageWidth <= 0 {
		cfg.MaxImageWidth = 2000
	}
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = 80
	}
	return &Packer{cfg: cfg, logger: logger}
}

// Compress loads a saved match image and re-encodes it as a bounded-width,
// bounded-quality JPEG to control payload size.
func (p *Packer) Compress(m entity.MatchResult) (Item, error) {
	raw, err := os.ReadFile(m.SavedPath)
	if err != nil {
		return Item{}, common.WrapError(err, "read saved image")
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Item{}, common.WrapError(err, "decode saved image")
	}

	if w := img.Bounds().Dx(); w > p.cfg.MaxImageWidth {
		factor := float64(p.cfg.MaxImageWidth) / float64(w)
		h := int(math.Round(float64(img.Bounds().Dy()) * factor))
		dst := image.NewRGBA(image.Rect(0, 0, p.cfg.MaxImageWidth, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.cfg.JPEGQuality}); err != nil {
		return Item{}, common.WrapError(err, "encode jpeg")
	}

	base := filepath.Base(m.SavedPath)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + ".jpg"
	return Item{
		Filename:     name,
		DocumentName: m.Task.DocumentName,
		PageNumber:   m.Task.PageNumber,
		Data:         buf.Bytes(),
	}, nil
}

// Pack greedily groups items into batches. A batch is flushed the moment
// adding the next item would break the byte, item, or caption ceiling, and
// that item opens the next batch. Input order is preserved and every item
// lands in exactly one batch.
func (p *Packer) Pack(items []Item) []Batch {
	var batches []Batch
	var cur Batch

	flush := func() {
		if len(cur.Items) == 0 {
			return
		}
		cur.Index = len(batches)
		batches = append(batches, cur)
		cur = Batch{}
	}

	for _, it := range items {
		size := int64(len(it.Data))

		if size > p.cfg.MaxBatchBytes {
			it.Oversize = true
			p.logger.Warn("packer.oversize_item",
				"filename", it.Filename,
				"bytes", size,
				"max_batch_bytes", p.cfg.MaxBatchBytes,
				"error", fmt.Errorf("%w: item cannot fit any batch", common.ErrConstraint),
			)
			flush()
			cur.Items = append(cur.Items, it)
			cur.Bytes = size
			flush()
			continue
		}

		captions := len(cur.Items) // one caption per item
		if len(cur.Items) > 0 &&
			(cur.Bytes+size > p.cfg.MaxBatchBytes ||
				len(cur.Items)+1 > p.cfg.MaxItems ||
				captions+1 > p.cfg.MaxCaptions) {
			flush()
		}
		cur.Items = append(cur.Items, it)
		cur.Bytes += size
	}
	flush()

	p.logger.Info("packer.packed", "items", len(items), "batches", len(batches))
	return batches
}
