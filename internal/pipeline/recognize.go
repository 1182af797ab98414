package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/leaflet-scanner/internal/common"
	"github.com/joseph-ayodele/leaflet-scanner/internal/entity"
	"github.com/joseph-ayodele/leaflet-scanner/internal/imageprep"
	"github.com/joseph-ayodele/leaflet-scanner/internal/match"
	"github.com/joseph-ayodele/leaflet-scanner/internal/ocr"
	"github.com/joseph-ayodele/leaflet-scanner/internal/repository"
)

// Tally is the per-run success/failure ledger of the worker pool.
type Tally struct {
	Processed int
	Failed    int
	Matched   int
}

// Pool fetches and recognizes the pages not found in the cache with bounded
// concurrency. Each task is independent: a download, decode, or recognition
// failure is local to its page. Cache write failures abort the whole run.
type Pool struct {
	cache     *repository.Cache
	engine    ocr.Engine
	keyword   string
	cfg       common.ScanConfig
	userAgent string
	http      *http.Client
	logger    *slog.Logger
}

func NewPool(cache *repository.Cache, engine ocr.Engine, keyword string, cfg common.ScanConfig, userAgent string, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = 15 * time.Second
	}
	return &Pool{
		cache:     cache,
		engine:    engine,
		keyword:   keyword,
		cfg:       cfg,
		userAgent: userAgent,
		http:      &http.Client{Timeout: cfg.DownloadTimeout},
		logger:    logger,
	}
}

// Run drains all tasks to completion (or per-task failure) and returns the
// matches in completion order.
func (p *Pool) Run(ctx context.Context, tasks []entity.PageTask) ([]entity.MatchResult, Tally, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	var mu sync.Mutex
	var matches []entity.MatchResult
	var processed, failed, matched atomic.Int64
	total := len(tasks)

	for _, task := range tasks {
		g.Go(func() error {
			res, err := p.processTask(gctx, task)
			done := processed.Add(1)
			if err != nil {
				if errors.Is(err, common.ErrCacheWrite) {
					return err
				}
				failed.Add(1)
				p.logger.Warn("pool.task_failed",
					"document", task.DocumentName,
					"page", task.PageNumber,
					"url", task.ImageURL,
					"error", err,
				)
				return nil
			}
			p.logger.Info("pool.progress",
				"done", done,
				"total", total,
				"document", task.DocumentName,
				"page", task.PageNumber,
			)
			if res != nil {
				matched.Add(1)
				mu.Lock()
				matches = append(matches, *res)
				mu.Unlock()
			}
			return nil
		})
	}

	err := g.Wait()
	tally := Tally{
		Processed: int(processed.Load()),
		Failed:    int(failed.Load()),
		Matched:   int(matched.Load()),
	}
	return matches, tally, err
}

// processTask downloads one page image, recognizes all preprocessing
// variants, caches the merged text, and returns a MatchResult when the
// keyword is present. A nil result with nil error means no match.
func (p *Pool) processTask(ctx context.Context, task entity.PageTask) (*entity.MatchResult, error) {
	raw, err := fetchImage(ctx, p.http, task.ImageURL, p.userAgent)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode: %w: %v", common.ErrRecognition, err)
	}

	var texts []string
	variants := imageprep.Variants(img)
	failures := 0
	for i, variant := range variants {
		var buf bytes.Buffer
		if err := png.Encode(&buf, variant); err != nil {
			p.logger.Warn("pool.variant_encode", "url", task.ImageURL, "variant", i, "error", err)
			failures++
			continue
		}
		text, err := p.engine.Recognize(ctx, buf.Bytes(), "")
		if err != nil {
			// Recognition failure degrades to empty text for this variant.
			p.logger.Warn("pool.recognize", "url", task.ImageURL, "variant", i, "error", err)
			failures++
			continue
		}
		if text != "" {
			texts = append(texts, text)
		}
	}
	if failures == len(variants) {
		// Every attempt errored; cache nothing so a later run retries.
		return nil, fmt.Errorf("all variants failed: %w", common.ErrRecognition)
	}
	merged := strings.Join(texts, " ")

	rec := entity.CacheRecord{
		ImageURL:       task.ImageURL,
		DocumentID:     task.DocumentID,
		DocumentName:   task.DocumentName,
		PageNumber:     task.PageNumber,
		RecognizedText: merged,
		IndexedAt:      time.Now().UTC(),
	}
	if err := p.cache.Upsert(ctx, rec); err != nil {
		return nil, err
	}

	if !match.Matches(merged, p.keyword) {
		return nil, nil
	}

	saved, err := savePageImage(p.cfg.SaveFolder, task.DocumentName, task.PageNumber, task.ImageURL, raw)
	if err != nil {
		return nil, fmt.Errorf("save matched image: %w", err)
	}
	p.logger.Info("pool.match",
		"document", task.DocumentName,
		"page", task.PageNumber,
		"saved", saved,
	)
	return &entity.MatchResult{Task: task, SavedPath: saved}, nil
}

// fetchImage downloads one image with the client's bounded timeout.
func fetchImage(ctx context.Context, client *http.Client, url, userAgent string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrTransientIO, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: status %d", common.ErrTransientIO, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
