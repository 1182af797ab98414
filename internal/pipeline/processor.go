package pipeline

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/leaflet-scanner/internal/common"
	"github.com/joseph-ayodele/leaflet-scanner/internal/entity"
	"github.com/joseph-ayodele/leaflet-scanner/internal/match"
	"github.com/joseph-ayodele/leaflet-scanner/internal/ocr"
	"github.com/joseph-ayodele/leaflet-scanner/internal/repository"
)

// TaskSource yields the page tasks for one run.
type TaskSource interface {
	DiscoverTasks(ctx context.Context) ([]entity.PageTask, error)
}

// Notifier forwards the run's matches to an external transport. A failed
// notification never retracts saved images or cached text.
type Notifier interface {
	Notify(ctx context.Context, keyword string, matches []entity.MatchResult) error
}

// Summary is the final accounting of one run.
type Summary struct {
	Discovered   int
	CacheHits    int
	Recognized   int
	Failed       int
	CacheMatches int
	FreshMatches int
}

func (s Summary) TotalMatches() int { return s.CacheMatches + s.FreshMatches }

// Processor coordinates one scan run: discover pages, split on the cache,
// recognize the uncached remainder, collect matches from both paths, and
// hand them to the notifier.
type Processor struct {
	cfg      common.Config
	cache    *repository.Cache
	source   TaskSource
	pool     *Pool
	notifier Notifier
	logger   *slog.Logger
}

func NewProcessor(cfg common.Config, cache *repository.Cache, source TaskSource, engine ocr.Engine, notifier Notifier, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	pool := NewPool(cache, engine, cfg.Scan.Keyword, cfg.Scan, cfg.Discovery.UserAgent, logger)
	return &Processor{
		cfg:      cfg,
		cache:    cache,
		source:   source,
		pool:     pool,
		notifier: notifier,
		logger:   logger,
	}
}

// Run executes one full scan. Per-page failures are tallied, not fatal;
// discovery, cache write, and flush failures abort the run.
func (p *Processor) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	runID := uuid.New().String()
	p.logger = p.logger.With("run_id", runID)
	p.pool.logger = p.logger
	p.logger.Info("run.start", "keyword", p.cfg.Scan.Keyword, "workers", p.cfg.Scan.Workers)

	tasks, err := p.source.DiscoverTasks(ctx)
	if err != nil {
		return sum, common.WrapError(err, "discover tasks")
	}
	tasks = dedupeByURL(tasks)
	sum.Discovered = len(tasks)
	if len(tasks) == 0 {
		p.logger.Info("run.empty", "reason", "no tasks discovered")
		return sum, nil
	}

	if err := os.MkdirAll(p.cfg.Scan.SaveFolder, 0o755); err != nil {
		return sum, common.WrapError(err, "create save folder")
	}

	urls := make([]string, len(tasks))
	byURL := make(map[string]entity.PageTask, len(tasks))
	for i, t := range tasks {
		urls[i] = t.ImageURL
		byURL[t.ImageURL] = t
	}

	cached, err := p.cache.Exists(ctx, urls)
	if err != nil {
		return sum, err
	}
	sum.CacheHits = len(cached)

	var cachedURLs []string
	var fresh []entity.PageTask
	for _, t := range tasks {
		if _, ok := cached[t.ImageURL]; ok {
			cachedURLs = append(cachedURLs, t.ImageURL)
		} else {
			fresh = append(fresh, t)
		}
	}
	p.logger.Info("run.split", "total", len(tasks), "cached", len(cachedURLs), "to_recognize", len(fresh))

	cacheMatches := p.collectCacheMatches(ctx, cachedURLs, byURL, &sum)

	freshMatches, tally, err := p.pool.Run(ctx, fresh)
	if err != nil {
		return sum, err
	}
	sum.Recognized = tally.Processed
	sum.Failed += tally.Failed
	sum.FreshMatches = len(freshMatches)

	if err := p.cache.Flush(ctx); err != nil {
		return sum, err
	}

	all := append(cacheMatches, freshMatches...)
	if p.notifier != nil && len(all) > 0 {
		if err := p.notifier.Notify(ctx, p.cfg.Scan.Keyword, all); err != nil {
			p.logger.Error("run.notify", "error", err)
		}
	}

	p.logger.Info("run.done",
		"discovered", sum.Discovered,
		"cache_hits", sum.CacheHits,
		"recognized", sum.Recognized,
		"failed", sum.Failed,
		"matches", sum.TotalMatches(),
	)
	return sum, nil
}

// collectCacheMatches runs the keyword query against the cached subset,
// re-applies the canonical whole-word matcher, and downloads the original
// bytes for each confirmed match. Download failures cost only that page.
func (p *Processor) collectCacheMatches(ctx context.Context, cachedURLs []string, byURL map[string]entity.PageTask, sum *Summary) []entity.MatchResult {
	if len(cachedURLs) == 0 {
		return nil
	}
	hits, err := p.cache.LookupKeyword(ctx, cachedURLs, p.cfg.Scan.Keyword)
	if err != nil {
		p.logger.Error("run.cache_lookup", "error", err)
		sum.Failed += len(cachedURLs)
		return nil
	}

	client := &http.Client{Timeout: p.cfg.Scan.DownloadTimeout}
	var matches []entity.MatchResult
	for _, hit := range hits {
		if !match.Matches(hit.RecognizedText, p.cfg.Scan.Keyword) {
			// FTS tokenization is looser than the whole-word rule.
			continue
		}
		task, ok := byURL[hit.ImageURL]
		if !ok {
			continue
		}
		raw, err := fetchImage(ctx, client, task.ImageURL, p.cfg.Discovery.UserAgent)
		if err != nil {
			p.logger.Warn("run.cache_match_download", "url", task.ImageURL, "error", err)
			sum.Failed++
			continue
		}
		saved, err := savePageImage(p.cfg.Scan.SaveFolder, task.DocumentName, task.PageNumber, task.ImageURL, raw)
		if err != nil {
			p.logger.Warn("run.cache_match_save", "url", task.ImageURL, "error", err)
			sum.Failed++
			continue
		}
		p.logger.Info("run.cache_match", "document", task.DocumentName, "page", task.PageNumber, "saved", saved)
		matches = append(matches, entity.MatchResult{Task: task, SavedPath: saved, FromCache: true})
	}
	sum.CacheMatches = len(matches)
	return matches
}

// dedupeByURL keeps the first task per image URL, preserving input order.
func dedupeByURL(tasks []entity.PageTask) []entity.PageTask {
	seen := make(map[string]struct{}, len(tasks))
	out := tasks[:0]
	for _, t := range tasks {
		if _, dup := seen[t.ImageURL]; dup {
			continue
		}
		seen[t.ImageURL] = struct{}{}
		out = append(out, t)
	}
	return out
}
