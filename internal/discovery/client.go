// Package discovery finds the current set of leaflet page images: it scans
// the public leaflet listing page for press links, resolves each link to a
// gallery UUID, and reads the page-image URLs from the leaflet JSON API.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/joseph-ayodele/leaflet-scanner/internal/common"
	"github.com/joseph-ayodele/leaflet-scanner/internal/entity"
)

var galleryIDPattern = regexp.MustCompile(`window\.galleryLeaflet\.init\("([a-f0-9\-]{36})"\)`)

const pressLinkPrefix = "/pl/press,id,"

type Client struct {
	cfg    common.DiscoveryConfig
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg common.DiscoveryConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.HTTPTimeout},
		logger: logger,
	}
}

// DiscoverTasks returns one PageTask per page image across all currently
// published leaflets. A leaflet that fails to resolve is skipped; the rest
// of the run proceeds.
func (c *Client) DiscoverTasks(ctx context.Context) ([]entity.PageTask, error) {
	ids, err := c.leafletIDs(ctx)
	if err != nil {
		return nil, err
	}
	c.logger.Info("discovery.leaflets", "count", len(ids))

	var tasks []entity.PageTask
	for _, id := range ids {
		pages, err := c.leafletPages(ctx, id)
		if err != nil {
			c.logger.Warn("discovery.pages", "leaflet_id", id, "error", err)
			continue
		}
		tasks = append(tasks, pages...)
	}
	return tasks, nil
}

// leafletIDs scrapes the listing page for press links and resolves each to
// its gallery UUID.
func (c *Client) leafletIDs(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, c.cfg.ListingURL)
	if err != nil {
		return nil, common.WrapError(err, "fetch leaflet listing")
	}

	links := pressLinks(body)
	if len(links) == 0 {
		c.logger.Warn("discovery.listing", "url", c.cfg.ListingURL, "links", 0)
		return nil, nil
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, link := range links {
		full := link
		if !strings.HasPrefix(link, "http") {
			full = strings.TrimSuffix(c.cfg.ListingURL, "/pl/gazetki") + link
		}
		page, err := c.get(ctx, full)
		if err != nil {
			c.logger.Warn("discovery.press_page", "url", full, "error", err)
			continue
		}
		m := galleryIDPattern.FindSubmatch(page)
		if m == nil {
			continue
		}
		id := string(m[1])
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// leafletAPIResponse mirrors the fields of the leaflet API we rely on;
// unknown fields are ignored.
type leafletAPIResponse struct {
	Name          string `json:"name"`
	ImagesDesktop []struct {
		Page   int      `json:"page"`
		Images []string `json:"images"`
	} `json:"images_desktop"`
}

func (c *Client) leafletPages(ctx context.Context, leafletID string) ([]entity.PageTask, error) {
	url := fmt.Sprintf("%s/api/leaflets/%s?ctx=web", c.cfg.APIBaseURL, leafletID)
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, common.WrapError(err, "fetch leaflet pages")
	}

	var resp leafletAPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, common.WrapError(err, "decode leaflet pages")
	}

	name := resp.Name
	if name == "" {
		name = "Gazetka_" + leafletID
	}

	var tasks []entity.PageTask
	for _, page := range resp.ImagesDesktop {
		for _, img := range page.Images {
			if img == "" {
				continue
			}
			tasks = append(tasks, entity.PageTask{
				DocumentID:   leafletID,
				DocumentName: name,
				// API pages are 0-based
				PageNumber: page.Page + 1,
				ImageURL:   img,
			})
			break
		}
	}
	c.logger.Debug("discovery.pages", "leaflet", name, "pages", len(tasks))
	return tasks, nil
}

// get issues a retried GET and returns the response body.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return err
			}
			req.Header.Set("User-Agent", c.cfg.UserAgent)
			resp, err := c.http.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode/100 != 2 {
				return fmt.Errorf("status %d: %w", resp.StatusCode, common.ErrTransientIO)
			}
			body, err = io.ReadAll(resp.Body)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.cfg.Retries)),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	return body, err
}
