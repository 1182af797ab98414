package entity

import "time"

// PageTask identifies one leaflet page to recognize. The image URL is the
// natural cache key: it is assumed stable for the lifetime of a given
// leaflet version.
type PageTask struct {
	DocumentID   string
	DocumentName string
	PageNumber   int
	ImageURL     string
}

// CacheRecord is the persisted recognition result for one page image.
type CacheRecord struct {
	ImageURL       string
	DocumentID     string
	DocumentName   string
	PageNumber     int
	RecognizedText string
	IndexedAt      time.Time
}

// KeywordHit is one cache row whose indexed text matched a keyword query.
// RecognizedText is carried so callers can re-apply the canonical whole-word
// matcher on top of the full-text prefilter.
type KeywordHit struct {
	ImageURL       string
	DocumentName   string
	PageNumber     int
	RecognizedText string
	IndexedAt      time.Time
}

// MatchResult is a per-run match: a page whose recognized text contains the
// keyword, together with the saved original image. Held in memory only.
type MatchResult struct {
	Task      PageTask
	SavedPath string
	FromCache bool
}
