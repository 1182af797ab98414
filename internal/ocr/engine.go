package ocr

import "context"

// Engine is the boundary to the external recognition engine. Implementations
// may be slow and may fail; callers degrade a failed call to empty text for
// that page and continue.
type Engine interface {
	Recognize(ctx context.Context, png []byte, language string) (string, error)
}
