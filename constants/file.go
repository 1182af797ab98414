package constants

import (
	"regexp"
	"strings"
)

// MaxFilenameLength caps sanitized filenames so joined paths stay well under
// common filesystem limits.
const MaxFilenameLength = 100

// AllowedImageExtensions holds the raster formats leaflet pages arrive in.
var AllowedImageExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"webp": {},
}

var unsafeFilenameChars = regexp.MustCompile(`[\\/*?:"<>|]`)

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// AllowedImageExt checks if a file extension is a supported page image format.
func AllowedImageExt(ext string) bool {
	_, ok := AllowedImageExtensions[NormalizeExt(ext)]
	return ok
}

// SanitizeFilename makes a display name safe to use as a filename: spaces
// become underscores, path-unsafe characters are stripped, and the result is
// capped at MaxFilenameLength.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, " ", "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	if len(name) > MaxFilenameLength {
		name = name[:MaxFilenameLength]
	}
	return name
}
