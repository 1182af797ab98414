package pipeline

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/joseph-ayodele/leaflet-scanner/constants"
)

// savePageImage writes the original page bytes under a sanitized filename
// derived from the document name and page number. The name is deterministic
// per (document, page), so concurrent writers never collide across distinct
// pages.
func savePageImage(folder, documentName string, pageNumber int, imageURL string, data []byte) (string, error) {
	ext := "png"
	if u, err := url.Parse(imageURL); err == nil {
		if e := constants.NormalizeExt(path.Ext(u.Path)); constants.AllowedImageExt(e) {
			ext = e
		}
	}
	name := fmt.Sprintf("%s_page_%d.%s", constants.SanitizeFilename(documentName), pageNumber, ext)
	full := filepath.Join(folder, name)
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", err
	}
	return full, nil
}
