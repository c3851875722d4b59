package lawdoc

import (
	"fmt"
	"strings"
)

// CanonicalURL builds the download URL for an identifier, e.g.
// https://host/loi-2025-8/download.
func CanonicalURL(baseURL string, id Identifier) string {
	return fmt.Sprintf("%s/%s/download", strings.TrimRight(baseURL, "/"), id)
}

// PaddedURL builds a download URL with the number zero-padded to width
// digits. The upstream sometimes publishes small numbers that way, e.g.
// loi-2025-07 instead of loi-2025-7.
func PaddedURL(baseURL string, id Identifier, width int) string {
	return fmt.Sprintf("%s/%s-%d-%0*d/download", strings.TrimRight(baseURL, "/"), id.Type, id.Year, width, id.Number)
}
