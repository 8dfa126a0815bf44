// Package imgcdn derives delivery URLs for pre-transformed image variants.
// The host does the transformation; this is URL templating only.
package imgcdn

import (
	"net/url"
	"strconv"
	"strings"
)

// Resolver builds variant URLs for stored content ids. Format and quality
// are auto-negotiated by the host; only the width is parameterized.
type Resolver struct {
	baseURL string
}

func NewResolver(baseURL string) *Resolver {
	return &Resolver{baseURL: strings.TrimRight(baseURL, "/")}
}

// URL returns the delivery URL for one content id at the target width.
// Widths at or below zero omit the width parameter and serve the original
// size.
func (r *Resolver) URL(contentID string, width int) string {
	v := url.Values{}
	v.Set("fm", "auto")
	v.Set("q", "auto")
	if width > 0 {
		v.Set("w", strconv.Itoa(width))
	}
	return r.baseURL + "/" + url.PathEscape(contentID) + "?" + v.Encode()
}
