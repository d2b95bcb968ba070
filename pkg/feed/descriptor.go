// Package feed describes a single request against the parking occupancy feed
// and builds its URL.
package feed

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Descriptor identifies one window of the feed.
//
// BaseURL already embeds the access key and the feed name, e.g.
// http://openapi.seoul.go.kr:8088/<key>/json/SearchParkingInfoRealtime/.
// Offset and Limit are appended verbatim; the Seoul endpoint reads them as
// a 1-based inclusive START/END pair.
type Descriptor struct {
	BaseURL string
	Offset  int
	Limit   int
	Filter  string
}

// Validate reports descriptors the upstream service cannot answer.
func (d Descriptor) Validate() error {
	if d.Offset < 0 {
		return fmt.Errorf("offset must be >= 0 (got %d)", d.Offset)
	}
	if d.Limit <= 0 {
		return fmt.Errorf("limit must be > 0 (got %d)", d.Limit)
	}
	return nil
}

// URL returns the request URL for d.
func (d Descriptor) URL() string {
	return BuildURL(d.BaseURL, d.Offset, d.Limit, d.Filter)
}

// WithWindow returns a copy of d covering [offset, limit].
func (d Descriptor) WithWindow(offset, limit int) Descriptor {
	d.Offset = offset
	d.Limit = limit
	return d
}

// formEscaper adjusts url.QueryEscape to application/x-www-form-urlencoded
// as produced by the reference clients of the service: '*' stays literal and
// '~' is escaped.
var formEscaper = strings.NewReplacer("%2A", "*", "~", "%7E")

// BuildURL appends offset, limit and (when non-empty) the form-encoded filter
// to base as path segments. base is never validated or normalized.
func BuildURL(base string, offset, limit int, filter string) string {
	var b strings.Builder
	b.WriteString(base)

	appendSegment := func(segment string) {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "/") {
			b.WriteByte('/')
		}
		b.WriteString(segment)
	}

	appendSegment(strconv.Itoa(offset))
	appendSegment(strconv.Itoa(limit))
	if filter != "" {
		appendSegment(EncodeFilter(filter))
	}

	return b.String()
}

// EncodeFilter form-encodes text byte by byte over its UTF-8 encoding.
func EncodeFilter(text string) string {
	return formEscaper.Replace(url.QueryEscape(text))
}

// HasScheme reports whether rawURL starts with "scheme://". A "://" that
// appears after the first '/', '?' or '#' does not count.
func HasScheme(rawURL string) bool {
	i := strings.Index(rawURL, "://")
	return i > 0 && !strings.ContainsAny(rawURL[:i], "/?#")
}

// NormalizeURL prefixes http:// when rawURL carries no scheme. HTTPS is not
// forced; the public endpoint is served over plain HTTP.
func NormalizeURL(rawURL string) string {
	if HasScheme(rawURL) {
		return rawURL
	}
	return "http://" + rawURL
}
