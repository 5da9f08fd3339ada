package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// trackingParams lists query parameters that vary per click without changing
// the document behind the URL.
var trackingParams = map[string]struct{}{
	"fbclid":       {},
	"gclid":        {},
	"igshid":       {},
	"mc_cid":       {},
	"mc_eid":       {},
	"ref":          {},
	"utm_campaign": {},
	"utm_content":  {},
	"utm_medium":   {},
	"utm_source":   {},
	"utm_term":     {},
}

// CanonicalURL normalizes a URL for deduplication: lowercased scheme and
// host, no fragment, no tracking parameters, remaining query sorted, and no
// trailing slash on the path. Invalid URLs are returned trimmed as-is so the
// hash is still stable.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return raw
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""

	query := parsed.Query()
	for key := range query {
		if _, tracked := trackingParams[strings.ToLower(key)]; tracked {
			query.Del(key)
		}
	}
	if len(query) == 0 {
		parsed.RawQuery = ""
	} else {
		keys := make([]string, 0, len(query))
		for key := range query {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		var b strings.Builder
		for _, key := range keys {
			values := query[key]
			sort.Strings(values)
			for _, value := range values {
				if b.Len() > 0 {
					b.WriteByte('&')
				}
				b.WriteString(url.QueryEscape(key))
				b.WriteByte('=')
				b.WriteString(url.QueryEscape(value))
			}
		}
		parsed.RawQuery = b.String()
	}

	if parsed.Path != "/" {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}

	return parsed.String()
}

// HashURL returns the hex-encoded SHA-256 digest of the canonical form of a
// URL. This is the dedup key for source documents.
func HashURL(raw string) string {
	sum := sha256.Sum256([]byte(CanonicalURL(raw)))
	return hex.EncodeToString(sum[:])
}
