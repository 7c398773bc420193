package util

import (
	"net/url"
	"sort"
	"strings"
)

// variant-selecting params survive canonicalization; everything else
// (tracking, session, pagination cruft) is stripped.
var keepParams = map[string]bool{
	"variant": true,
	"sku":     true,
	"size":    true,
}

// CanonicalizeURL normalizes a product URL so repeated scrapes of the same
// listing always produce the same string: lowercased scheme/host, fragment
// dropped, query reduced to variant-selecting params in deterministic order.
func CanonicalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")

	q := u.Query()
	kept := url.Values{}
	for k, vals := range q {
		if !keepParams[strings.ToLower(k)] {
			continue
		}
		sort.Strings(vals)
		kept[strings.ToLower(k)] = vals
	}
	u.RawQuery = kept.Encode()
	return u.String()
}

// DedupKey is the upsert identity for a listing: merchant-scoped so runs
// against different merchants never contend on it.
func DedupKey(merchant, productURL string) string {
	return strings.ToLower(strings.TrimSpace(merchant)) + ":" + CanonicalizeURL(productURL)
}
