package utils

import (
	"errors"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// URLOptions controls optional canonicalization policies.
type URLOptions struct {
	DefaultScheme      string // if set, assumed for inputs without "://"
	DropTrackingParams bool   // remove utm_*, gclid, fbclid and friends
}

// Common tracking params to strip when DropTrackingParams is true.
var trackingParams = map[string]struct{}{
	"utm_source": {}, "utm_medium": {}, "utm_campaign": {}, "utm_term": {}, "utm_content": {},
	"gclid": {}, "fbclid": {}, "mc_cid": {}, "mc_eid": {},
}

var (
	ErrEmptyURL          = errors.New("empty url")
	ErrMissingHost       = errors.New("missing host")
	ErrUnsupportedScheme = errors.New("unsupported scheme")
)

// ParseTargetURL parses raw and checks that it names an http(s) host. The
// returned error is a *url.Error whose Err is one of the sentinels above or a
// parse failure.
func ParseTargetURL(raw string, defaultScheme string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, &url.Error{Op: "parse", URL: raw, Err: ErrEmptyURL}
	}
	if defaultScheme != "" && !strings.Contains(trimmed, "://") {
		trimmed = defaultScheme + "://" + trimmed
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, err
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, &url.Error{Op: "parse", URL: trimmed, Err: ErrUnsupportedScheme}
	}
	if u.Hostname() == "" {
		return nil, &url.Error{Op: "parse", URL: trimmed, Err: ErrMissingHost}
	}
	return u, nil
}

// CanonicalizeURL returns the form submitted for scanning: lowercase scheme
// and host, IDN hosts in punycode, default ports and fragments removed.
// Path, query order and userinfo are kept since they can change what the
// remote fetches.
func CanonicalizeURL(raw string, opts URLOptions) (string, error) {
	u, err := ParseTargetURL(raw, opts.DefaultScheme)
	if err != nil {
		return "", err
	}

	u.Scheme = strings.ToLower(u.Scheme)

	host := strings.ToLower(u.Hostname())
	if puny, err := idna.Lookup.ToASCII(host); err == nil {
		host = puny
	}

	port := u.Port()
	switch {
	case (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443"):
		u.Host = bracketIPv6(host)
	case port != "":
		u.Host = net.JoinHostPort(host, port)
	default:
		u.Host = bracketIPv6(host)
	}

	u.Fragment = ""
	u.RawFragment = ""

	if opts.DropTrackingParams && u.RawQuery != "" {
		u.RawQuery = dropTracking(u.RawQuery)
	}

	return u.String(), nil
}

func bracketIPv6(host string) string {
	if strings.Contains(host, ":") {
		return "[" + host + "]"
	}
	return host
}

// dropTracking removes tracking pairs without reordering the rest.
func dropTracking(rawQuery string) string {
	parts := strings.Split(rawQuery, "&")
	kept := parts[:0]
	for _, p := range parts {
		key, _, _ := strings.Cut(p, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if _, ok := trackingParams[strings.ToLower(key)]; ok {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, "&")
}
