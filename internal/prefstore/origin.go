// Package prefstore provides the origin-scoped key-value stores UI
// preferences are persisted in.
package prefstore

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
)

// Origin identifies the scope a store's data is partitioned by:
// scheme, host and port, as in a web origin.
type Origin struct {
	Scheme string
	Host   string
	Port   string
}

// DefaultOrigin is the origin of a locally served dashboard.
var DefaultOrigin = Origin{Scheme: "http", Host: "localhost", Port: "8080"}

// ParseOrigin parses a URL into its origin. Paths, queries and default ports
// are dropped.
func ParseOrigin(raw string) (Origin, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Origin{}, fmt.Errorf("parse origin %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return Origin{}, fmt.Errorf("parse origin %q: scheme and host are required", raw)
	}

	o := Origin{
		Scheme: strings.ToLower(u.Scheme),
		Host:   strings.ToLower(u.Hostname()),
		Port:   u.Port(),
	}
	if (o.Scheme == "http" && o.Port == "80") || (o.Scheme == "https" && o.Port == "443") {
		o.Port = ""
	}
	return o, nil
}

// String returns the origin in URL form, e.g. "http://localhost:8080".
func (o Origin) String() string {
	host := o.Host
	if o.Port != "" {
		host = net.JoinHostPort(o.Host, o.Port)
	}
	return o.Scheme + "://" + host
}

var unsafeKeyChars = regexp.MustCompile(`[^a-z0-9.-]+`)

// Key returns a filesystem- and redis-safe identifier for the origin,
// e.g. "http_localhost_8080".
func (o Origin) Key() string {
	parts := []string{o.Scheme, o.Host}
	if o.Port != "" {
		parts = append(parts, o.Port)
	}
	for i, p := range parts {
		parts[i] = unsafeKeyChars.ReplaceAllString(strings.ToLower(p), "-")
	}
	return strings.Join(parts, "_")
}
