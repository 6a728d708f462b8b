package internal

import (
	"net"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
)

const devAPIPort = "8000"

// Location is the address of the page the client considers itself to be
// running at. A nil *Location stands for a non-browser context.
type Location struct {
	Scheme string
	Host   string // host[:port]
}

func ParseLocation(raw string) (*Location, error) {
	if raw == "" {
		return nil, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid page location %q", raw)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Newf("page location %q must be absolute", raw)
	}
	return &Location{Scheme: u.Scheme, Host: u.Host}, nil
}

func (loc *Location) Hostname() string {
	if host, _, err := net.SplitHostPort(loc.Host); err == nil {
		return host
	}
	return strings.Trim(loc.Host, "[]")
}

func (loc *Location) Origin() string {
	return loc.Scheme + "://" + loc.Host
}

func isLoopback(hostname string) bool {
	if strings.EqualFold(hostname, "localhost") {
		return true
	}
	ip := net.ParseIP(hostname)
	return ip != nil && ip.IsLoopback()
}

// ResolveOrigin maps the execution context to the base URL that relative API
// paths are appended to. It never fails: outside a page context with no
// override it returns "".
func ResolveOrigin(override string, loc *Location) string {
	if override != "" {
		return override
	}
	if loc == nil {
		return ""
	}

	hostname := loc.Hostname()
	if isLoopback(hostname) {
		return loc.Scheme + "://" + net.JoinHostPort(hostname, devAPIPort)
	}

	// Same-origin deployments proxy /api/... through to the backend
	return loc.Origin()
}

type OriginResolver interface {
	BaseURL() string
}

// StaticOrigin is a fixed base URL.
type StaticOrigin string

func (o StaticOrigin) BaseURL() string {
	return string(o)
}

type locationResolver struct {
	override string
	loc      *Location
}

func NewOriginResolver(override string, loc *Location) OriginResolver {
	return &locationResolver{override: override, loc: loc}
}

func (r *locationResolver) BaseURL() string {
	return ResolveOrigin(r.override, r.loc)
}
