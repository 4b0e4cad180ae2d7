// Package source defines the upstream recipe source interface and shared
// HTTP client utilities for source adapters.
package source

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/rs/dnscache"

	pantry "github.com/telliott/pantry/internal"
)

// Source is a stateless transform from an ingredient set to recipes.
// Implementations perform exactly one network round trip per call, report
// errors immediately, and never retry.
type Source interface {
	// Name returns the source identifier (e.g. "spoonacular").
	Name() string
	// Search looks up recipes by normalized ingredient terms. An empty
	// result slice with a nil error means the upstream found nothing.
	Search(ctx context.Context, ingredients []string) ([]pantry.Recipe, error)
	// HealthCheck verifies connectivity to the source.
	HealthCheck(ctx context.Context) error
}

// NewTransport returns a tuned *http.Transport with connection pooling and
// optional DNS caching for the upstream HTTPS API.
func NewTransport(resolver *dnscache.Resolver) *http.Transport {
	t := &http.Transport{
		MaxIdleConnsPerHost: 100,
		MaxConnsPerHost:     200,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	if resolver != nil {
		t.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			ips, err := resolver.LookupHost(ctx, host)
			if err != nil {
				return nil, err
			}
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(ips[0], port))
		}
	}
	return t
}
