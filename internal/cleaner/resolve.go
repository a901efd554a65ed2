package cleaner

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/purelink/purelink/internal/utils"
	"github.com/purelink/purelink/internal/version"
)

// DefaultResolveTimeout bounds a single unshortening request.
const DefaultResolveTimeout = 6 * time.Second

// Resolver follows exactly one redirect hop to reveal where a short link
// points. It never returns an error: on any failure the input comes back.
type Resolver struct {
	Client    *http.Client
	UserAgent string // empty means the desktop browser identification
}

// NewResolver creates a Resolver whose client does not follow redirects.
func NewResolver(timeout time.Duration, userAgent string) *Resolver {
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}
	return &Resolver{
		Client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		UserAgent: userAgent,
	}
}

// Resolve returns the redirect target of rawURL. Without a redirect, or on
// any error, rawURL comes back unchanged.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) string {
	target := strings.TrimSpace(rawURL)
	if !hasHTTPScheme(target) {
		target = "https://" + target
	}

	parsed, err := url.Parse(target)
	if err != nil || parsed.Host == "" {
		return rawURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return rawURL
	}
	version.SetBrowserUserAgent(req.Header, r.UserAgent)

	resp, err := r.Client.Do(req)
	if err != nil {
		utils.Debug("Resolve: %s: %v", rawURL, err)
		return rawURL
	}
	defer func() { _ = resp.Body.Close() }()

	loc, err := resp.Location()
	if err == nil && loc.String() != "" {
		return loc.String()
	}
	return rawURL
}

func hasHTTPScheme(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
