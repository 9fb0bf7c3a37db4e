package scraper

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultUserAgent is presented on every outbound page fetch.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"

// Resolver turns a syndication redirect URL into the real article URL.
type Resolver struct {
	client    *http.Client
	userAgent string
}

func NewResolver() *Resolver {
	return &Resolver{
		client:    &http.Client{Timeout: 20 * time.Second},
		userAgent: DefaultUserAgent,
	}
}

// Resolve follows redirects to the destination URL. It never fails: on a
// network error it falls back to the `url` query parameter of the original
// link, and failing that returns the link unchanged so extraction can still
// be attempted against it.
func (r *Resolver) Resolve(ctx context.Context, link string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return link
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		log.Printf("⚠️ Can't resolve redirect %s: %v", link, err)
		if fallback := urlFromQuery(link); fallback != "" {
			return fallback
		}
		return link
	}
	defer resp.Body.Close()

	return resp.Request.URL.String()
}

// urlFromQuery recovers the destination from the redirect link's own `url`
// query parameter, which Google News links sometimes carry.
func urlFromQuery(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	if !strings.HasSuffix(u.Host, "news.google.com") {
		return ""
	}
	return u.Query().Get("url")
}
