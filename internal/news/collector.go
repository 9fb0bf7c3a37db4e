// Package news assembles a bounded, fresh, deduplicated article list for a
// topic by driving the feed search, link resolver and article fetcher.
package news

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/deusflow/linenews/internal/feed"
	"github.com/deusflow/linenews/internal/metrics"
	"github.com/deusflow/linenews/internal/scraper"
)

// Article is one successfully extracted news item. Immutable once built;
// consumed by the summarization pipeline and then discarded.
type Article struct {
	Title     string
	Text      string
	URL       string
	Source    string
	Published time.Time // zero when no date could be resolved
}

type Source interface {
	Search(ctx context.Context, query string) ([]feed.Entry, error)
}

type Resolver interface {
	Resolve(ctx context.Context, link string) string
}

// Session is the per-run extraction handle; it owns the shared browser
// resource and must be closed on every exit path.
type Session interface {
	Extract(ctx context.Context, url string) (*scraper.Extraction, error)
	Close()
}

type SessionFactory func(ctx context.Context) (Session, error)

type Collector struct {
	Feed         Source
	Resolver     Resolver
	Sessions     SessionFactory
	DefaultQuery string
	DaysLimit    int // recency window in days

	Now func() time.Time
}

func NewCollector(f *feed.Client, r *scraper.Resolver, s *scraper.Scraper, defaultQuery string, daysLimit int) *Collector {
	return &Collector{
		Feed:     f,
		Resolver: r,
		Sessions: func(ctx context.Context) (Session, error) {
			return s.NewSession(ctx)
		},
		DefaultQuery: defaultQuery,
		DaysLimit:    daysLimit,
		Now:          time.Now,
	}
}

// Collect returns up to limit fresh articles for the topic, newest first.
// An empty result is a normal outcome (nothing matched, nothing survived
// filtering); a non-nil error means the run itself could not proceed.
func (c *Collector) Collect(ctx context.Context, keywords string, limit int) ([]Article, error) {
	query := strings.TrimSpace(keywords)
	if query == "" {
		query = c.DefaultQuery
	}

	log.Printf(">>> Searching news feed (keywords: %q)", query)
	entries, err := c.Feed.Search(ctx, query)
	if err != nil {
		// A malformed or unreachable feed means zero results, not a crash.
		log.Printf("⚠️ Feed search failed, treating as empty: %v", err)
		return nil, nil
	}

	// Over-fetch to absorb the expected extraction failures.
	if len(entries) > 2*limit {
		entries = entries[:2*limit]
	}

	sess, err := c.Sessions(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	seen := map[string]struct{}{}
	var articles []Article

	for i, entry := range entries {
		metrics.Global.IncrementFeedEntriesSeen()

		if len(articles) >= limit {
			log.Printf("Reached target article count, stopping early")
			break
		}

		log.Printf("  [%d/%d] Processing: %s", i+1, len(entries), entry.Title)
		realURL := c.Resolver.Resolve(ctx, entry.Link)
		if realURL == "" {
			continue
		}
		if _, dup := seen[realURL]; dup {
			log.Printf("  🔗 Duplicate URL, skipping: %s", entry.Title)
			metrics.Global.IncrementDuplicatesFiltered()
			continue
		}

		extraction, err := sess.Extract(ctx, realURL)
		if err != nil {
			log.Printf("  ⚠️ Extraction failed for %s: %v", entry.Title, err)
			metrics.Global.IncrementExtractionFailures()
			continue
		}
		seen[realURL] = struct{}{}

		published := extraction.Published
		if published.IsZero() && entry.Published != nil {
			// Feed dates come in GMT; compare in local time like page dates.
			published = entry.Published.Local()
		}

		articles = append(articles, Article{
			Title:     extraction.Title,
			Text:      extraction.Text,
			URL:       realURL,
			Source:    entry.Source,
			Published: published,
		})
		metrics.Global.IncrementArticlesCollected()
		log.Printf("  ✅ Got article: %s (published: %s)", extraction.Title, formatDate(published))
	}

	articles = c.filterByRecency(articles)

	sort.Slice(articles, func(i, j int) bool {
		return articles[i].Published.After(articles[j].Published)
	})

	if len(articles) > limit {
		articles = articles[:limit]
	}
	log.Printf(">>> Collection finished, %d article(s) after filtering", len(articles))
	return articles, nil
}

// filterByRecency drops articles older than the window. Articles with no
// resolvable date at all are excluded rather than assumed fresh.
func (c *Collector) filterByRecency(articles []Article) []Article {
	now := c.Now()
	cutoff := now.Add(-time.Duration(c.DaysLimit) * 24 * time.Hour)

	kept := articles[:0]
	for _, a := range articles {
		if a.Published.IsZero() {
			log.Printf("  Dropping dateless article: %s", a.Title)
			continue
		}
		if !a.Published.After(cutoff) {
			log.Printf("  Dropping stale article (%s): %s", formatDate(a.Published), a.Title)
			continue
		}
		kept = append(kept, a)
	}
	return kept
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "日期未知"
	}
	return t.Format("2006-01-02 15:04")
}
