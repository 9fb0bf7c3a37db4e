package news

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/deusflow/linenews/internal/feed"
	"github.com/deusflow/linenews/internal/scraper"
)

var testNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	entries []feed.Entry
	err     error
	query   string
}

func (f *fakeSource) Search(ctx context.Context, query string) ([]feed.Entry, error) {
	f.query = query
	return f.entries, f.err
}

type passthroughResolver struct{}

func (passthroughResolver) Resolve(ctx context.Context, link string) string { return link }

type fakeSession struct {
	pages  map[string]*scraper.Extraction
	closed bool
}

func (s *fakeSession) Extract(ctx context.Context, url string) (*scraper.Extraction, error) {
	if ext, ok := s.pages[url]; ok {
		return ext, nil
	}
	return nil, scraper.ErrContentTooShort
}

func (s *fakeSession) Close() { s.closed = true }

func entry(i int, published *time.Time) feed.Entry {
	return feed.Entry{
		Title:     fmt.Sprintf("新聞%d - 測試日報", i),
		Link:      fmt.Sprintf("https://example.com/%d", i),
		Source:    "測試日報",
		Published: published,
	}
}

func page(title string, published time.Time) *scraper.Extraction {
	return &scraper.Extraction{Title: title, Text: "內文內文", Published: published}
}

func newTestCollector(src *fakeSource, sess *fakeSession) *Collector {
	return &Collector{
		Feed:         src,
		Resolver:     passthroughResolver{},
		Sessions:     func(ctx context.Context) (Session, error) { return sess, nil },
		DefaultQuery: "預設關鍵字",
		DaysLimit:    3,
		Now:          func() time.Time { return testNow },
	}
}

func TestCollectHappyPath(t *testing.T) {
	src := &fakeSource{}
	sess := &fakeSession{pages: map[string]*scraper.Extraction{}}
	for i := 1; i <= 4; i++ {
		pub := testNow.Add(-time.Duration(i) * time.Hour)
		src.entries = append(src.entries, entry(i, &pub))
		sess.pages[fmt.Sprintf("https://example.com/%d", i)] = page(fmt.Sprintf("標題%d", i), pub)
	}

	c := newTestCollector(src, sess)
	articles, err := c.Collect(context.Background(), "量子計算", 6)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if src.query != "量子計算" {
		t.Errorf("searched %q, want the given keywords", src.query)
	}
	if len(articles) != 4 {
		t.Fatalf("got %d articles, want 4", len(articles))
	}
	for i := 1; i < len(articles); i++ {
		if articles[i].Published.After(articles[i-1].Published) {
			t.Errorf("articles not sorted newest first at %d", i)
		}
	}
	if !sess.closed {
		t.Error("session was not closed")
	}
}

func TestCollectEmptyKeywordsUsesDefault(t *testing.T) {
	src := &fakeSource{}
	c := newTestCollector(src, &fakeSession{})

	if _, err := c.Collect(context.Background(), "   ", 6); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if src.query != "預設關鍵字" {
		t.Errorf("searched %q, want the default query", src.query)
	}
}

func TestCollectFeedErrorMeansZeroResults(t *testing.T) {
	src := &fakeSource{err: errors.New("feed is down")}
	sessionBuilt := false
	c := newTestCollector(src, nil)
	c.Sessions = func(ctx context.Context) (Session, error) {
		sessionBuilt = true
		return &fakeSession{}, nil
	}

	articles, err := c.Collect(context.Background(), "AI", 6)
	if err != nil {
		t.Errorf("feed failure should not surface an error, got %v", err)
	}
	if len(articles) != 0 {
		t.Errorf("got %d articles, want 0", len(articles))
	}
	if sessionBuilt {
		t.Error("no session should be opened when the feed fails")
	}
}

func TestCollectHonorsLimitAndSurvivesFailures(t *testing.T) {
	src := &fakeSource{}
	sess := &fakeSession{pages: map[string]*scraper.Extraction{}}
	for i := 1; i <= 10; i++ {
		pub := testNow.Add(-time.Duration(i) * time.Hour)
		src.entries = append(src.entries, entry(i, &pub))
		// Every third page fails extraction.
		if i%3 != 0 {
			sess.pages[fmt.Sprintf("https://example.com/%d", i)] = page(fmt.Sprintf("標題%d", i), pub)
		}
	}

	c := newTestCollector(src, sess)
	articles, err := c.Collect(context.Background(), "AI", 4)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(articles) != 4 {
		t.Errorf("got %d articles, want the limit of 4", len(articles))
	}
}

func TestCollectDeduplicatesResolvedURLs(t *testing.T) {
	pub := testNow.Add(-time.Hour)
	src := &fakeSource{entries: []feed.Entry{entry(1, &pub), entry(1, &pub), entry(2, &pub)}}
	sess := &fakeSession{pages: map[string]*scraper.Extraction{
		"https://example.com/1": page("同一篇", pub),
		"https://example.com/2": page("另一篇", pub),
	}}

	c := newTestCollector(src, sess)
	articles, err := c.Collect(context.Background(), "AI", 6)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(articles) != 2 {
		t.Errorf("got %d articles, want 2 after dedup", len(articles))
	}
}

func TestCollectDropsStaleAndDateless(t *testing.T) {
	fresh := testNow.Add(-time.Hour)
	stale := testNow.Add(-4 * 24 * time.Hour)

	src := &fakeSource{entries: []feed.Entry{entry(1, &fresh), entry(2, &stale), entry(3, nil)}}
	sess := &fakeSession{pages: map[string]*scraper.Extraction{
		"https://example.com/1": page("新的", fresh),
		"https://example.com/2": page("舊的", stale),
		"https://example.com/3": {Title: "沒日期", Text: "內文內文"},
	}}

	c := newTestCollector(src, sess)
	articles, err := c.Collect(context.Background(), "AI", 6)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(articles) != 1 || articles[0].Title != "新的" {
		t.Errorf("recency filter kept the wrong articles: %+v", articles)
	}
}

func TestCollectFallsBackToFeedDate(t *testing.T) {
	pub := testNow.Add(-2 * time.Hour)
	src := &fakeSource{entries: []feed.Entry{entry(1, &pub)}}
	sess := &fakeSession{pages: map[string]*scraper.Extraction{
		"https://example.com/1": {Title: "頁面無日期", Text: "內文內文"},
	}}

	c := newTestCollector(src, sess)
	articles, err := c.Collect(context.Background(), "AI", 6)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("got %d articles, want 1", len(articles))
	}
	if articles[0].Published.IsZero() {
		t.Error("feed publish date should backfill a dateless page")
	}
}
