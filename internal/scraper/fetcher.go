package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	readability "github.com/go-shiori/go-readability"
)

// ErrContentTooShort marks a candidate whose page yielded no usable body on
// either path. It filters the candidate out; it is not a pipeline failure.
var ErrContentTooShort = errors.New("article content too short")

// minAcceptChars is the floor below which an extraction is discarded even
// after the render fallback.
const minAcceptChars = 50

// Extraction is the best-effort result for one article URL.
type Extraction struct {
	Title     string
	Text      string
	Published time.Time // zero when no date signal was found on the page
}

// Scraper fetches article bodies: a fast static path first, and a dynamic
// render fallback when the static body is too short.
type Scraper struct {
	client    *http.Client
	userAgent string
	minChars  int // static body shorter than this triggers the fallback
	headless  bool
}

func NewScraper(minChars int, headless bool) *Scraper {
	return &Scraper{
		client:    &http.Client{Timeout: 15 * time.Second},
		userAgent: DefaultUserAgent,
		minChars:  minChars,
		headless:  headless,
	}
}

// Session owns the dynamic-render browser for one collection run. The
// browser process is shared by every article in the run and must be released
// with Close on all exit paths.
type Session struct {
	scraper  *Scraper
	renderer *Renderer
}

func (s *Scraper) NewSession(ctx context.Context) (*Session, error) {
	renderer, err := NewRenderer(ctx, s.headless, s.userAgent)
	if err != nil {
		return nil, fmt.Errorf("start renderer: %w", err)
	}
	return &Session{scraper: s, renderer: renderer}, nil
}

func (sess *Session) Close() {
	sess.renderer.Close()
}

// Extract returns the article at url, falling back to dynamic rendering when
// the static extraction is shorter than the configured minimum.
func (sess *Session) Extract(ctx context.Context, pageURL string) (*Extraction, error) {
	s := sess.scraper

	result, err := s.extractStatic(ctx, pageURL)
	if err != nil {
		log.Printf("⚠️ Static fetch failed for %s: %v", pageURL, err)
		result = &Extraction{}
	}

	if utf8.RuneCountInString(result.Text) < s.minChars {
		log.Printf("Content too short (%d chars), trying render fallback: %s",
			utf8.RuneCountInString(result.Text), pageURL)
		if rendered, rerr := sess.extractRendered(ctx, pageURL); rerr != nil {
			log.Printf("⚠️ Render fallback failed for %s: %v", pageURL, rerr)
		} else if len(rendered.Text) > len(result.Text) {
			result = rendered
		}
	}

	if result.Title == "" || utf8.RuneCountInString(result.Text) <= minAcceptChars {
		return nil, ErrContentTooShort
	}
	return result, nil
}

func (s *Scraper) extractStatic(ctx context.Context, pageURL string) (*Extraction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("error reading page: %w", err)
	}

	return s.extractFromHTML(buf.String(), pageURL)
}

func (sess *Session) extractRendered(ctx context.Context, pageURL string) (*Extraction, error) {
	html, err := sess.renderer.FetchHTML(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return sess.scraper.extractFromHTML(html, pageURL)
}

func (s *Scraper) extractFromHTML(html, pageURL string) (*Extraction, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		parsed = nil
	}

	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return nil, fmt.Errorf("error extracting content: %w", err)
	}

	result := &Extraction{
		Title: strings.TrimSpace(article.Title),
		Text:  cleanText(article.TextContent),
	}

	// goquery pass for bits readability doesn't surface
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		if result.Title == "" {
			result.Title = extractTitle(doc)
		}
		result.Published = extractPublishDate(doc)
	}
	return result, nil
}

// extractTitle gets the article title from common locations.
func extractTitle(doc *goquery.Document) string {
	selectors := []string{
		"h1",
		"title",
		".article-title",
		".headline",
		".entry-title",
	}

	for _, selector := range selectors {
		title := strings.TrimSpace(doc.Find(selector).First().Text())
		if title != "" {
			return title
		}
	}
	return ""
}

// extractPublishDate scans the usual metadata slots for a publish timestamp.
func extractPublishDate(doc *goquery.Document) time.Time {
	candidates := []string{}

	metaSelectors := []struct {
		selector string
		attr     string
	}{
		{`meta[property="article:published_time"]`, "content"},
		{`meta[itemprop="datePublished"]`, "content"},
		{`meta[name="pubdate"]`, "content"},
		{`meta[name="date"]`, "content"},
		{`time[datetime]`, "datetime"},
	}
	for _, ms := range metaSelectors {
		if v, ok := doc.Find(ms.selector).First().Attr(ms.attr); ok && strings.TrimSpace(v) != "" {
			candidates = append(candidates, strings.TrimSpace(v))
		}
	}

	for _, c := range candidates {
		if t, err := dateparse.ParseAny(c); err == nil {
			return t.Local()
		}
	}
	return time.Time{}
}

// cleanText normalizes extracted text: collapses runs of spaces inside lines
// and runs of blank lines between paragraphs.
func cleanText(text string) string {
	lines := strings.Split(text, "\n")
	var cleaned []string
	blank := true
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank {
				cleaned = append(cleaned, "")
			}
			blank = true
			continue
		}
		cleaned = append(cleaned, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}
