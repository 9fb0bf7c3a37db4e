package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestResolveFollowsRedirects(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/hop":
			http.Redirect(w, r, srv.URL+"/article", http.StatusFound)
		case "/article":
			w.Write([]byte("ok"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	r := NewResolver()
	got := r.Resolve(context.Background(), srv.URL+"/hop")
	if got != srv.URL+"/article" {
		t.Errorf("Resolve = %q, want the redirect target", got)
	}
}

func TestResolveReturnsLinkOnFailure(t *testing.T) {
	r := NewResolver()
	// Connection refused immediately; the link comes back unchanged.
	link := "http://127.0.0.1:1/unreachable"
	if got := r.Resolve(context.Background(), link); got != link {
		t.Errorf("Resolve = %q, want the original link", got)
	}
}

func TestURLFromQuery(t *testing.T) {
	cases := []struct {
		link string
		want string
	}{
		{"https://news.google.com/rss/articles/abc?url=https%3A%2F%2Fexample.com%2Fstory", "https://example.com/story"},
		{"https://news.google.com/rss/articles/abc", ""},
		{"https://evil.example.com/?url=https%3A%2F%2Fexample.com", ""},
	}
	for _, c := range cases {
		if got := urlFromQuery(c.link); got != c.want {
			t.Errorf("urlFromQuery(%q) = %q, want %q", c.link, got, c.want)
		}
	}
}

const sampleArticleHTML = `<!DOCTYPE html>
<html>
<head>
<title>量子電腦大突破 - 測試日報</title>
<meta property="article:published_time" content="2025-06-09T14:30:00+08:00">
</head>
<body>
<article>
<h1>量子電腦大突破</h1>
<p>研究團隊今天宣布，他們的量子處理器在新的基準測試中表現優異，
將錯誤率降到了前所未有的水準。這項成果被認為是通往實用量子運算的重要一步。</p>
<p>團隊負責人表示，下一階段的目標是擴充量子位元數量，並維持同樣的錯誤率。
業界專家認為這項技術可能在五年內進入商用階段。</p>
</article>
</body>
</html>`

func TestExtractFromHTML(t *testing.T) {
	s := NewScraper(200, true)

	result, err := s.extractFromHTML(sampleArticleHTML, "https://example.com/quantum")
	if err != nil {
		t.Fatalf("extractFromHTML: %v", err)
	}

	if !strings.Contains(result.Title, "量子電腦大突破") {
		t.Errorf("title = %q", result.Title)
	}
	if !strings.Contains(result.Text, "量子處理器") {
		t.Errorf("body text missing article content: %q", result.Text)
	}
	if result.Published.IsZero() {
		t.Fatal("publish date not extracted")
	}

	want := time.Date(2025, 6, 9, 14, 30, 0, 0, time.FixedZone("CST", 8*3600))
	if !result.Published.Equal(want) {
		t.Errorf("published = %v, want %v", result.Published, want)
	}
}

func TestCleanText(t *testing.T) {
	in := "第一行   有多餘  空白\n\n\n\n第二行\n   \n第三行"
	want := "第一行 有多餘 空白\n\n第二行\n\n第三行"
	if got := cleanText(in); got != want {
		t.Errorf("cleanText = %q, want %q", got, want)
	}
}

func TestExtractTitleFallbackOrder(t *testing.T) {
	html := `<html><head><title>頁面標題</title></head><body><h1>主標題</h1></body></html>`
	s := NewScraper(200, true)
	result, err := s.extractFromHTML(html, "https://example.com/x")
	if err != nil {
		t.Fatalf("extractFromHTML: %v", err)
	}
	if result.Title == "" {
		t.Error("expected a title from h1 or the title tag")
	}
}
