package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSourceFromTitle(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"量子電腦大突破 - 測試日報", "測試日報"},
		{"AI 晶片 - 產業觀察 - 科技週刊", "科技週刊"},
		{"沒有來源的標題", "未知來源"},
	}
	for _, c := range cases {
		if got := sourceFromTitle(c.title); got != c.want {
			t.Errorf("sourceFromTitle(%q) = %q, want %q", c.title, got, c.want)
		}
	}
}

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>搜尋結果</title>
<item>
<title>量子電腦大突破 - 測試日報</title>
<link>https://news.example.com/articles/1</link>
<pubDate>Mon, 09 Jun 2025 06:30:00 GMT</pubDate>
</item>
<item>
<title>沒有日期的新聞 - 另一家媒體</title>
<link>https://news.example.com/articles/2</link>
</item>
</channel>
</rss>`

func TestSearchParsesEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	c := NewClient("test-agent")
	// Point the parser at the local fixture instead of the real endpoint.
	entries, err := c.parseEntries(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("parseEntries: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Source != "測試日報" {
		t.Errorf("source = %q", entries[0].Source)
	}
	if entries[0].Published == nil {
		t.Error("first entry should carry a parsed date")
	}
	if entries[1].Published != nil {
		t.Error("dateless entry should have a nil date")
	}
}
