// Package digest turns collected articles into one broadcast-ready script
// through two model passes: per-article compression, then a single synthesis
// call over the compressed summaries.
package digest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/deusflow/linenews/internal/metrics"
	"github.com/deusflow/linenews/internal/news"
	"github.com/deusflow/linenews/internal/splitter"
)

var (
	ErrNoArticles  = errors.New("no articles to summarize")
	ErrNoSummaries = errors.New("every article summary failed")
)

// maxArticleRunes caps how much of an article body goes into the stage-one
// prompt.
const maxArticleRunes = 8000

const summaryPrompt = "你是一位專業的新聞編輯。請將以下新聞內容濃縮成一段簡潔的摘要，" +
	"長度不超過150字，保留最重要的事實與數據，使用繁體中文。"

const synthesisPromptFormat = "你是一位風趣的科技新聞播客主持人。今天是 %s。" +
	"請根據以下多則新聞摘要，撰寫一份適合在通訊軟體上發送的新聞整理。要求：\n" +
	"1. 每則新聞以「標題: 」開頭，後接該則新聞的標題。\n" +
	"2. 語氣輕鬆，適度使用表情符號。\n" +
	"3. 開頭簡短問候，結尾提醒讀者內容由 AI 整理，請以原始報導為準。\n" +
	"4. 總長度不超過500字。\n" +
	"請使用繁體中文。"

// LLM is the single-call surface the pipeline needs from the model client.
type LLM interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Pipeline runs the two summarization stages. Pace is called between
// consecutive stage-one calls to stay inside the model's rate limits.
type Pipeline struct {
	LLM  LLM
	Pace func()
	Now  func() time.Time
}

func NewPipeline(llm LLM, callDelay time.Duration) *Pipeline {
	return &Pipeline{
		LLM:  llm,
		Pace: func() { time.Sleep(callDelay) },
		Now:  time.Now,
	}
}

// Generate produces the final digest text for the articles. Individual
// article summaries may fail and are skipped; only a full wipeout of stage
// one, or a stage-two failure, aborts the digest.
func (p *Pipeline) Generate(ctx context.Context, articles []news.Article) (string, error) {
	if len(articles) == 0 {
		return "", ErrNoArticles
	}

	summaries := p.summarizeAll(ctx, articles)
	if len(summaries) == 0 {
		return "", ErrNoSummaries
	}

	return p.synthesize(ctx, summaries)
}

type articleSummary struct {
	article news.Article
	text    string
}

// summarizeAll compresses each article in input order. Failed articles are
// dropped; the survivors keep their relative order.
func (p *Pipeline) summarizeAll(ctx context.Context, articles []news.Article) []articleSummary {
	var summaries []articleSummary

	for i, a := range articles {
		if i > 0 && p.Pace != nil {
			p.Pace()
		}

		log.Printf(">>> Summarizing article %d/%d: %s", i+1, len(articles), a.Title)
		body := a.Text
		if runes := []rune(body); len(runes) > maxArticleRunes {
			body = string(runes[:maxArticleRunes])
		}

		user := fmt.Sprintf("新聞標題：%s\n\n新聞內容：\n%s", a.Title, body)
		raw, err := p.LLM.Complete(ctx, summaryPrompt, user)
		if err != nil {
			log.Printf("⚠️ Summary failed for %q: %v", a.Title, err)
			metrics.Global.IncrementSummaryFailures()
			continue
		}

		text := strings.TrimSpace(splitter.StripThink(raw))
		if text == "" {
			log.Printf("⚠️ Empty summary for %q, skipping", a.Title)
			metrics.Global.IncrementSummaryFailures()
			continue
		}

		summaries = append(summaries, articleSummary{article: a, text: text})
		metrics.Global.IncrementSummariesGenerated()
	}
	return summaries
}

// synthesize runs the single stage-two call over all surviving summaries.
func (p *Pipeline) synthesize(ctx context.Context, summaries []articleSummary) (string, error) {
	var sb strings.Builder
	for i, s := range summaries {
		fmt.Fprintf(&sb, "新聞 %d (發布於: %s):\n標題: %s\n摘要內容: %s\n---\n",
			i+1, publishedLabel(s.article.Published), s.article.Title, s.text)
	}

	system := fmt.Sprintf(synthesisPromptFormat, p.Now().Format("2006-01-02"))
	out, err := p.LLM.Complete(ctx, system, sb.String())
	if err != nil {
		return "", fmt.Errorf("synthesize digest: %w", err)
	}
	return out, nil
}

func publishedLabel(t time.Time) string {
	if t.IsZero() {
		return "日期未知"
	}
	return t.Format("2006-01-02 15:04")
}
