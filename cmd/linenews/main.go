package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/deusflow/linenews/internal/bot"
	"github.com/deusflow/linenews/internal/chain"
	"github.com/deusflow/linenews/internal/config"
	"github.com/deusflow/linenews/internal/digest"
	"github.com/deusflow/linenews/internal/feed"
	"github.com/deusflow/linenews/internal/gemini"
	"github.com/deusflow/linenews/internal/line"
	"github.com/deusflow/linenews/internal/logger"
	"github.com/deusflow/linenews/internal/news"
	"github.com/deusflow/linenews/internal/scraper"
	"github.com/deusflow/linenews/internal/splitter"
	"github.com/deusflow/linenews/internal/storage"
	"github.com/deusflow/linenews/internal/webhook"
)

// startupRunDelay gives the HTTP server time to come up before an immediate
// broadcast kicks off.
const startupRunDelay = 15 * time.Second

func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Config error: %v", err)
	}

	ctx := context.Background()

	prefs, err := storage.NewFilePreferenceStore(cfg.PreferencesFile)
	if err != nil {
		log.Fatalf("❌ Failed to load preferences: %v", err)
	}
	history, err := storage.NewFileHistoryStore(cfg.HistoryFile, cfg.MaxHistoryMessages)
	if err != nil {
		log.Fatalf("❌ Failed to load conversation history: %v", err)
	}
	digestCache, err := storage.NewFileDigestCache(cfg.NewsCacheFile, cfg.NewsCacheTTL)
	if err != nil {
		log.Fatalf("❌ Failed to load news cache: %v", err)
	}

	llm, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Fatalf("❌ Failed to create Gemini client: %v", err)
	}
	defer llm.Close()

	collector := news.NewCollector(
		feed.NewClient(scraper.DefaultUserAgent),
		scraper.NewResolver(),
		scraper.NewScraper(cfg.MinArticleChars, cfg.RenderHeadless),
		cfg.DefaultNewsKeywords,
		cfg.NewsFetchDaysLimit,
	)

	messenger := line.NewClient(cfg.LineChannelAccessToken, cfg.MinPushInterval)
	pipeline := digest.NewPipeline(llm, cfg.SummaryCallDelay)
	split := &splitter.Splitter{Limit: cfg.MaxMessageLength, ShowThinking: cfg.ShowThinking}

	handler := bot.NewHandler(cfg.TriggerWord, cfg.NewsFetchTargetCount,
		messenger, collector, pipeline, llm, prefs, history, digestCache, split)

	runner := chain.NewRunner(func(ctx context.Context, r chain.Recipient) error {
		return handler.GenerateAndPush(ctx, r.ID, "", r.Keywords)
	}, cfg.ChainStepDelay)

	broadcast := func() {
		recipients := subscribedRecipients(prefs)
		log.Printf(">>> Scheduled broadcast: %d subscriber(s)", len(recipients))
		runner.Launch(ctx, recipients)
	}

	scheduler, err := newScheduler(cfg.PushTimes, cfg.Timezone, broadcast)
	if err != nil {
		log.Fatalf("❌ Scheduler error: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	if cfg.RunOnStartup {
		log.Printf("Startup broadcast scheduled in %s", startupRunDelay)
		time.AfterFunc(startupRunDelay, broadcast)
	}

	server := webhook.NewServer(cfg.LineChannelSecret, handler)
	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("🚀 linenews listening on %s (push times %v %s)", addr, cfg.PushTimes, cfg.Timezone)
	if err := http.ListenAndServe(addr, server); err != nil {
		log.Fatalf("❌ Server error: %v", err)
	}
}

func subscribedRecipients(prefs storage.PreferenceStore) []chain.Recipient {
	var out []chain.Recipient
	for id, p := range prefs.All() {
		if p.Subscribed {
			out = append(out, chain.Recipient{ID: id, Keywords: p.Keywords})
		}
	}
	return out
}

// newScheduler registers one daily cron entry per "HH:MM" push time, in the
// configured timezone.
func newScheduler(pushTimes []string, timezone string, job func()) (*cron.Cron, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}

	c := cron.New(cron.WithLocation(loc))
	for _, pt := range pushTimes {
		hour, minute, err := parsePushTime(pt)
		if err != nil {
			return nil, err
		}
		spec := fmt.Sprintf("%d %d * * *", minute, hour)
		if _, err := c.AddFunc(spec, job); err != nil {
			return nil, fmt.Errorf("schedule %q: %w", pt, err)
		}
	}
	return c, nil
}

func parsePushTime(s string) (hour, minute int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("push time %q is not HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("push time %q has a bad hour", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("push time %q has a bad minute", s)
	}
	return hour, minute, nil
}
