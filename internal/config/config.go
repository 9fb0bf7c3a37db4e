package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// LINE settings
	LineChannelAccessToken string
	LineChannelSecret      string
	MinPushInterval        time.Duration
	MaxMessageLength       int // UTF-16 code units per message

	// Gemini settings
	GeminiAPIKey     string
	GeminiModel      string
	SummaryCallDelay time.Duration // pause between stage-1 summary calls

	// Bot settings
	TriggerWord         string
	DefaultNewsKeywords string
	MaxHistoryMessages  int
	ShowThinking        bool

	// News settings
	NewsFetchTargetCount int
	NewsFetchDaysLimit   int
	MinArticleChars      int // static extraction shorter than this triggers the render fallback
	RenderHeadless       bool

	// Cache settings
	NewsCacheTTL time.Duration

	// Scheduling
	PushTimes      []string // "HH:MM" local times for daily broadcasts
	Timezone       string
	ChainStepDelay time.Duration
	RunOnStartup   bool

	// Files
	PreferencesFile string
	HistoryFile     string
	NewsCacheFile   string

	// App settings
	Port           int
	Debug          bool
	RequestTimeout time.Duration
}

// fileConfig is the optional YAML config shape (configs/linenews.yaml).
type fileConfig struct {
	TriggerWord         string   `yaml:"trigger_word"`
	DefaultNewsKeywords string   `yaml:"default_news_keywords"`
	PushTimes           []string `yaml:"push_times"`
	Timezone            string   `yaml:"timezone"`
	GeminiModel         string   `yaml:"gemini_model"`
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		MinPushInterval:      1200 * time.Millisecond,
		MaxMessageLength:     4800,
		GeminiModel:          "gemini-1.5-flash",
		SummaryCallDelay:     30 * time.Second,
		TriggerWord:          "/bot",
		DefaultNewsKeywords:  "大型語言模型 OR LLM OR 生成式AI OR OpenAI OR Gemini OR Claude",
		MaxHistoryMessages:   50,
		NewsFetchTargetCount: 6,
		NewsFetchDaysLimit:   3,
		MinArticleChars:      200,
		RenderHeadless:       true,
		NewsCacheTTL:         4 * time.Hour,
		PushTimes:            []string{"09:00", "16:00"},
		Timezone:             "Asia/Taipei",
		ChainStepDelay:       10 * time.Second,
		PreferencesFile:      "user_preferences.json",
		HistoryFile:          "conversation_history.json",
		NewsCacheFile:        "news_cache.json",
		Port:                 5000,
		RequestTimeout:       20 * time.Second,
	}

	if err := cfg.loadFile(getEnvOrDefault("CONFIG_FILE", "configs/linenews.yaml")); err != nil {
		return nil, err
	}

	// Load from environment
	cfg.LineChannelAccessToken = os.Getenv("LINE_CHANNEL_ACCESS_TOKEN")
	cfg.LineChannelSecret = os.Getenv("LINE_CHANNEL_SECRET")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")

	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.GeminiModel = v
	}
	if v := os.Getenv("BOT_TRIGGER_WORD"); v != "" {
		cfg.TriggerWord = v
	}
	if v := os.Getenv("DEFAULT_NEWS_KEYWORDS"); v != "" {
		cfg.DefaultNewsKeywords = v
	}
	if v := os.Getenv("TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
	if v := os.Getenv("PUSH_TIMES"); v != "" {
		var times []string
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				times = append(times, t)
			}
		}
		if len(times) > 0 {
			cfg.PushTimes = times
		}
	}

	cfg.MaxMessageLength = getEnvIntOrDefault("MAX_MESSAGE_LENGTH", cfg.MaxMessageLength)
	cfg.MaxHistoryMessages = getEnvIntOrDefault("MAX_HISTORY_MESSAGES", cfg.MaxHistoryMessages)
	cfg.NewsFetchTargetCount = getEnvIntOrDefault("NEWS_FETCH_TARGET_COUNT", cfg.NewsFetchTargetCount)
	cfg.NewsFetchDaysLimit = getEnvIntOrDefault("NEWS_FETCH_DAYS_LIMIT", cfg.NewsFetchDaysLimit)
	cfg.MinArticleChars = getEnvIntOrDefault("MIN_ARTICLE_CHARS", cfg.MinArticleChars)
	cfg.Port = getEnvIntOrDefault("PORT", cfg.Port)

	if v := getEnvFloat("LINE_MIN_PUSH_INTERVAL_SEC"); v > 0 {
		cfg.MinPushInterval = time.Duration(v * float64(time.Second))
	}
	if v := getEnvFloat("SUMMARY_CALL_DELAY_SEC"); v > 0 {
		cfg.SummaryCallDelay = time.Duration(v * float64(time.Second))
	}
	if v := getEnvFloat("CHAIN_STEP_DELAY_SEC"); v > 0 {
		cfg.ChainStepDelay = time.Duration(v * float64(time.Second))
	}
	if v := getEnvIntOrDefault("NEWS_CACHE_TTL_HOURS", 0); v > 0 {
		cfg.NewsCacheTTL = time.Duration(v) * time.Hour
	}

	cfg.PreferencesFile = getEnvOrDefault("USER_PREFERENCES_FILE", cfg.PreferencesFile)
	cfg.HistoryFile = getEnvOrDefault("CONVERSATION_HISTORY_FILE", cfg.HistoryFile)
	cfg.NewsCacheFile = getEnvOrDefault("NEWS_CACHE_FILE", cfg.NewsCacheFile)

	cfg.ShowThinking = os.Getenv("SHOW_THINKING_PROCESS") == "true"
	cfg.RunOnStartup = os.Getenv("RUN_JOB_ON_STARTUP") == "true"
	cfg.Debug = os.Getenv("DEBUG") == "true"
	if v := os.Getenv("RENDER_HEADLESS"); v != "" {
		cfg.RenderHeadless = v != "false"
	}

	return cfg, cfg.Validate()
}

// loadFile merges the optional YAML config. A missing file is not an error.
func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	var fc fileConfig
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.TriggerWord != "" {
		c.TriggerWord = fc.TriggerWord
	}
	if fc.DefaultNewsKeywords != "" {
		c.DefaultNewsKeywords = fc.DefaultNewsKeywords
	}
	if len(fc.PushTimes) > 0 {
		c.PushTimes = fc.PushTimes
	}
	if fc.Timezone != "" {
		c.Timezone = fc.Timezone
	}
	if fc.GeminiModel != "" {
		c.GeminiModel = fc.GeminiModel
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return 0
}

func (c *Config) Validate() error {
	if c.LineChannelAccessToken == "" {
		return fmt.Errorf("LINE_CHANNEL_ACCESS_TOKEN is required")
	}
	if c.LineChannelSecret == "" {
		return fmt.Errorf("LINE_CHANNEL_SECRET is required")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.NewsFetchTargetCount <= 0 {
		return fmt.Errorf("NEWS_FETCH_TARGET_COUNT must be positive")
	}
	if c.MaxMessageLength <= 0 {
		return fmt.Errorf("MAX_MESSAGE_LENGTH must be positive")
	}
	return nil
}
