package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/deusflow/linenews/internal/metrics"
	"github.com/deusflow/linenews/internal/news"
	"github.com/deusflow/linenews/internal/splitter"
	"github.com/deusflow/linenews/internal/storage"
)

const HelpMessage = `🤖 新聞小幫手使用說明

/bot 新聞 [關鍵字]：立即產生新聞摘要
/bot 訂閱 [關鍵字]：訂閱每日定時新聞摘要
/bot 查看訂閱：查看目前的訂閱狀態
/bot 取消訂閱：取消訂閱
/bot 幫助：顯示本說明

其他訊息會直接跟我聊天 💬`

const ackMessage = "收到！正在為您客製化新聞摘要，請稍候... 🚀"

const chatSystemPrompt = "你是一位友善的聊天助理。請使用繁體中文回答，語氣自然、回覆簡潔。"

// generateTimeout bounds one full collect-summarize-deliver run.
const generateTimeout = 10 * time.Minute

// Event is one normalized inbound webhook event.
type Event struct {
	Type       string // "message", "follow", "unfollow"
	ReplyToken string
	ContextID  string // where replies go: user, group or room ID
	UserID     string
	IsGroup    bool
	Text       string
}

type Messenger interface {
	Send(ctx context.Context, to, replyToken string, messages []string) error
	Reply(ctx context.Context, replyToken, text string) error
	DisplayName(ctx context.Context, contextID, userID string) string
}

type Collector interface {
	Collect(ctx context.Context, keywords string, limit int) ([]news.Article, error)
}

type Digester interface {
	Generate(ctx context.Context, articles []news.Article) (string, error)
}

type Chatter interface {
	Chat(ctx context.Context, system string, history []storage.Message) (string, error)
}

// Handler dispatches inbound events to the news pipeline, the subscription
// store and the chat model.
type Handler struct {
	Trigger     string
	TargetCount int

	Messenger Messenger
	Collector Collector
	Digester  Digester
	Chatter   Chatter

	Prefs   storage.PreferenceStore
	History storage.HistoryStore
	Cache   storage.DigestCache
	Split   *splitter.Splitter

	Now func() time.Time

	// spawn runs the slow news flow off the webhook goroutine. Tests swap it
	// for a synchronous call.
	spawn func(func())
}

func NewHandler(trigger string, targetCount int, m Messenger, col Collector, d Digester, ch Chatter,
	prefs storage.PreferenceStore, history storage.HistoryStore, cache storage.DigestCache,
	split *splitter.Splitter) *Handler {
	return &Handler{
		Trigger:     trigger,
		TargetCount: targetCount,
		Messenger:   m,
		Collector:   col,
		Digester:    d,
		Chatter:     ch,
		Prefs:       prefs,
		History:     history,
		Cache:       cache,
		Split:       split,
		Now:         time.Now,
		spawn:       func(f func()) { go f() },
	}
}

// HandleEvent processes one webhook event. Errors are handled by replying
// with an apology where possible; the webhook endpoint itself always acks.
func (h *Handler) HandleEvent(ctx context.Context, ev Event) {
	switch ev.Type {
	case "follow":
		log.Printf("New follower: %s", ev.ContextID)
		pref := h.Prefs.Get(ev.ContextID)
		pref.Subscribed = true
		if err := h.Prefs.Put(ev.ContextID, pref); err != nil {
			log.Printf("⚠️ Failed to subscribe new follower %s: %v", ev.ContextID, err)
		}
		h.reply(ctx, ev.ReplyToken, "感謝加入好友！🎉 已為您訂閱每日新聞摘要。\n\n"+HelpMessage)
	case "unfollow":
		log.Printf("Unfollowed by: %s", ev.ContextID)
		pref := h.Prefs.Get(ev.ContextID)
		if pref.Subscribed {
			pref.Subscribed = false
			if err := h.Prefs.Put(ev.ContextID, pref); err != nil {
				log.Printf("⚠️ Failed to clear subscription for %s: %v", ev.ContextID, err)
			}
		}
	case "message":
		h.handleMessage(ctx, ev)
	default:
		log.Printf("Ignoring event type %q", ev.Type)
	}
}

func (h *Handler) handleMessage(ctx context.Context, ev Event) {
	if strings.TrimSpace(ev.Text) == "" {
		return
	}

	h.recordUserMessage(ctx, ev)

	cmd := Parse(h.Trigger, ev.Text)
	switch cmd.Kind {
	case KindNone:
		return
	case KindHelp:
		h.reply(ctx, ev.ReplyToken, HelpMessage)
	case KindNews:
		h.reply(ctx, ev.ReplyToken, ackMessage)
		to, keywords := ev.ContextID, cmd.Keywords
		h.spawn(func() {
			runCtx, cancel := context.WithTimeout(context.Background(), generateTimeout)
			defer cancel()
			if err := h.GenerateAndPush(runCtx, to, "", keywords); err != nil {
				log.Printf("⚠️ News flow for %s failed: %v", to, err)
			}
		})
	case KindSubscribe:
		h.handleSubscribe(ctx, ev, cmd.Keywords)
	case KindShowSubscription:
		h.handleShowSubscription(ctx, ev)
	case KindUnsubscribe:
		h.handleUnsubscribe(ctx, ev)
	case KindChat:
		h.handleChat(ctx, ev)
	}
}

// recordUserMessage appends the inbound text to the conversation history. In
// groups the speaker's display name is prefixed so the chat model can tell
// participants apart.
func (h *Handler) recordUserMessage(ctx context.Context, ev Event) {
	content := ev.Text
	if ev.IsGroup {
		if name := h.Messenger.DisplayName(ctx, ev.ContextID, ev.UserID); name != "" {
			content = name + ": " + content
		}
	}
	if err := h.History.Append(ev.ContextID, storage.Message{Role: storage.RoleUser, Content: content}); err != nil {
		log.Printf("⚠️ Failed to record history for %s: %v", ev.ContextID, err)
	}
}

// GenerateAndPush runs the full digest flow for one recipient: cache lookup,
// collection, two-stage summarization, cache fill, delivery. It is called
// from the command path and from scheduled chain jobs.
func (h *Handler) GenerateAndPush(ctx context.Context, to, replyToken, keywords string) error {
	started := h.Now()
	topic := strings.TrimSpace(keywords)
	key := storage.TopicKey(topic)

	if content, ok := h.Cache.Get(key); ok {
		metrics.Global.IncrementCacheHits()
		log.Printf("Cache hit for topic %q, serving stored digest", key)
		msg := fmt.Sprintf("這份新聞摘要根據「%s」主題產生（從快取提供😊）\n\n%s", displayTopic(topic), content)
		return h.Messenger.Send(ctx, to, replyToken, h.Split.Chunk(msg))
	}
	metrics.Global.IncrementCacheMisses()

	articles, err := h.Collector.Collect(ctx, topic, h.TargetCount)
	if err != nil {
		h.send(ctx, to, replyToken, "抱歉，產生新聞摘要時發生內部錯誤，請稍後再試 🙏")
		return fmt.Errorf("collect articles: %w", err)
	}
	if len(articles) == 0 {
		h.send(ctx, to, replyToken,
			fmt.Sprintf("抱歉，目前未能根據您的關鍵字「%s」找到可成功擷取的新聞。", displayTopic(topic)))
		return nil
	}

	raw, err := h.Digester.Generate(ctx, articles)
	if err != nil {
		h.send(ctx, to, replyToken, "抱歉，新聞摘要產生失敗，請稍後再試 🙏")
		return fmt.Errorf("generate digest: %w", err)
	}

	thinking, _ := h.Split.Split(raw)
	body := splitter.StripThink(raw)
	if body == "" {
		body = strings.TrimSpace(raw)
	}

	full := fmt.Sprintf("產生於 %s\n\n%s", h.Now().Format("2006-01-02 15:04"), body)
	if err := h.Cache.Put(key, full); err != nil {
		log.Printf("⚠️ Failed to cache digest for %q: %v", key, err)
	}

	labeled := fmt.Sprintf("這份新聞摘要根據「%s」主題產生\n\n%s", displayTopic(topic), full)
	messages := append(thinking, h.Split.Chunk(labeled)...)
	if err := h.Messenger.Send(ctx, to, replyToken, messages); err != nil {
		return err
	}

	metrics.Global.SetLastRun()
	metrics.Global.RecordRunDuration(h.Now().Sub(started))
	return nil
}

func (h *Handler) handleSubscribe(ctx context.Context, ev Event, keywords string) {
	pref := storage.Preference{Subscribed: true, Keywords: strings.TrimSpace(keywords)}
	if err := h.Prefs.Put(ev.ContextID, pref); err != nil {
		log.Printf("⚠️ Failed to save subscription for %s: %v", ev.ContextID, err)
		h.reply(ctx, ev.ReplyToken, "抱歉，訂閱設定儲存失敗，請稍後再試 🙏")
		return
	}
	h.reply(ctx, ev.ReplyToken,
		fmt.Sprintf("訂閱成功 ✅ 將依「%s」主題定時推送新聞摘要給您 📰", displayTopic(pref.Keywords)))
}

func (h *Handler) handleShowSubscription(ctx context.Context, ev Event) {
	pref := h.Prefs.Get(ev.ContextID)
	if !pref.Subscribed {
		h.reply(ctx, ev.ReplyToken, "您目前沒有訂閱新聞摘要。輸入「"+h.Trigger+" 訂閱」即可訂閱 📰")
		return
	}
	h.reply(ctx, ev.ReplyToken,
		fmt.Sprintf("您目前已訂閱新聞摘要，主題：「%s」", displayTopic(pref.Keywords)))
}

func (h *Handler) handleUnsubscribe(ctx context.Context, ev Event) {
	pref := h.Prefs.Get(ev.ContextID)
	if !pref.Subscribed {
		h.reply(ctx, ev.ReplyToken, "您目前沒有訂閱，無需取消。")
		return
	}
	pref.Subscribed = false
	if err := h.Prefs.Put(ev.ContextID, pref); err != nil {
		log.Printf("⚠️ Failed to save unsubscribe for %s: %v", ev.ContextID, err)
		h.reply(ctx, ev.ReplyToken, "抱歉，取消訂閱失敗，請稍後再試 🙏")
		return
	}
	h.reply(ctx, ev.ReplyToken, "已為您取消訂閱新聞摘要。")
}

func (h *Handler) handleChat(ctx context.Context, ev Event) {
	history := h.History.Get(ev.ContextID)
	raw, err := h.Chatter.Chat(ctx, chatSystemPrompt, history)
	if err != nil {
		log.Printf("⚠️ Chat completion failed for %s: %v", ev.ContextID, err)
		h.reply(ctx, ev.ReplyToken, "抱歉，我現在有點忙不過來，請稍後再試 🙏")
		return
	}

	thinking, formal := h.Split.Split(raw)
	if len(formal) == 0 {
		h.reply(ctx, ev.ReplyToken, "抱歉，我一時語塞了，請再說一次 🙏")
		return
	}

	messages := append(thinking, formal...)
	if err := h.Messenger.Send(ctx, ev.ContextID, ev.ReplyToken, messages); err != nil {
		log.Printf("⚠️ Failed to deliver chat reply to %s: %v", ev.ContextID, err)
		return
	}

	reply := strings.Join(formal, "\n")
	if err := h.History.Append(ev.ContextID, storage.Message{Role: storage.RoleAssistant, Content: reply}); err != nil {
		log.Printf("⚠️ Failed to record reply history for %s: %v", ev.ContextID, err)
	}
}

func (h *Handler) reply(ctx context.Context, replyToken, text string) {
	if err := h.Messenger.Reply(ctx, replyToken, text); err != nil {
		log.Printf("⚠️ Reply failed: %v", err)
	}
}

func (h *Handler) send(ctx context.Context, to, replyToken, text string) {
	if err := h.Messenger.Send(ctx, to, replyToken, []string{text}); err != nil {
		log.Printf("⚠️ Send failed: %v", err)
	}
}

func displayTopic(keywords string) string {
	if strings.TrimSpace(keywords) == "" {
		return "預設主題"
	}
	return keywords
}
