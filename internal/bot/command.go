// Package bot holds the command surface and the event handler behind it.
package bot

import "strings"

type CommandKind int

const (
	KindNone CommandKind = iota // message does not address the bot
	KindHelp
	KindNews
	KindSubscribe
	KindShowSubscription
	KindUnsubscribe
	KindChat
)

// Command is the parsed form of one inbound message. Which fields are
// meaningful depends on Kind: Keywords for News and Subscribe, Text for Chat.
type Command struct {
	Kind     CommandKind
	Keywords string
	Text     string
}

// Parse interprets a message addressed to the bot. Messages that do not start
// with the trigger word yield KindNone and are ignored entirely.
func Parse(trigger, message string) Command {
	text := strings.TrimSpace(message)
	if !strings.HasPrefix(text, trigger) {
		return Command{Kind: KindNone}
	}
	text = strings.TrimSpace(strings.TrimPrefix(text, trigger))

	switch {
	case text == "" || equalsAny(text, "help", "幫助", "指令"):
		return Command{Kind: KindHelp}

	case text == "查看訂閱":
		return Command{Kind: KindShowSubscription}

	case text == "取消訂閱":
		return Command{Kind: KindUnsubscribe}

	case strings.HasPrefix(text, "訂閱"):
		return Command{
			Kind:     KindSubscribe,
			Keywords: strings.TrimSpace(strings.TrimPrefix(text, "訂閱")),
		}

	case hasAnyPrefix(text, "新聞摘要", "新聞", "news"):
		return Command{Kind: KindNews, Keywords: newsKeywords(text)}

	default:
		return Command{Kind: KindChat, Text: text}
	}
}

// newsKeywords strips the news command word and the optional keyword label
// from the remainder.
func newsKeywords(text string) string {
	for _, word := range []string{"新聞摘要", "新聞", "news"} {
		if strings.HasPrefix(text, word) {
			text = strings.TrimSpace(strings.TrimPrefix(text, word))
			break
		}
	}
	for _, label := range []string{"關鍵字:", "關鍵字："} {
		if strings.HasPrefix(text, label) {
			text = strings.TrimSpace(strings.TrimPrefix(text, label))
			break
		}
	}
	return text
}

func equalsAny(s string, options ...string) bool {
	for _, o := range options {
		if strings.EqualFold(s, o) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
