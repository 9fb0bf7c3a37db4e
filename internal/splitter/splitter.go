// Package splitter separates the optional <think> reasoning block from the
// formal part of an LLM reply and cuts text into transport-safe chunks. LINE
// counts message length in UTF-16 code units, so all budgets here do too.
package splitter

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf16"
)

const thinkingHeader = "⚙️ 我的思考過程：\n"

// DefaultLimit is LINE's hard cap for one text message.
const DefaultLimit = 5000

var thinkPattern = regexp.MustCompile(`(?is)<think>(.*?)</think>`)

type Splitter struct {
	Limit        int // max UTF-16 code units per message, DefaultLimit when zero
	ShowThinking bool
}

// Split separates a raw LLM reply into thinking and formal message chunks.
// The formal part is never empty when the input is non-empty: if the model
// produced nothing outside the think block, the markers are stripped and the
// remainder used, and as a last resort the raw text goes out verbatim.
func (s *Splitter) Split(raw string) (thinking []string, formal []string) {
	loc := thinkPattern.FindStringSubmatchIndex(raw)
	if loc == nil {
		if cleaned := strings.TrimSpace(raw); cleaned != "" {
			formal = s.Chunk(cleaned)
		}
		return nil, formal
	}

	thinkingText := strings.TrimSpace(raw[loc[2]:loc[3]])
	formalText := strings.TrimSpace(raw[loc[1]:])

	if thinkingText != "" && s.ShowThinking {
		thinking = s.Chunk(thinkingHeader + thinkingText)
	}

	if formalText == "" {
		formalText = strings.TrimSpace(thinkPattern.ReplaceAllString(raw, ""))
	}
	if formalText == "" {
		formalText = strings.TrimSpace(raw)
	}
	if formalText != "" {
		formal = s.Chunk(formalText)
	}
	return thinking, formal
}

// StripThink removes any think blocks, for text that is stored rather than
// delivered (stage-1 summaries, conversation history).
func StripThink(text string) string {
	return strings.TrimSpace(thinkPattern.ReplaceAllString(text, ""))
}

// Chunk splits text into messages no longer than the limit, preferring line
// boundaries and hard-slicing only over-long single paragraphs. Parts get a
// "(i/N)" prefix when the text did not fit in one message.
func (s *Splitter) Chunk(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	limit := s.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	if utf16Len(text) <= limit {
		return []string{strings.TrimSpace(text)}
	}

	var messages []string
	current := ""
	for _, para := range strings.Split(text, "\n") {
		if utf16Len(current+para+"\n") <= limit {
			current += para + "\n"
			continue
		}
		if current != "" {
			messages = append(messages, strings.TrimSpace(current))
			current = ""
		}
		if utf16Len(para) > limit {
			messages = append(messages, sliceByUTF16(para, limit)...)
		} else {
			current = para + "\n"
		}
	}
	if current != "" {
		messages = append(messages, strings.TrimSpace(current))
	}

	if len(messages) > 1 {
		for i, m := range messages {
			messages[i] = fmt.Sprintf("(%d/%d)\n%s", i+1, len(messages), m)
		}
	}
	return messages
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if len(utf16.AppendRune(nil, r)) == 2 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// sliceByUTF16 cuts on rune boundaries so a surrogate pair is never split
// across two messages.
func sliceByUTF16(s string, maxUnits int) []string {
	var parts []string
	var buf strings.Builder
	acc := 0
	for _, r := range s {
		u := 1
		if len(utf16.AppendRune(nil, r)) == 2 {
			u = 2
		}
		if acc+u > maxUnits {
			parts = append(parts, buf.String())
			buf.Reset()
			acc = 0
		}
		buf.WriteRune(r)
		acc += u
	}
	if buf.Len() > 0 {
		parts = append(parts, buf.String())
	}
	return parts
}
