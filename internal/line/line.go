// Package line is a minimal LINE Messaging API client: signature validation,
// reply/push delivery with throttling, and profile lookups.
package line

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/deusflow/linenews/internal/cache"
	"github.com/deusflow/linenews/internal/metrics"
	"github.com/deusflow/linenews/internal/ratelimit"
)

const defaultBaseURL = "https://api.line.me/v2/bot"

// profileTTL bounds how long a display name is reused before re-fetching.
const profileTTL = 2 * time.Hour

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type Client struct {
	token   string
	baseURL string
	http    *http.Client

	pacer *ratelimit.Pacer
	sleep func(time.Duration)

	profiles *cache.Cache
}

func NewClient(token string, minPushInterval time.Duration) *Client {
	return &Client{
		token:    token,
		baseURL:  defaultBaseURL,
		http:     &http.Client{Timeout: 20 * time.Second},
		pacer:    ratelimit.NewPacer(minPushInterval),
		sleep:    time.Sleep,
		profiles: cache.New(),
	}
}

// ValidateSignature checks the webhook body against the X-Line-Signature
// header using the channel secret.
func ValidateSignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Send delivers messages to one recipient. The first message rides the reply
// token when one is available; everything else is pushed. A reply failure
// falls back to pushing the whole batch, but a push failure aborts the rest
// of the batch, since later chunks make no sense without the earlier ones.
func (c *Client) Send(ctx context.Context, to, replyToken string, messages []string) error {
	if len(messages) == 0 {
		return nil
	}

	rest := messages
	if replyToken != "" {
		if err := c.Reply(ctx, replyToken, messages[0]); err != nil {
			log.Printf("⚠️ Reply failed, pushing full batch instead: %v", err)
		} else {
			rest = messages[1:]
		}
	}

	for _, msg := range rest {
		if err := c.Push(ctx, to, msg); err != nil {
			return fmt.Errorf("push to %s: %w", to, err)
		}
	}
	return nil
}

// Reply consumes a reply token. Tokens are single-use and short-lived, so
// there is no retry here.
func (c *Client) Reply(ctx context.Context, replyToken, text string) error {
	payload := map[string]interface{}{
		"replyToken": replyToken,
		"messages":   []textMessage{{Type: "text", Text: text}},
	}

	status, body, err := c.post(ctx, "/message/reply", payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("reply API returned %d: %s", status, body)
	}
	metrics.Global.IncrementMessagesSent()
	return nil
}

// Push sends one message, throttled to the minimum push interval. A 429 gets
// a single retry after an extended backoff; any other failure is final.
func (c *Client) Push(ctx context.Context, to, text string) error {
	payload := map[string]interface{}{
		"to":       to,
		"messages": []textMessage{{Type: "text", Text: text}},
	}

	c.pacer.Wait()
	status, body, err := c.post(ctx, "/message/push", payload)
	if err != nil {
		return err
	}

	if status == http.StatusTooManyRequests {
		backoff := time.Duration(2.5 * float64(c.pacer.Interval()))
		log.Printf("⚠️ Push rate limited, retrying once in %s", backoff)
		c.sleep(backoff)
		status, body, err = c.post(ctx, "/message/push", payload)
		if err != nil {
			return err
		}
	}

	if status != http.StatusOK {
		return fmt.Errorf("push API returned %d: %s", status, body)
	}
	metrics.Global.IncrementMessagesSent()
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (int, string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("LINE API request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, string(body), nil
}
