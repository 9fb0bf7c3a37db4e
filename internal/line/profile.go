package line

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/deusflow/linenews/internal/retry"
)

type profileResponse struct {
	DisplayName string `json:"displayName"`
}

// DisplayName resolves a member's display name, cached for a while since
// names change rarely and every group message needs one. Returns "" when the
// profile cannot be fetched; callers fall back to an anonymous label.
func (c *Client) DisplayName(ctx context.Context, contextID, userID string) string {
	cacheKey := contextID + "/" + userID
	if v, ok := c.profiles.Get(cacheKey); ok {
		return v.(string)
	}

	name, err := c.fetchDisplayName(ctx, contextID, userID)
	if err != nil {
		return ""
	}

	c.profiles.Set(cacheKey, name, profileTTL)
	return name
}

func (c *Client) fetchDisplayName(ctx context.Context, contextID, userID string) (string, error) {
	path := profilePath(contextID, userID)

	var name string
	err := retry.WithRetry(ctx, retry.RetryConfig{MaxAttempts: 2, Delay: time.Second}, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("profile request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("profile API returned %d", resp.StatusCode)
		}

		var pr profileResponse
		if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
			return fmt.Errorf("decode profile: %w", err)
		}
		name = pr.DisplayName
		return nil
	})
	return name, err
}

// profilePath picks the member-profile endpoint matching the context kind.
// Group and room IDs start with G and R; everything else is a direct chat.
func profilePath(contextID, userID string) string {
	switch {
	case strings.HasPrefix(contextID, "G"):
		return "/group/" + contextID + "/member/" + userID
	case strings.HasPrefix(contextID, "R"):
		return "/room/" + contextID + "/member/" + userID
	default:
		return "/profile/" + userID
	}
}
