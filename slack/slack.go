// Package slack posts pantry shortage reports to a Slack incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	webhookURL string
	httpClient doer
}

func NewClient(webhookURL string, httpClient doer) *Client {
	return &Client{
		webhookURL: webhookURL,
		httpClient: httpClient,
	}
}

func (c *Client) PostMessage(ctx context.Context, channel string, message string) error {
	payload, err := json.Marshal(map[string]any{
		"channel": channel,
		"text":    message,
		"mrkdwn":  true,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to post message: %s", resp.Status)
	}

	return nil
}

// Shortage is one ingredient a recipe could not fully draw from the pantry.
type Shortage struct {
	Ingredient string
	Missing    bool
	Short      float64
	Unit       string
	Warnings   []string
}

// FormatShortages renders a shortage report as Slack mrkdwn.
func FormatShortages(recipe string, shortages []Shortage, estimated []string) string {
	var b strings.Builder
	if len(shortages) == 0 {
		fmt.Fprintf(&b, ":white_check_mark: *%s*: everything is in the pantry.", recipe)
	} else {
		fmt.Fprintf(&b, ":warning: *%s* is short %d ingredient(s):", recipe, len(shortages))
		for _, s := range shortages {
			switch {
			case s.Missing:
				fmt.Fprintf(&b, "\n• %s: not in the pantry", s.Ingredient)
			case s.Unit != "":
				fmt.Fprintf(&b, "\n• %s: short %.2f %s", s.Ingredient, s.Short, s.Unit)
			default:
				fmt.Fprintf(&b, "\n• %s: short %.2f", s.Ingredient, s.Short)
			}
			for _, w := range s.Warnings {
				fmt.Fprintf(&b, "\n    _%s_", w)
			}
		}
	}
	if len(estimated) > 0 {
		fmt.Fprintf(&b, "\nEstimated conversions used for: %s", strings.Join(estimated, ", "))
	}
	return b.String()
}
