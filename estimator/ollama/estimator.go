// Package ollama estimates unit conversions with a model served by a local Ollama instance.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"pantrycook"
	"pantrycook/estimator"
)

type options struct {
	Temperature   float64 `json:"temperature,omitempty"`
	TopP          float64 `json:"top_p,omitempty"`
	RepeatPenalty float64 `json:"repeat_penalty,omitempty"`
	NumCtx        int     `json:"num_ctx,omitempty"`
}

type Client struct {
	endpoint   string
	model      string
	httpClient pantrycook.HTTPClient
	options    options
}

type ClientOpts struct {
	BaseEndpoint string
	ModelID      string
	HTTPClient   pantrycook.HTTPClient
}

func NewClient(opts ClientOpts) (*Client, error) {
	if strings.TrimSpace(opts.ModelID) == "" {
		return nil, fmt.Errorf("model id is required")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Client{
		model:      opts.ModelID,
		httpClient: opts.HTTPClient,
		endpoint:   strings.TrimRight(opts.BaseEndpoint, "/") + "/api/chat",
		options: options{
			Temperature:   0.1,
			TopP:          0.9,
			RepeatPenalty: 1.05,
			NumCtx:        2048,
		},
	}, nil
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Format   string        `json:"format"`
	Stream   bool          `json:"stream"`
	Options  options       `json:"options,omitempty"`
}

type wireResponse struct {
	Message wireMessage `json:"message"`
}

// Estimate asks the model for a JSON answer to req.
func (c *Client) Estimate(ctx context.Context, req estimator.Request) (estimator.Estimate, error) {
	slog.Info("ESTIMATOR: Ollama estimate requested", "item", req.Item, "from", req.FromUnit, "to", req.ToUnit, "model", c.model)

	reqBytes, err := json.Marshal(wireRequest{
		Model: c.model,
		Messages: []wireMessage{
			{Role: "system", Content: estimator.SystemPrompt},
			{Role: "user", Content: estimator.UserPrompt(req)},
		},
		Format:  "json",
		Stream:  false,
		Options: c.options,
	})
	if err != nil {
		return estimator.Estimate{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(reqBytes))
	if err != nil {
		return estimator.Estimate{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return estimator.Estimate{}, fmt.Errorf("ollama chat: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return estimator.Estimate{}, fmt.Errorf("ollama chat: %s: %s", resp.Status, string(body))
	}

	var wr wireResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return estimator.Estimate{}, fmt.Errorf("failed to decode ollama response: %w", err)
	}
	if strings.TrimSpace(wr.Message.Content) == "" {
		return estimator.Estimate{}, estimator.ErrNoEstimate
	}
	return estimator.ParseAnswer(wr.Message.Content)
}
