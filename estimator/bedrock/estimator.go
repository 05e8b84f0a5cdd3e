// Package bedrock estimates unit conversions with a model served by Amazon Bedrock.
package bedrock

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"pantrycook/estimator"
)

const (
	// defaultModelID is an inference profile ID, not the foundation model's ID.
	// See https://docs.aws.amazon.com/bedrock/latest/userguide/inference-profiles.html.
	defaultModelID = "us.anthropic.claude-3-7-sonnet-20250219-v1:0"

	// Answers are a single small JSON object.
	defaultMaxTokens = 128

	defaultTemperature = 0.1
	defaultTopP        = 0.9
)

type bedrockRuntimeClient interface {
	Converse(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type LLMOptions struct {
	ModelID     string
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

type Estimator struct {
	brc  bedrockRuntimeClient
	opts LLMOptions
}

func NewEstimator(brc bedrockRuntimeClient, opts LLMOptions) *Estimator {
	if opts.ModelID == "" {
		opts.ModelID = defaultModelID
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.TopP == 0 {
		opts.TopP = defaultTopP
	}
	return &Estimator{
		brc:  brc,
		opts: opts,
	}
}

func (e *Estimator) Estimate(ctx context.Context, req estimator.Request) (estimator.Estimate, error) {
	slog.Info("ESTIMATOR: Bedrock estimate requested",
		"item", req.Item,
		"from", req.FromUnit,
		"to", req.ToUnit,
		"model", e.opts.ModelID)

	in := &bedrockruntime.ConverseInput{
		ModelId: aws.String(e.opts.ModelID),
		System: []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: estimator.SystemPrompt},
		},
		Messages: []types.Message{{
			Role: types.ConversationRoleUser,
			Content: []types.ContentBlock{
				&types.ContentBlockMemberText{Value: estimator.UserPrompt(req)},
			},
		}},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(e.opts.MaxTokens),
			Temperature: aws.Float32(e.opts.Temperature),
			TopP:        aws.Float32(e.opts.TopP),
		},
	}

	out, err := e.brc.Converse(ctx, in)
	if err != nil {
		slog.Error("ESTIMATOR: Bedrock invoke failed", "error", err)
		return estimator.Estimate{}, fmt.Errorf("bedrock converse: %w", err)
	}

	if out.Usage != nil {
		slog.Info("ESTIMATOR: Bedrock invoke succeeded",
			"stop_reason", out.StopReason,
			"input_tokens", aws.ToInt32(out.Usage.InputTokens),
			"output_tokens", aws.ToInt32(out.Usage.OutputTokens))
	}

	switch out.StopReason {
	case types.StopReasonMaxTokens:
		return estimator.Estimate{}, fmt.Errorf("model hit MaxTokens limit")
	case types.StopReasonGuardrailIntervened, types.StopReasonContentFiltered:
		return estimator.Estimate{}, fmt.Errorf("model response blocked by Bedrock safety filters")
	}

	text := textFromOutput(out)
	if text == "" {
		return estimator.Estimate{}, estimator.ErrNoEstimate
	}
	return estimator.ParseAnswer(text)
}

// textFromOutput joins the assistant's text blocks.
func textFromOutput(out *bedrockruntime.ConverseOutput) string {
	if out == nil || out.Output == nil {
		return ""
	}
	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || msg == nil {
		return ""
	}

	var texts []string
	for _, cb := range msg.Value.Content {
		if t, ok := cb.(*types.ContentBlockMemberText); ok && t.Value != "" {
			texts = append(texts, t.Value)
		}
	}
	return strings.Join(texts, "\n")
}
