// Package openai generates narration scripts with the OpenAI chat API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/sakif/shortsgen/internal/provider"
)

const providerName = "openai"

// Config configures the script writer.
type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	MaxTokens    int64
	// Temperature is sent when non-nil, including 0.
	Temperature *float64
	MaxRetries  int
	Timeout     time.Duration
}

// ScriptWriter implements provider.ScriptGenerator.
type ScriptWriter struct {
	client openai.Client
	cfg    Config
	logger *slog.Logger
}

var _ provider.ScriptGenerator = (*ScriptWriter)(nil)

// NewScriptWriter builds an openai-go client. MaxRetries is handed to the
// SDK, which owns retries for this provider.
func NewScriptWriter(cfg Config, logger *slog.Logger) *ScriptWriter {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &ScriptWriter{
		client: openai.NewClient(opts...),
		cfg:    cfg,
		logger: logger,
	}
}

// Prompt is the user message sent for a topic.
func Prompt(topic string) string {
	return fmt.Sprintf("Write a concise, engaging YouTube video script for the topic: '%s'. "+
		"The script should be informative, friendly, and suitable for a general audience. "+
		"Length: about 60-90 seconds.", topic)
}

// GenerateScript asks for a script about topic and returns the trimmed
// reply. An empty reply is a malformed failure.
func (w *ScriptWriter) GenerateScript(ctx context.Context, topic string) (string, error) {
	if w.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.Timeout)
		defer cancel()
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(w.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(w.cfg.SystemPrompt),
			openai.UserMessage(Prompt(topic)),
		},
	}
	if w.cfg.MaxTokens > 0 {
		params.MaxTokens = openai.Int(w.cfg.MaxTokens)
	}
	if w.cfg.Temperature != nil {
		params.Temperature = openai.Float(*w.cfg.Temperature)
	}

	start := time.Now()
	resp, err := w.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}

	if len(resp.Choices) == 0 {
		return "", provider.MalformedFailure(providerName, errors.New("no choices in completion"))
	}

	script := strings.TrimSpace(resp.Choices[0].Message.Content)
	if script == "" {
		return "", provider.MalformedFailure(providerName, errors.New("empty completion content"))
	}

	w.logger.Debug("script generated",
		slog.String("topic", topic),
		slog.String("model", resp.Model),
		slog.Int64("total_tokens", resp.Usage.TotalTokens),
		slog.Duration("took", time.Since(start)),
	)

	return script, nil
}

func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error()
		}
		return provider.StatusFailure(providerName, apiErr.StatusCode, msg)
	}
	return provider.TransportFailure(providerName, err)
}
