package groq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"raaee/internal/domain"
)

const systemPersona = `
آپ راعی ہیں - پاکستانی کسانوں کے لیے زرعی معاون۔

**آپ کا کردار:** زرعی مشورہ دینا
**زبان:** سادہ اردو
**موضوعات:** فصلوں، کیڑوں، بیماریوں، کھاد، پانی

**جواب دینے کا طریقہ:**
- زرعی سوال → مکمل جواب
- غیر زرعی سوال → "` + domain.MsgOffTopicDeflection + `"

**مثالیں:**
سوال: "گندم کی کھاد" → "گندم میں ڈی اے پی بوائی کے وقت اور یوریا 25-30 دن بعد ڈالیں۔"
سوال: "موٹرسائیکل" → "` + domain.MsgOffTopicDeflection + `"
`

const userTurnTemplate = `
دستیاب زرعی ڈیٹا:
%s

درج ذیل سوال کا جواب دیں:
"%s"

جواب سادہ اردو میں ہو اور عملی ہو۔
`

type ChatConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// ChatClient produces the Urdu answer. It never returns an error: every
// failure becomes one of the fixed fallback answers.
type ChatClient struct {
	client      *openai.Client
	apiKey      string
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	logger      *slog.Logger
}

func NewChatClient(cfg ChatConfig, logger *slog.Logger) *ChatClient {
	if cfg.Model == "" {
		cfg.Model = "llama-3.1-8b-instant"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &ChatClient{
		client:      newOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		logger:      logger,
	}
}

// Messages builds the stateless two-turn exchange sent for one question.
func Messages(query string, advice *domain.Advice) []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPersona},
		{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(userTurnTemplate, advice.Context(), query)},
	}
}

func (c *ChatClient) Generate(ctx context.Context, query string, advice *domain.Advice) (answer domain.Answer) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("chat completion panicked", "panic", r)
			answer = domain.FallbackAnswer(domain.FailureUnexpected)
		}
	}()

	if c.apiKey == "" {
		c.logger.Error("llm api key not configured")
		return domain.FallbackAnswer(domain.FailureMissingCredential)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Info("sending chat completion", "model", c.model, "query", query, "has_context", advice != nil)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    Messages(query, advice),
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		kind := Classify(err)
		c.logger.Error("chat completion failed", "kind", kind, "status", statusCode(err), "error", err)
		return domain.FallbackAnswer(kind)
	}

	if len(resp.Choices) == 0 {
		c.logger.Error("chat completion returned no choices")
		return domain.FallbackAnswer(domain.FailureMalformed)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		c.logger.Error("chat completion returned empty content")
		return domain.FallbackAnswer(domain.FailureMalformed)
	}

	c.logger.Info("chat completion succeeded", "tokens", resp.Usage.TotalTokens)
	return domain.Answer{Text: text}
}

// Classify maps a chat completion error to the failure kind that picks the
// fallback reply.
func Classify(err error) domain.FailureKind {
	switch code := statusCode(err); {
	case code == http.StatusUnauthorized:
		return domain.FailureAuth
	case code == http.StatusTooManyRequests:
		return domain.FailureRateLimit
	case code >= 400:
		return domain.FailureServer
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.FailureTimeout
	}

	var urlErr *url.Error
	var opErr *net.OpError
	if errors.As(err, &opErr) || errors.As(err, &urlErr) {
		return domain.FailureConnection
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return domain.FailureMalformed
	}

	return domain.FailureUnexpected
}
