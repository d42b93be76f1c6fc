package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sethvargo/go-retry"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"
const defaultOpenAIModel = "gpt-4o"

// ErrEmptyResponse is surfaced when the backend answers with no usable text
// after reasoning markup has been stripped.
var ErrEmptyResponse = errors.New("empty response from model")

// ModelGateway is the capability the pipeline needs from the language model.
// Both calls may fail transiently; retry discipline lives behind the
// interface, defaulting policy does not.
type ModelGateway interface {
	Translate(ctx context.Context, srcLang, dstLang, text string) (string, error)
	Classify(ctx context.Context, rating int, text string) (string, error)
}

type LLMUsage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

func (u LLMUsage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

func (u *LLMUsage) Add(other LLMUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationInputTokens += other.CacheCreationInputTokens
	u.CacheReadInputTokens += other.CacheReadInputTokens
}

// LLMClient wraps one unreliable remote model behind retry, backoff and a
// fixed-interval rate gate. It never substitutes a default label; on
// exhaustion the last error propagates to the caller.
type LLMClient struct {
	cfg      Config
	vocab    *Vocabulary
	examples *exampleIndex
	gate     *rateGate
	usage    LLMUsage

	// call performs one raw model invocation. Swappable in tests.
	call func(systemPrompt, userPrompt string) (string, LLMUsage, error)
}

func NewLLMClient(cfg Config, vocab *Vocabulary) (*LLMClient, error) {
	c := &LLMClient{
		cfg:      cfg,
		vocab:    vocab,
		examples: buildExampleIndex(vocab.Examples),
		gate:     newRateGate(cfg.RateLimitDelay()),
	}

	switch cfg.LLMProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("openai_api_key is required when llm_provider=openai")
		}
		model := cfg.LLMModel
		if model == "" {
			model = defaultOpenAIModel
		}
		c.call = func(systemPrompt, userPrompt string) (string, LLMUsage, error) {
			return callOpenAI(cfg.OpenAIAPIKey, model, systemPrompt, userPrompt)
		}
		log.Printf("llm client provider=openai model=%s", model)
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, errors.New("anthropic_api_key is required when llm_provider=anthropic")
		}
		model := cfg.LLMModel
		if model == "" {
			model = defaultAnthropicModel
		}
		c.call = func(systemPrompt, userPrompt string) (string, LLMUsage, error) {
			return callAnthropic(cfg.AnthropicAPIKey, model, systemPrompt, userPrompt)
		}
		log.Printf("llm client provider=anthropic model=%s", model)
	default:
		return nil, fmt.Errorf("unknown llm_provider '%s'", cfg.LLMProvider)
	}
	return c, nil
}

// Usage returns the token totals accumulated across all calls so far.
func (c *LLMClient) Usage() LLMUsage {
	return c.usage
}

func (c *LLMClient) Translate(ctx context.Context, srcLang, dstLang, text string) (string, error) {
	userPrompt := fmt.Sprintf("Translate the following from %s to %s. Do not provide any analysis or explanation, just the direct translation as the answer. Text is: %q", srcLang, dstLang, text)
	out, err := c.invoke(ctx, "", userPrompt)
	if err != nil {
		return "", fmt.Errorf("translation %s->%s failed: %w", srcLang, dstLang, err)
	}
	return out, nil
}

func (c *LLMClient) Classify(ctx context.Context, rating int, text string) (string, error) {
	examples := c.examples.topK(text, c.cfg.LLMExampleCount)
	systemPrompt := buildClassifySystemPrompt(c.cfg.AppName, c.vocab, examples)
	userPrompt := fmt.Sprintf("The review has a star rating of %d/5.\n\nReview:\n%s", rating, text)
	out, err := c.invoke(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("classification failed: %w", err)
	}
	return out, nil
}

// invoke runs one prompt with the shared retry policy: the rate gate is
// awaited before every attempt, failed attempts back off by retry_delay x
// attempt number, and the last error propagates after max_retries attempts.
func (c *LLMClient) invoke(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var result string
	attempt := 0
	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return time.Duration(attempt) * c.cfg.RetryDelay(), false
	})

	err := retry.Do(ctx, retry.WithMaxRetries(uint64(c.cfg.MaxRetries-1), backoff), func(ctx context.Context) error {
		if err := c.gate.Wait(ctx); err != nil {
			return err
		}
		out, usage, err := c.call(systemPrompt, userPrompt)
		c.usage.Add(usage)
		if err != nil {
			log.Printf("llm call failed attempt=%d err=%v", attempt+1, err)
			return retry.RetryableError(err)
		}
		out = strings.TrimSpace(stripReasoning(out))
		if out == "" {
			log.Printf("llm call empty response attempt=%d", attempt+1)
			return retry.RetryableError(ErrEmptyResponse)
		}
		result = out
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

func buildClassifySystemPrompt(appName string, vocab *Vocabulary, examples []ClassificationExample) string {
	var categoryLines strings.Builder
	for _, c := range vocab.Categories {
		categoryLines.WriteString(fmt.Sprintf("%s: %s\n", c.Name, c.Description))
	}

	var entityLines strings.Builder
	for _, rule := range vocab.EntityRules {
		entityLines.WriteString(fmt.Sprintf("- %s (not %s)\n", rule.Canonical, strings.Join(rule.Wrong, ", ")))
	}

	var exampleLines strings.Builder
	for _, ex := range examples {
		exampleLines.WriteString(fmt.Sprintf("- [%d/5] %q -> %s\n", ex.Rating, ex.Review, ex.Classification))
	}
	examplesBlock := ""
	if exampleLines.Len() > 0 {
		examplesBlock = "\nExamples:\n" + exampleLines.String()
	}

	return fmt.Sprintf(`You classify Google Play Store reviews for the %s browser.
If the review is mostly positive, simply return 'Satisfied' for your classification. If there are negative complaints in the review, classify it into the following categories, or use the category "Other" if none match. More than one category can apply, return a comma separated list. Only use Other if no other categories apply.

For website-specific issues, use these exact formats:
%s
For other websites, use proper case format: first letter capitalized, no domain extensions (.com, .org, etc).

Categories:
%s%s
Respond with the classification only, no explanation.`, appName, entityLines.String(), categoryLines.String(), examplesBlock)
}

var reasoningPattern = regexp.MustCompile(`(?s)<think>.*?</think>\s*`)

// stripReasoning removes explicit reasoning blocks some models emit before
// the answer.
func stripReasoning(s string) string {
	return reasoningPattern.ReplaceAllString(s, "")
}

// --- Anthropic ---

func callAnthropic(apiKey, model, systemPrompt, userPrompt string) (string, LLMUsage, error) {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemPrompt, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		}
	}

	message, err := client.Messages.New(context.Background(), params)
	if err != nil {
		return "", LLMUsage{}, fmt.Errorf("Anthropic API error: %w", err)
	}
	usage := LLMUsage{
		InputTokens:              message.Usage.InputTokens,
		OutputTokens:             message.Usage.OutputTokens,
		CacheCreationInputTokens: message.Usage.CacheCreationInputTokens,
		CacheReadInputTokens:     message.Usage.CacheReadInputTokens,
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, usage, nil
		}
	}
	return "", usage, fmt.Errorf("no text content in Anthropic response")
}

// --- OpenAI ---

type openAIRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func callOpenAI(apiKey, model, systemPrompt, userPrompt string) (string, LLMUsage, error) {
	var messages []openAIMessage
	if systemPrompt != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: userPrompt})

	bodyBytes, err := json.Marshal(openAIRequest{Model: model, Messages: messages})
	if err != nil {
		return "", LLMUsage{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequest("POST", "https://api.openai.com/v1/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", LLMUsage{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := externalHTTPClient.Do(req)
	if err != nil {
		return "", LLMUsage{}, fmt.Errorf("OpenAI API error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", LLMUsage{}, fmt.Errorf("reading response: %w", err)
	}

	var openAIResp openAIResponse
	if err := json.Unmarshal(respBody, &openAIResp); err != nil {
		return "", LLMUsage{}, fmt.Errorf("parsing OpenAI response: %w", err)
	}

	if openAIResp.Error != nil {
		return "", LLMUsage{}, fmt.Errorf("OpenAI API error: %s", openAIResp.Error.Message)
	}
	if len(openAIResp.Choices) == 0 {
		return "", LLMUsage{}, fmt.Errorf("no choices in OpenAI response")
	}

	usage := LLMUsage{}
	if openAIResp.Usage != nil {
		usage.InputTokens = openAIResp.Usage.PromptTokens
		usage.OutputTokens = openAIResp.Usage.CompletionTokens
	}
	return openAIResp.Choices[0].Message.Content, usage, nil
}
