package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"recipe-ingest/internal/infrastructure/config"
	"recipe-ingest/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"

	// FinishReasonContentFilter marks a completion cut short by the provider's content filter.
	FinishReasonContentFilter = "content_filter"
)

var dataURIPattern = regexp.MustCompile(`data:image/[a-zA-Z+.-]+;base64,[A-Za-z0-9+/=]+`)

// Message is one chat message. Content is either a string or a []ContentPart.
type Message struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

// ContentPart is one element of a multi-part user message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL carries an image as URL or data URI.
type ImageURL struct {
	URL string `json:"url"`
}

// ResponseFormat asks the model for a specific output format.
type ResponseFormat struct {
	Type string `json:"type"`
}

// Request is a chat completion request.
type Request struct {
	Model           string          `json:"model"`
	Messages        []Message       `json:"messages"`
	MaxTokens       int             `json:"max_tokens,omitempty"`
	Temperature     float64         `json:"temperature,omitempty"`
	PresencePenalty float64         `json:"presence_penalty,omitempty"`
	ResponseFormat  *ResponseFormat `json:"response_format,omitempty"`
}

// Response is a chat completion response.
type Response struct {
	ID      string    `json:"id"`
	Model   string    `json:"model"`
	Choices []Choice  `json:"choices"`
	Usage   UsageInfo `json:"usage"`
}

// Choice is one completion alternative.
type Choice struct {
	Message      ReplyMessage `json:"message"`
	FinishReason string       `json:"finish_reason"`
}

// ReplyMessage is the assistant message of a choice.
type ReplyMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UsageInfo reports the tokens billed for a request.
type UsageInfo struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Content returns the text of the first choice.
func (r *Response) Content() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// FinishReason returns the finish reason of the first choice.
func (r *Response) FinishReason() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].FinishReason
}

// TextMessage builds a message with plain string content.
func TextMessage(role, text string) Message {
	return Message{Role: role, Content: text}
}

// ImageMessage builds a user message holding text followed by an image.
func ImageMessage(text, imageURL string) Message {
	return Message{
		Role: "user",
		Content: []ContentPart{
			{Type: "text", Text: text},
			{Type: "image_url", ImageURL: &ImageURL{URL: imageURL}},
		},
	}
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	client *resty.Client
}

// NewClient creates a client from the openrouter configuration section.
func NewClient(cfg config.OpenRouterConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.APIKey)).
		SetHeader("Content-Type", "application/json").
		SetHeader("HTTP-Referer", "https://github.com/recipe-ingest").
		SetHeader("X-Title", "Recipe Ingest")

	return &Client{client: client}
}

// Complete sends req and returns the parsed completion. Transport failures and non-2xx replies
// are reported as common.ErrServiceUnavailable.
func (c *Client) Complete(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		Post("/chat/completions")
	if err != nil {
		if ctx.Err() != nil {
			return nil, common.Wrap(common.ErrRequestTimeout, err)
		}
		common.LogError("Failed to send request to AI service", zap.String("model", req.Model), zap.Error(err))
		return nil, common.Wrap(common.ErrServiceUnavailable, err)
	}

	body := sanitizeBody(resp.Body())
	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		common.LogError("AI service returned error status",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("model", req.Model),
			zap.String("response", body),
		)
		return nil, common.Wrapf(common.ErrServiceUnavailable, "AI service error (status %d): %s", resp.StatusCode(), body)
	}

	var out Response
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, common.Wrapf(common.ErrMalformedModelOutput, "failed to parse completion envelope: %v", err)
	}
	if len(out.Choices) == 0 {
		return nil, common.Wrapf(common.ErrMalformedModelOutput, "no choices in response: %s", body)
	}

	common.LogDebug("AI service responded",
		zap.String("model", req.Model),
		zap.String("finish_reason", out.FinishReason()),
		zap.Int("prompt_tokens", out.Usage.PromptTokens),
		zap.Int("completion_tokens", out.Usage.CompletionTokens),
		zap.Duration("duration", time.Since(start)),
	)
	return &out, nil
}

// sanitizeBody strips inline images from bodies before they reach logs or errors.
func sanitizeBody(body []byte) string {
	s := dataURIPattern.ReplaceAllString(string(body), "[IMAGE_DATA_REMOVED]")
	if len(s) > 2048 {
		s = s[:2048] + "...(truncated)"
	}
	return s
}
