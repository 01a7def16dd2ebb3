// Package cost estimates what a completion request will cost before it is sent, and what it did
// cost once the provider reports usage.
package cost

import (
	"math"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	// English prompt text runs at roughly 3.5 characters per token.
	promptCharsPerToken = 3.5
	// User text may be non-English and full of digits, so it is counted more pessimistically.
	userCharsPerToken = 2.5

	imageBaseTokens = 85
	imageTileTokens = 170
	imageTileBytes  = 512 * 512
)

// Price is the per-1000-token price of a model in USD.
type Price struct {
	InputPer1K  float64
	OutputPer1K float64
}

// Estimate is a pre-call input token and cost estimate.
type Estimate struct {
	SystemPromptTokens float64
	UserTextTokens     float64
	ImageTokens        float64
	TotalInputTokens   int
	InputCostUSD       float64
}

// EstimateImageRequest estimates the input of a request carrying a system prompt, optional user
// text and one image of imageBytes bytes.
func EstimateImageRequest(systemPrompt, userText string, imageBytes int, price Price) Estimate {
	e := Estimate{
		SystemPromptTokens: float64(utf8.RuneCountInString(systemPrompt)) / promptCharsPerToken,
		UserTextTokens:     float64(utf8.RuneCountInString(userText)) / userCharsPerToken,
	}
	if imageBytes > 0 {
		e.ImageTokens = imageBaseTokens + imageTileTokens*float64(imageBytes)/imageTileBytes
	}
	return e.total(price)
}

// EstimateTextRequest estimates the input of a text-only request.
func EstimateTextRequest(systemPrompt, userText string, price Price) Estimate {
	return EstimateImageRequest(systemPrompt, userText, 0, price)
}

func (e Estimate) total(price Price) Estimate {
	e.TotalInputTokens = int(math.Ceil(e.SystemPromptTokens + e.UserTextTokens + e.ImageTokens))
	e.InputCostUSD = float64(e.TotalInputTokens) / 1000 * price.InputPer1K
	return e
}

// Fields returns the estimate as log fields.
func (e Estimate) Fields() []zap.Field {
	return []zap.Field{
		zap.Int("estimated_input_tokens", e.TotalInputTokens),
		zap.Float64("estimated_input_cost_usd", e.InputCostUSD),
	}
}

// Cost is the billed cost of a completed request.
type Cost struct {
	PromptTokens     int
	CompletionTokens int
	InputUSD         float64
	OutputUSD        float64
}

// TotalUSD is the sum of input and output cost.
func (c Cost) TotalUSD() float64 {
	return c.InputUSD + c.OutputUSD
}

// Actual prices the usage reported by the provider.
func Actual(promptTokens, completionTokens int, price Price) Cost {
	return Cost{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		InputUSD:         float64(promptTokens) * price.InputPer1K / 1000,
		OutputUSD:        float64(completionTokens) * price.OutputPer1K / 1000,
	}
}

// Fields returns the cost as log fields.
func (c Cost) Fields() []zap.Field {
	return []zap.Field{
		zap.Int("prompt_tokens", c.PromptTokens),
		zap.Int("completion_tokens", c.CompletionTokens),
		zap.Float64("input_cost_usd", c.InputUSD),
		zap.Float64("output_cost_usd", c.OutputUSD),
		zap.Float64("total_cost_usd", c.TotalUSD()),
	}
}
