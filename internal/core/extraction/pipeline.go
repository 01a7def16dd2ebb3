// Package extraction turns recipe photos and OCR text into recipe.ScrapedRecipe values with a chat
// completion model. Results are returned unvalidated; callers run Clean on them.
package extraction

import (
	"context"
	"errors"
	"strings"
	"time"

	"recipe-ingest/internal/core/ai/cache"
	"recipe-ingest/internal/core/ai/cost"
	"recipe-ingest/internal/core/ai/image"
	"recipe-ingest/internal/core/ai/openrouter"
	"recipe-ingest/internal/core/recipe"
	"recipe-ingest/internal/infrastructure/config"
	"recipe-ingest/internal/pkg/common"
	"recipe-ingest/internal/pkg/metrics"

	"go.uber.org/zap"
)

const (
	pathImage = "image"
	pathText  = "text"

	// Estimated input token limits of the text path.
	maxTextInputTokens = 16000
	longTextThreshold  = 4000
)

// Completer sends one chat completion request.
type Completer interface {
	Complete(ctx context.Context, req *openrouter.Request) (*openrouter.Response, error)
}

// Pipeline runs the image and text extraction paths.
type Pipeline struct {
	cfg    config.OpenRouterConfig
	client Completer
	images *image.Processor
	cache  cache.Store
}

// NewPipeline creates a pipeline. store may be nil to disable reply caching.
func NewPipeline(cfg config.OpenRouterConfig, client Completer, images *image.Processor, store cache.Store) *Pipeline {
	if cfg.TextModel == "" {
		cfg.TextModel = cfg.Model
	}
	if cfg.LongTextModel == "" {
		cfg.LongTextModel = cfg.TextModel
	}
	if images == nil {
		images = image.NewProcessor(0, 0, 0)
	}
	return &Pipeline{
		cfg:    cfg,
		client: client,
		images: images,
		cache:  store,
	}
}

// Enabled reports whether the extraction service is configured.
func (p *Pipeline) Enabled() bool {
	return p != nil && p.cfg.Enabled && p.client != nil
}

// FromImage extracts a recipe from a photo. hint is an optional note from the user that helps the
// model read the image.
func (p *Pipeline) FromImage(ctx context.Context, data []byte, hint string) (*recipe.ScrapedRecipe, error) {
	return p.fromImage(ctx, hint, func() (*image.Result, error) { return p.images.Process(data) })
}

// FromImageDataURI is FromImage for a "data:image/...;base64," string.
func (p *Pipeline) FromImageDataURI(ctx context.Context, uri, hint string) (*recipe.ScrapedRecipe, error) {
	return p.fromImage(ctx, hint, func() (*image.Result, error) { return p.images.ProcessDataURI(uri) })
}

func (p *Pipeline) fromImage(ctx context.Context, hint string, normalize func() (*image.Result, error)) (out *recipe.ScrapedRecipe, err error) {
	start := time.Now()
	defer func() { observe(pathImage, start, err) }()

	if !p.Enabled() {
		return nil, common.ErrNotEnabled
	}

	img, err := normalize()
	if err != nil {
		return nil, err
	}

	messages := []openrouter.Message{openrouter.TextMessage("system", imageSystemPrompt)}
	hintText := ""
	if hint = strings.TrimSpace(hint); hint != "" {
		hintText = imageHintMessage(hint)
		messages = append(messages, openrouter.TextMessage("system", hintText))
	}
	messages = append(messages, openrouter.ImageMessage(imageUserText, img.DataURI()))

	req := &openrouter.Request{
		Model:           p.cfg.Model,
		Messages:        messages,
		MaxTokens:       p.cfg.MaxTokens,
		Temperature:     p.cfg.Temperature,
		PresencePenalty: p.cfg.PresencePenalty,
		ResponseFormat:  &openrouter.ResponseFormat{Type: "json_object"},
	}
	price := priceOf(p.cfg.ImagePrice)
	estimate := cost.EstimateImageRequest(imageSystemPrompt, hintText, len(img.JPEG), price)
	key := cache.Key(pathImage, req.Model, imageSystemPrompt, hintText, string(img.JPEG))

	content, cached, err := p.complete(ctx, pathImage, req, key, estimate, price)
	if err != nil {
		return nil, err
	}

	reply, err := decodeReply[imageReply](content)
	if err != nil {
		return nil, err
	}
	if !cached {
		p.remember(ctx, key, content)
	}
	return reply.toRecipe(), nil
}

// FromText structures recipe text, typically OCR output. Long inputs are sent to the long context
// model; inputs over the hard limit fail with common.ErrInputTooLarge before any call is made.
func (p *Pipeline) FromText(ctx context.Context, text, hint string) (out *recipe.ScrapedRecipe, err error) {
	start := time.Now()
	defer func() { observe(pathText, start, err) }()

	if !p.Enabled() {
		return nil, common.ErrNotEnabled
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, common.Wrapf(common.ErrInvalidRequest, "text is empty")
	}

	model, price := p.cfg.TextModel, priceOf(p.cfg.TextPrice)
	estimate := cost.EstimateTextRequest(textSystemPrompt, text, price)
	switch {
	case estimate.TotalInputTokens > maxTextInputTokens:
		return nil, common.Wrapf(common.ErrInputTooLarge, "estimated %d input tokens, limit is %d", estimate.TotalInputTokens, maxTextInputTokens)
	case estimate.TotalInputTokens > longTextThreshold:
		model, price = p.cfg.LongTextModel, priceOf(p.cfg.LongTextPrice)
		estimate = cost.EstimateTextRequest(textSystemPrompt, text, price)
	}

	messages := []openrouter.Message{openrouter.TextMessage("system", textSystemPrompt)}
	hintText := ""
	if hint = strings.TrimSpace(hint); hint != "" {
		hintText = textHintMessage(hint)
		messages = append(messages, openrouter.TextMessage("system", hintText))
	}
	messages = append(messages, openrouter.TextMessage("user", text))

	req := &openrouter.Request{
		Model:           model,
		Messages:        messages,
		Temperature:     p.cfg.Temperature,
		PresencePenalty: p.cfg.PresencePenalty,
		ResponseFormat:  &openrouter.ResponseFormat{Type: "json_object"},
	}
	key := cache.Key(pathText, model, textSystemPrompt, hintText, text)

	content, cached, err := p.complete(ctx, pathText, req, key, estimate, price)
	if err != nil {
		return nil, err
	}

	reply, err := decodeReply[textReply](content)
	if err != nil {
		return nil, err
	}
	if !cached {
		p.remember(ctx, key, content)
	}
	return reply.toRecipe(), nil
}

// complete returns the reply text for req, from the cache when possible. The estimate is reported
// but never gates the call.
func (p *Pipeline) complete(ctx context.Context, path string, req *openrouter.Request, key string, estimate cost.Estimate, price cost.Price) (string, bool, error) {
	metrics.EstimatedInputTokens.WithLabelValues(path).Observe(float64(estimate.TotalInputTokens))
	addCost("estimated", estimate.InputCostUSD)
	common.LogInfo("Extraction cost estimated",
		append(estimate.Fields(), zap.String("path", path), zap.String("model", req.Model))...)

	if p.cache != nil {
		cached, err := p.cache.Get(ctx, key)
		switch {
		case err == nil:
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			common.LogInfo("Model reply served from cache", zap.String("path", path))
			return cached, true, nil
		case errors.Is(err, common.ErrCacheMiss):
			metrics.CacheLookups.WithLabelValues("miss").Inc()
		default:
			metrics.CacheLookups.WithLabelValues("error").Inc()
			common.LogWarn("Reply cache lookup failed", zap.Error(err))
		}
	}

	start := time.Now()
	resp, err := p.client.Complete(ctx, req)
	if err != nil {
		var ce *common.CustomError
		if !errors.As(err, &ce) {
			err = common.Wrap(common.ErrServiceUnavailable, err)
		}
		common.LogAICall(req.Model, time.Since(start), err, zap.String("path", path))
		return "", false, err
	}

	actual := cost.Actual(resp.Usage.PromptTokens, resp.Usage.CompletionTokens, price)
	addCost("actual", actual.TotalUSD())
	fields := append(actual.Fields(),
		zap.String("path", path),
		zap.String("finish_reason", resp.FinishReason()),
		zap.Int("estimated_input_tokens", estimate.TotalInputTokens),
		zap.Float64("estimated_input_cost_usd", estimate.InputCostUSD),
	)

	if resp.FinishReason() == openrouter.FinishReasonContentFilter {
		err := common.Wrapf(common.ErrContentFiltered, "model %s stopped due to content filter", req.Model)
		common.LogAICall(req.Model, time.Since(start), err, fields...)
		return "", false, err
	}

	common.LogAICall(req.Model, time.Since(start), nil, fields...)
	return resp.Content(), false, nil
}

func (p *Pipeline) remember(ctx context.Context, key, content string) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Set(ctx, key, content); err != nil {
		common.LogWarn("Failed to cache model reply", zap.Error(err))
	}
}

func priceOf(mp config.ModelPrice) cost.Price {
	return cost.Price{InputPer1K: mp.InputPer1K, OutputPer1K: mp.OutputPer1K}
}

func addCost(kind string, usd float64) {
	if usd > 0 {
		metrics.CostUSD.WithLabelValues(kind).Add(usd)
	}
}

func observe(path string, start time.Time, err error) {
	metrics.ExtractionDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	if err == nil {
		return
	}
	code := common.ErrCodeInternalError
	var ce *common.CustomError
	if errors.As(err, &ce) {
		code = ce.Code
	}
	metrics.ExtractionErrors.WithLabelValues(path, code).Inc()
}
