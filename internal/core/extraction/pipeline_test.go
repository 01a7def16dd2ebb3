package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"recipe-ingest/internal/core/ai/cache"
	aiimage "recipe-ingest/internal/core/ai/image"
	"recipe-ingest/internal/core/ai/openrouter"
	"recipe-ingest/internal/core/recipe"
	"recipe-ingest/internal/core/unit"
	"recipe-ingest/internal/infrastructure/config"
	"recipe-ingest/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	content  string
	finish   string
	err      error
	requests []*openrouter.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req *openrouter.Request) (*openrouter.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	finish := f.finish
	if finish == "" {
		finish = "stop"
	}
	resp := &openrouter.Response{
		Choices: []openrouter.Choice{{
			Message:      openrouter.ReplyMessage{Role: "assistant", Content: f.content},
			FinishReason: finish,
		}},
	}
	resp.Usage.PromptTokens = 1200
	resp.Usage.CompletionTokens = 300
	return resp, nil
}

func testConfig() config.OpenRouterConfig {
	return config.OpenRouterConfig{
		Enabled:         true,
		Model:           "openai/gpt-4o",
		TextModel:       "openai/gpt-3.5-turbo",
		LongTextModel:   "openai/gpt-3.5-turbo-16k",
		MaxTokens:       4096,
		Temperature:     0.2,
		PresencePenalty: -1,
		ImagePrice:      config.ModelPrice{InputPer1K: 0.01, OutputPer1K: 0.01},
		TextPrice:       config.ModelPrice{InputPer1K: 0.0015, OutputPer1K: 0.002},
		LongTextPrice:   config.ModelPrice{InputPer1K: 0.003, OutputPer1K: 0.004},
	}
}

func newTestPipeline(fc *fakeCompleter, store cache.Store) *Pipeline {
	return NewPipeline(testConfig(), fc, aiimage.NewProcessor(1<<20, 512, 1<<20), store)
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		img.Set(x, x, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

const pancakeReply = "Here you go:\n```json\n" + `{
  "title": "Pannekaker med blåbærsyltetøy",
  "preamble": "Verdens beste pannekaker.",
  "instructions": ["Lag røren", "La svelle", "Stek pannekakene"],
  "rest_text": "",
  "total_time": 45,
  "original_author": "Kari",
  "language": "nb-NO",
  "yields_type": "porsjoner",
  "yields_number": "4",
  "ingredients": [
    {"name_in_recipe": "hvetemel", "base_ingredient_name": "hvetemel", "group_name": "Røre", "base_amount": 3, "unit": "dl", "is_optional": false},
    {"name_in_recipe": "salt", "base_ingredient_name": "salt"},
    {"name_in_recipe": "fersk melk", "base_ingredient_name": "melk", "group_name": "Røre", "base_amount": 5, "unit": "desiliter"},
    {"name_in_recipe": "blåbær", "base_ingredient_name": "blåbær", "group_name": "Syltetøy", "base_amount": 300, "unit": "grams"},
    {"name_in_recipe": "sukker", "group_name": "Syltetøy", "base_amount": 0, "unit": "g", "is_optional": true},
    {"name_in_recipe": "egg", "base_ingredient_name": "egg", "group_name": "Røre", "base_amount": 2, "unit": "store"}
  ]
}` + "\n```"

func TestFromImage(t *testing.T) {
	fc := &fakeCompleter{content: pancakeReply}
	p := newTestPipeline(fc, nil)

	got, err := p.FromImage(context.Background(), testPNG(t), "  handwritten, Norwegian  ")
	require.NoError(t, err)

	t.Run("request", func(t *testing.T) {
		require.Len(t, fc.requests, 1)
		req := fc.requests[0]
		assert.Equal(t, "openai/gpt-4o", req.Model)
		assert.Equal(t, 4096, req.MaxTokens)
		assert.Equal(t, 0.2, req.Temperature)
		assert.Equal(t, -1.0, req.PresencePenalty)
		assert.Equal(t, "json_object", req.ResponseFormat.Type)

		require.Len(t, req.Messages, 3)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, imageSystemPrompt, req.Messages[0].Content)
		assert.Equal(t, imageHintMessage("handwritten, Norwegian"), req.Messages[1].Content)

		parts, ok := req.Messages[2].Content.([]openrouter.ContentPart)
		require.True(t, ok)
		require.Len(t, parts, 2)
		assert.Equal(t, imageUserText, parts[0].Text)
		assert.True(t, strings.HasPrefix(parts[1].ImageURL.URL, "data:image/jpeg;base64,"))
	})

	t.Run("fields", func(t *testing.T) {
		assert.Equal(t, "Pannekaker med blåbærsyltetøy", got.Title)
		assert.Equal(t, "Verdens beste pannekaker.", got.Preamble)
		assert.Equal(t, "1. Lag røren\n\n2. La svelle\n\n3. Stek pannekakene\n\n", got.Instructions)
		assert.Equal(t, "nb-NO", got.Language)
		assert.Equal(t, "Kari", got.OriginalAuthor)
		require.NotNil(t, got.TotalTime)
		assert.Equal(t, 45, *got.TotalTime)
		require.NotNil(t, got.YieldsNumber)
		assert.Equal(t, 4, *got.YieldsNumber)
		assert.Empty(t, got.OriginURL)
	})

	t.Run("groups in first-seen order", func(t *testing.T) {
		assert.Equal(t, []string{"Røre", "", "Syltetøy"}, got.Ingredients.Names())

		dough := got.Ingredients.Get("Røre")
		require.Len(t, dough, 3)
		assert.Equal(t, unit.Deciliter, dough[0].Unit)
		assert.Equal(t, "3 dl hvetemel", dough[0].RawText)
		assert.Equal(t, unit.Deciliter, dough[1].Unit)
		assert.Equal(t, "melk", dough[1].BaseIngredientName)
		assert.Equal(t, unit.Count, dough[2].Unit)

		plain := got.Ingredients.Get("")
		require.Len(t, plain, 1)
		assert.Equal(t, unit.Blank, plain[0].Unit)
		assert.Zero(t, plain[0].Amount)

		jam := got.Ingredients.Get("Syltetøy")
		require.Len(t, jam, 2)
		assert.Equal(t, unit.Gram, jam[0].Unit)
		assert.Equal(t, 300.0, jam[0].Amount)
		assert.Equal(t, unit.Blank, jam[1].Unit)
		assert.Equal(t, "sukker", jam[1].BaseIngredientName)
		assert.True(t, jam[1].IsOptional)
	})

	t.Run("cleans", func(t *testing.T) {
		require.NoError(t, got.Clean(recipe.CleanOptions{}))
		assert.Equal(t, "no", got.Language)
	})
}

func TestFromImageWithoutHint(t *testing.T) {
	fc := &fakeCompleter{content: `{"title": "Toast", "ingredients": []}`}
	got, err := newTestPipeline(fc, nil).FromImage(context.Background(), testPNG(t), "")
	require.NoError(t, err)

	assert.Len(t, fc.requests[0].Messages, 2)
	assert.Equal(t, "Toast", got.Title)
	assert.Equal(t, 0, got.Ingredients.Len())
	assert.Nil(t, got.TotalTime)
}

func TestFromImageDataURI(t *testing.T) {
	fc := &fakeCompleter{content: `{"title": "Toast", "ingredients": []}`}
	p := newTestPipeline(fc, nil)

	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(testPNG(t))
	got, err := p.FromImageDataURI(context.Background(), uri, "handwritten")
	require.NoError(t, err)
	assert.Equal(t, "Toast", got.Title)

	require.Len(t, fc.requests, 1)
	require.Len(t, fc.requests[0].Messages, 3)
	parts, ok := fc.requests[0].Messages[2].Content.([]openrouter.ContentPart)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(parts[1].ImageURL.URL, "data:image/jpeg;base64,"))

	_, err = p.FromImageDataURI(context.Background(), "https://example.com/toast.png", "")
	assert.ErrorIs(t, err, common.ErrInvalidImageFormat)
	assert.Len(t, fc.requests, 1)
}

func TestFromImageErrors(t *testing.T) {
	tests := []struct {
		name      string
		fc        *fakeCompleter
		data      []byte
		wantErr   error
		wantCalls int
	}{
		{"content filter", &fakeCompleter{content: `{"title": "x"}`, finish: openrouter.FinishReasonContentFilter}, nil, common.ErrContentFiltered, 1},
		{"not json", &fakeCompleter{content: "I cannot read this image."}, nil, common.ErrMalformedModelOutput, 1},
		{"broken json", &fakeCompleter{content: `{"title": "x", "ingredients": [}`}, nil, common.ErrMalformedModelOutput, 1},
		{"service error", &fakeCompleter{err: common.Wrap(common.ErrServiceUnavailable, errors.New("502"))}, nil, common.ErrServiceUnavailable, 1},
		{"transport error", &fakeCompleter{err: errors.New("connection reset")}, nil, common.ErrServiceUnavailable, 1},
		{"bad image", &fakeCompleter{}, []byte("not an image"), common.ErrInvalidImageFormat, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.data
			if data == nil {
				data = testPNG(t)
			}
			_, err := newTestPipeline(tt.fc, nil).FromImage(context.Background(), data, "")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Len(t, tt.fc.requests, tt.wantCalls)
		})
	}
}

func TestFromImageRepairsReply(t *testing.T) {
	fc := &fakeCompleter{content: `{title: "Toast", "ingredients": [{"name_in_recipe": "brød", "base_amount": 2,},],}`}
	got, err := newTestPipeline(fc, nil).FromImage(context.Background(), testPNG(t), "")
	require.NoError(t, err)

	assert.Equal(t, "Toast", got.Title)
	assert.Equal(t, 1, got.Ingredients.Count())
}

func TestFromTextRepairsReplyWithKeyLikeValue(t *testing.T) {
	fc := &fakeCompleter{content: `{"title":"Soup","instructions":"Boil the stock, note: keep it at a simmer","ingredients":[],}`}
	got, err := newTestPipeline(fc, nil).FromText(context.Background(), "Soup\nBoil the stock", "")
	require.NoError(t, err)

	assert.Equal(t, "Soup", got.Title)
	assert.Equal(t, "Boil the stock, note: keep it at a simmer", got.Instructions)
	assert.Zero(t, got.Ingredients.Count())
}

func TestDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	fc := &fakeCompleter{}
	p := NewPipeline(cfg, fc, nil, nil)

	_, err := p.FromImage(context.Background(), testPNG(t), "")
	assert.ErrorIs(t, err, common.ErrNotEnabled)
	_, err = p.FromText(context.Background(), "Toast", "")
	assert.ErrorIs(t, err, common.ErrNotEnabled)
	assert.Empty(t, fc.requests)

	var nilPipeline *Pipeline
	assert.False(t, nilPipeline.Enabled())
}

func TestReplyCache(t *testing.T) {
	fc := &fakeCompleter{content: `{"title": "Toast"}`}
	p := newTestPipeline(fc, cache.NewManager(10, 0))
	img := testPNG(t)

	first, err := p.FromImage(context.Background(), img, "")
	require.NoError(t, err)
	second, err := p.FromImage(context.Background(), img, "")
	require.NoError(t, err)

	assert.Len(t, fc.requests, 1)
	assert.Equal(t, first.Title, second.Title)

	_, err = p.FromImage(context.Background(), img, "a different hint")
	require.NoError(t, err)
	assert.Len(t, fc.requests, 2)
}

func TestMalformedRepliesAreNotCached(t *testing.T) {
	fc := &fakeCompleter{content: "nope"}
	p := newTestPipeline(fc, cache.NewManager(10, 0))

	_, err := p.FromText(context.Background(), "Toast", "")
	require.Error(t, err)
	_, err = p.FromText(context.Background(), "Toast", "")
	require.Error(t, err)
	assert.Len(t, fc.requests, 2)
}

const sardineReply = `{
  "title": "Sardinomelett",
  "ingredients": {
    "": ["1 eske sardiner", "2-3 kokte poteter", "litt salt og pepper"],
    "Eggeblanding": ["3 egg", "3 ss melk"]
  },
  "instructions": [
    "Stek skivede poteter og løk ved svak varme i panne.",
    "Slå over sammenvispet egg og melk."
  ],
  "yields": "2 porsjoner",
  "content": "Server den med brød til."
}`

func TestFromText(t *testing.T) {
	fc := &fakeCompleter{content: sardineReply}
	got, err := newTestPipeline(fc, nil).FromText(context.Background(), "Sardinomelett\n1 eske sardiner\n...", "fra en gammel kokebok")
	require.NoError(t, err)

	req := fc.requests[0]
	assert.Equal(t, "openai/gpt-3.5-turbo", req.Model)
	require.Len(t, req.Messages, 3)
	assert.Equal(t, textSystemPrompt, req.Messages[0].Content)
	assert.Equal(t, "You have been provided with the following information about the document to help you parse it correctly:\n\"fra en gammel kokebok\"", req.Messages[1].Content)
	assert.Equal(t, "user", req.Messages[2].Role)

	assert.Equal(t, "Sardinomelett", got.Title)
	assert.Equal(t, "Server den med brød til.", got.RestText)
	assert.True(t, strings.HasPrefix(got.Instructions, "1. Stek skivede poteter"))
	require.NotNil(t, got.YieldsNumber)
	assert.Equal(t, 2, *got.YieldsNumber)
	assert.Equal(t, "porsjoner", got.YieldsType)

	assert.Equal(t, []string{"", "Eggeblanding"}, got.Ingredients.Names())
	plain := got.Ingredients.Get("")
	require.Len(t, plain, 3)
	assert.Equal(t, 2.0, plain[1].Amount)
	assert.Equal(t, "-3 kokte poteter", plain[1].BaseIngredientName)
	assert.Zero(t, plain[2].Amount)

	egg := got.Ingredients.Get("Eggeblanding")
	require.Len(t, egg, 2)
	assert.Equal(t, unit.Tablespoon, egg[1].Unit)
	assert.Equal(t, "melk", egg[1].BaseIngredientName)
	assert.Equal(t, "Eggeblanding", egg[1].GroupName)
}

func TestFromTextModelSelection(t *testing.T) {
	tests := []struct {
		name      string
		length    int
		wantModel string
		wantErr   error
	}{
		{"short text", 500, "openai/gpt-3.5-turbo", nil},
		{"long text", 12000, "openai/gpt-3.5-turbo-16k", nil},
		{"too long", 45000, "", common.ErrInputTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeCompleter{content: `{"title": "x"}`}
			_, err := newTestPipeline(fc, nil).FromText(context.Background(), strings.Repeat("a", tt.length), "")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, fc.requests)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, fc.requests[0].Model)
		})
	}
}

func TestFromTextLooseShapes(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		wantGroups []string
		wantYields int
	}{
		{"list of lines", `{"title": "x", "ingredients": ["1 egg", "salt"], "yield": 3}`, []string{""}, 3},
		{"block of text", `{"title": "x", "ingredients": "2 dl melk\n1 egg", "yields": "Makes 12 cookies"}`, []string{""}, 12},
		{"group with a single line", `{"title": "x", "ingredients": {"Topping": "50 g ost"}}`, []string{"Topping"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeCompleter{content: tt.reply}
			got, err := newTestPipeline(fc, nil).FromText(context.Background(), "x", "")
			require.NoError(t, err)

			assert.Equal(t, tt.wantGroups, got.Ingredients.Names())
			if tt.wantYields == 0 {
				assert.Nil(t, got.YieldsNumber)
			} else {
				require.NotNil(t, got.YieldsNumber)
				assert.Equal(t, tt.wantYields, *got.YieldsNumber)
			}
		})
	}
}

func TestFromTextRejectsEmptyInput(t *testing.T) {
	fc := &fakeCompleter{}
	_, err := newTestPipeline(fc, nil).FromText(context.Background(), "   ", "")
	assert.ErrorIs(t, err, common.ErrInvalidRequest)
	assert.Empty(t, fc.requests)
}
