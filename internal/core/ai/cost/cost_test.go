package cost

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateImageRequest(t *testing.T) {
	price := Price{InputPer1K: 0.01, OutputPer1K: 0.03}

	tests := []struct {
		name       string
		prompt     string
		userText   string
		imageBytes int
		wantTokens int
	}{
		// 35/3.5 = 10, 25/2.5 = 10, 85 + 170*1 = 255
		{"all parts", strings.Repeat("a", 35), strings.Repeat("b", 25), 512 * 512, 275},
		// 7/3.5 = 2, 85 + 170*0.5 = 170
		{"no hint", strings.Repeat("a", 7), "", 512 * 256, 172},
		// 1/3.5 rounds up
		{"rounds up", "a", "", 0, 1},
		// runes, not bytes
		{"counts runes", strings.Repeat("ø", 7), "", 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateImageRequest(tt.prompt, tt.userText, tt.imageBytes, price)
			assert.Equal(t, tt.wantTokens, got.TotalInputTokens)
			assert.InDelta(t, float64(tt.wantTokens)/1000*0.01, got.InputCostUSD, 1e-12)
		})
	}
}

func TestEstimateTextRequestHasNoImageTokens(t *testing.T) {
	got := EstimateTextRequest(strings.Repeat("a", 350), strings.Repeat("b", 250), Price{InputPer1K: 0.0015})
	assert.Zero(t, got.ImageTokens)
	assert.Equal(t, 200, got.TotalInputTokens)
	assert.InDelta(t, 0.0003, got.InputCostUSD, 1e-12)
}

func TestActual(t *testing.T) {
	c := Actual(1000, 500, Price{InputPer1K: 0.003, OutputPer1K: 0.004})
	assert.InDelta(t, 0.003, c.InputUSD, 1e-12)
	assert.InDelta(t, 0.002, c.OutputUSD, 1e-12)
	assert.InDelta(t, 0.005, c.TotalUSD(), 1e-12)
	assert.Len(t, c.Fields(), 5)
}
