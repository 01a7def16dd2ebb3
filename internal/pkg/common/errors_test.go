package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomErrorIsMatchesWrappedSentinel(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := fmt.Errorf("from image: %w", Wrap(ErrServiceUnavailable, cause))

	assert.True(t, errors.Is(err, ErrServiceUnavailable))
	assert.False(t, errors.Is(err, ErrMalformedModelOutput))
	assert.True(t, errors.Is(err, cause), "cause stays reachable through Unwrap")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestValidationErrorAggregates(t *testing.T) {
	ve := NewValidationError()
	assert.False(t, ve.HasErrors())
	assert.NoError(t, ve.ErrOrNil())

	ve.Add("title", "missing required field.")
	ve.Add("ingredients[][0].unit", "unknown unit \"bucket\"")
	ve.Add("ingredients[][0].unit", "second problem")

	err := ve.ErrOrNil()
	require.Error(t, err)
	assert.True(t, IsValidationError(fmt.Errorf("clean: %w", err)))
	assert.True(t, ve.Has("title"))
	assert.Len(t, ve.Fields()["ingredients[][0].unit"], 2)
	assert.Contains(t, err.Error(), "title: missing required field.")

	fields := ve.Fields()
	fields["title"][0] = "mutated"
	assert.Equal(t, "missing required field.", ve.Fields()["title"][0], "Fields returns a copy")
}

func TestErrorResponseFor(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", func() error { v := NewValidationError(); v.Add("title", "x"); return v }(), http.StatusBadRequest, ErrCodeValidation},
		{"content filtered", Wrap(ErrContentFiltered, errors.New("stop")), http.StatusUnprocessableEntity, ErrCodeContentFiltered},
		{"malformed", fmt.Errorf("wrap: %w", ErrMalformedModelOutput), http.StatusBadGateway, ErrCodeMalformedOutput},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := ErrorResponseFor(tt.err, false)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Empty(t, resp.Details)
		})
	}
}
