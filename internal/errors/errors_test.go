package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVaultError_Unwrap_PreservesCause(t *testing.T) {
	// Given: a driver error
	cause := errors.New("database is locked")

	// When: wrapping it as a store insert failure
	err := New(ErrCodeStoreInsertFailed, "insert chunk", cause)

	// Then: the cause is reachable
	require.NotNil(t, err)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "[ERR_204_STORE_INSERT_FAILED] insert chunk: database is locked", err.Error())
}

func TestVaultError_Is_MatchesByCode(t *testing.T) {
	a := New(ErrCodeStoreExecFailed, "delete chunks", nil)
	b := New(ErrCodeStoreExecFailed, "reset", nil)
	c := New(ErrCodeStoreNotOpen, "closed", nil)

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestHasCode_FindsWrappedError(t *testing.T) {
	// Given: a coded error wrapped with fmt.Errorf
	inner := New(ErrCodeModelUnavailable, "model not loaded", nil)
	outer := fmt.Errorf("embed query: %w", inner)

	// Then: the code is found through the chain
	assert.True(t, HasCode(outer, ErrCodeModelUnavailable))
	assert.False(t, HasCode(outer, ErrCodeSearchFailed))
	assert.Equal(t, ErrCodeModelUnavailable, GetCode(outer))
	assert.Equal(t, CategoryModel, GetCategory(outer))
}

func TestCategoryAndSeverity_DerivedFromCode(t *testing.T) {
	tests := []struct {
		code      string
		category  Category
		severity  Severity
		retryable bool
	}{
		{ErrCodeConfigInvalid, CategoryConfig, SeverityError, false},
		{ErrCodeStorePrepareFailed, CategoryStorage, SeverityError, false},
		{ErrCodeCorruptIndex, CategoryStorage, SeverityFatal, false},
		{ErrCodeModelUnavailable, CategoryModel, SeverityWarning, true},
		{ErrCodeMissingSpecialTokens, CategoryValidation, SeverityFatal, false},
		{ErrCodeSearchFailed, CategoryInternal, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "msg", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
			assert.Equal(t, tt.retryable, IsRetryable(err))
			assert.Equal(t, tt.severity == SeverityFatal, IsFatal(err))
		})
	}
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestFormatForCLI_IncludesHintAndCode(t *testing.T) {
	err := New(ErrCodeStoreLocked, "index is in use", nil).
		WithSuggestion("close the other vaultsearch process")

	out := FormatForCLI(err)

	assert.Contains(t, out, "Error: index is in use")
	assert.Contains(t, out, "Hint: close the other vaultsearch process")
	assert.Contains(t, out, "Code: ERR_206_STORE_LOCKED")
}

func TestFormatForCLI_WrapsPlainErrors(t *testing.T) {
	out := FormatForCLI(errors.New("boom"))
	assert.Contains(t, out, "Code: ERR_501_INTERNAL")
}

func TestFormatJSON_RoundTripsFields(t *testing.T) {
	err := New(ErrCodeDimensionMismatch, "vector has 3 dimensions", nil).WithDetail("expected", "384")

	data, jerr := FormatJSON(err)
	require.NoError(t, jerr)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, ErrCodeDimensionMismatch, got["code"])
	assert.Equal(t, "VALIDATION", got["category"])
	assert.Equal(t, map[string]any{"expected": "384"}, got["details"])
}

func TestLogAttrs(t *testing.T) {
	attrs := LogAttrs(New(ErrCodeStoreExecFailed, "reset", nil).WithDetail("table", "chunks"))
	assert.Contains(t, attrs, "error_code")
	assert.Contains(t, attrs, ErrCodeStoreExecFailed)
	assert.Contains(t, attrs, "detail_table")

	assert.Equal(t, []any{"error", "plain"}, LogAttrs(errors.New("plain")))
	assert.Nil(t, LogAttrs(nil))
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	// Given: a function failing twice
	calls := 0
	fn := func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("connection refused")
		}
		return 42, nil
	}
	cfg := RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2}

	// When: retrying
	got, err := RetryWithResult(context.Background(), cfg, fn)

	// Then: the third attempt wins
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustsAndWrapsLastError(t *testing.T) {
	sentinel := errors.New("still down")
	cfg := RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2}

	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		return sentinel
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, calls)
}

func TestRetry_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, DefaultRetryConfig(), func() error {
		t.Fatal("fn must not run with a cancelled context")
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
}
