package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryFromCode(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		category Category
	}{
		{"config code", ErrCodeConfigInvalid, CategoryConfig},
		{"store code", ErrCodeStoreUnavailable, CategoryIO},
		{"extraction code", ErrCodeExtractionFailed, CategoryIO},
		{"embedding code", ErrCodeEmbeddingFailed, CategoryCollaborator},
		{"generation code", ErrCodeGenerationFailed, CategoryCollaborator},
		{"validation code", ErrCodeInvalidInput, CategoryValidation},
		{"internal code", ErrCodeIndexingFailed, CategoryInternal},
		{"malformed code", "BOGUS", CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "boom", nil)
			assert.Equal(t, tt.category, err.Category)
		})
	}
}

func TestError_Format(t *testing.T) {
	err := New(ErrCodeStoreUnavailable, "store missing", nil)
	assert.Equal(t, "[ERR_201_STORE_UNAVAILABLE] store missing", err.Error())
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := fmt.Errorf("disk on fire")
	err := Wrap(ErrCodeBackupFailed, cause)
	require.NotNil(t, err)

	assert.Equal(t, "disk on fire", err.Message)
	assert.ErrorIs(t, err, cause)
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestIs_MatchesByCode(t *testing.T) {
	err := IndexingError("page 3 failed", ExtractionError("no text", nil))

	assert.True(t, stderrors.Is(err, New(ErrCodeIndexingFailed, "", nil)))
	// Cause is still discoverable through the chain.
	assert.True(t, stderrors.Is(err, New(ErrCodeExtractionFailed, "", nil)))
	assert.False(t, stderrors.Is(err, New(ErrCodeStoreUnavailable, "", nil)))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(ErrCodeEmbeddingFailed, "batch failed", nil)))
	assert.False(t, IsRetryable(New(ErrCodeIndexingFailed, "aborted", nil)))
	assert.False(t, IsRetryable(stderrors.New("plain")))
	assert.False(t, IsRetryable(nil))
}

func TestGenerationErrors_AreWarnings(t *testing.T) {
	// Generation failures degrade to a fixed answer and never abort a request.
	assert.Equal(t, SeverityWarning, New(ErrCodeGenerationTimedOut, "", nil).Severity)
	assert.Equal(t, SeverityWarning, New(ErrCodeGenerationFailed, "", nil).Severity)
}

func TestWithDetail(t *testing.T) {
	err := New(ErrCodeDumpFailed, "cannot dump", nil).
		WithDetail("store", "report.pdf.db").
		WithDetail("table", "segments")

	assert.Equal(t, "report.pdf.db", err.Details["store"])
	assert.Equal(t, "segments", err.Details["table"])
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeReplayFailed, GetCode(New(ErrCodeReplayFailed, "", nil)))
	assert.Equal(t, "", GetCode(stderrors.New("plain")))
}
