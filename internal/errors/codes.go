// Package errors provides structured error handling for doclens.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Store and IO errors
//   - 3XX: External collaborator errors (embedding, generation)
//   - 4XX: Validation errors
//   - 5XX: Internal and pipeline errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates store file and disk I/O errors.
	CategoryIO Category = "IO"
	// CategoryCollaborator indicates failures of external collaborators.
	CategoryCollaborator Category = "COLLABORATOR"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but the process can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Store and IO errors (200-299)
	ErrCodeStoreUnavailable = "ERR_201_STORE_UNAVAILABLE"
	ErrCodeStoreCorrupt     = "ERR_202_STORE_CORRUPT"
	ErrCodeBackupFailed     = "ERR_203_BACKUP_FAILED"
	ErrCodeDumpFailed       = "ERR_204_DUMP_FAILED"
	ErrCodeReplayFailed     = "ERR_205_REPLAY_FAILED"
	ErrCodeExtractionFailed = "ERR_206_EXTRACTION_FAILED"

	// Collaborator errors (300-399)
	ErrCodeEmbeddingFailed    = "ERR_301_EMBEDDING_FAILED"
	ErrCodeGenerationFailed   = "ERR_302_GENERATION_FAILED"
	ErrCodeGenerationTimedOut = "ERR_303_GENERATION_TIMED_OUT"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeQueryEmpty        = "ERR_402_QUERY_EMPTY"
	ErrCodeDimensionMismatch = "ERR_403_DIMENSION_MISMATCH"

	// Internal errors (500-599)
	ErrCodeInternal       = "ERR_501_INTERNAL"
	ErrCodeIndexingFailed = "ERR_502_INDEXING_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryCollaborator
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeStoreCorrupt:
		return SeverityFatal
	case ErrCodeGenerationFailed, ErrCodeGenerationTimedOut:
		// Generation failures degrade to a fixed answer, never abort a request.
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeEmbeddingFailed, ErrCodeGenerationTimedOut:
		return true
	default:
		return false
	}
}
