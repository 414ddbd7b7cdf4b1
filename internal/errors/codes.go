// Package errors provides structured error handling for vaultsearch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage errors (index database)
//   - 3XX: Model errors (embedding provider)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates index database errors.
	CategoryStorage Category = "STORAGE"
	// CategoryModel indicates embedding model errors.
	CategoryModel Category = "MODEL"
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
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Storage errors (200-299), one per store stage
	ErrCodeStoreNotOpen       = "ERR_201_STORE_NOT_OPEN"
	ErrCodeStoreOpenFailed    = "ERR_202_STORE_OPEN_FAILED"
	ErrCodeStorePrepareFailed = "ERR_203_STORE_PREPARE_FAILED"
	ErrCodeStoreInsertFailed  = "ERR_204_STORE_INSERT_FAILED"
	ErrCodeStoreExecFailed    = "ERR_205_STORE_EXEC_FAILED"
	ErrCodeStoreLocked        = "ERR_206_STORE_LOCKED"
	ErrCodeCorruptIndex       = "ERR_207_CORRUPT_INDEX"

	// Model errors (300-399)
	ErrCodeModelUnavailable = "ERR_301_MODEL_UNAVAILABLE"
	ErrCodeModelOutput      = "ERR_302_MODEL_OUTPUT"

	// Validation errors (400-499)
	ErrCodeInvalidInput         = "ERR_401_INVALID_INPUT"
	ErrCodeDimensionMismatch    = "ERR_402_DIMENSION_MISMATCH"
	ErrCodeMissingSpecialTokens = "ERR_403_MISSING_SPECIAL_TOKENS"
	ErrCodeUnsupportedFormat    = "ERR_404_UNSUPPORTED_FORMAT"

	// Internal errors (500-599)
	ErrCodeInternal        = "ERR_501_INTERNAL"
	ErrCodeEmbeddingFailed = "ERR_502_EMBEDDING_FAILED"
	ErrCodeSearchFailed    = "ERR_503_SEARCH_FAILED"
	ErrCodeExtractFailed   = "ERR_504_EXTRACT_FAILED"
	ErrCodeIndexFailed     = "ERR_505_INDEX_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// "201" from "ERR_201_STORE_NOT_OPEN"
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '3':
		return CategoryModel
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorruptIndex, ErrCodeMissingSpecialTokens, ErrCodeStoreOpenFailed:
		return SeverityFatal
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode reports whether a code represents a recoverable condition.
// Storage errors are never retried.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeModelUnavailable:
		return true
	default:
		return false
	}
}
