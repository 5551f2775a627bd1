package domain

import "errors"

// ============================================================================
// Tenant Errors
// ============================================================================

var (
	ErrTenantNotFound  = errors.New("application not found")
	ErrInvalidTenantID = errors.New("invalid application id")
)

// ============================================================================
// Input Errors
// ============================================================================

var (
	ErrBadInput          = errors.New("invalid training data")
	ErrUnsupportedFormat = errors.New("unsupported training data format")
	ErrEmptyQuery        = errors.New("query is required")
)

// ============================================================================
// Training Errors
// ============================================================================

var (
	ErrTrainingFailed     = errors.New("training failed")
	ErrTrainingInProgress = errors.New("training already in progress for this application")
)

// ============================================================================
// Model / Storage Errors
// ============================================================================

// Not found errors
var (
	ErrModelNotTrained  = errors.New("application has no trained model")
	ErrSnapshotNotFound = errors.New("training snapshot not found")
)

var (
	ErrLoadFailed = errors.New("model artifacts could not be loaded")
	ErrStorage    = errors.New("storage failure")
)

// ErrInference wraps failures of a loaded model while answering a query.
var ErrInference = errors.New("model inference failed")

// ============================================================================
// History Errors
// ============================================================================

var ErrHistoryNotAvailable = errors.New("training history is not enabled")
