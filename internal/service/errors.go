package service

import "errors"

// Common service errors
var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when there's a conflict (e.g., duplicate)
	ErrConflict = errors.New("resource conflict")

	// ErrInvalidStage is returned when a stage value is not part of the pipeline
	ErrInvalidStage = errors.New("invalid pipeline stage")

	// ErrSupplierRequired is returned when an opportunity would reach a stage
	// that needs at least one supplier price entry for its product
	ErrSupplierRequired = errors.New("stage requires at least one supplier for the product")

	// ErrBatchValidationFailed is returned when an import commit is attempted
	// while the payload still contains invalid rows
	ErrBatchValidationFailed = errors.New("import batch has invalid rows")
)
