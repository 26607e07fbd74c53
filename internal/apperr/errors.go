// Package apperr defines the error taxonomy shared by ingestion, inference and the API boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable machine-readable error code returned to API clients.
type Code string

const (
	CodeFetch      Code = "FETCH_FAILED"
	CodeExtraction Code = "EXTRACTION_FAILED"
	CodeValidation Code = "VALIDATION_FAILED"
	CodeInference  Code = "INFERENCE_FAILED"
	CodeInternal   Code = "INTERNAL_ERROR"
)

// Stage names the model call that failed.
type Stage string

const (
	StageSummarize Stage = "summarize"
	StageClassify  Stage = "classify"
	StageSentiment Stage = "sentiment"
)

// FetchError reports a network or timeout failure while retrieving a URL.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExtractionError reports that no usable text could be obtained from a source.
type ExtractionError struct {
	Source     string
	Reason     string
	StatusCode int // upstream HTTP status, 0 when not applicable
	Err        error
}

func (e *ExtractionError) Error() string {
	msg := fmt.Sprintf("extract %s: %s", e.Source, e.Reason)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ValidationError reports malformed caller input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InferenceError reports a failed model call, tagged with the stage.
type InferenceError struct {
	Stage Stage
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference %s: %v", e.Stage, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// Validation is a shorthand constructor.
func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Extraction is a shorthand constructor.
func Extraction(source, reason string, err error) error {
	return &ExtractionError{Source: source, Reason: reason, Err: err}
}

// Inference wraps err as a stage failure. Existing InferenceErrors pass through.
func Inference(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var ie *InferenceError
	if errors.As(err, &ie) {
		return err
	}
	return &InferenceError{Stage: stage, Err: err}
}

// CodeOf maps an error to its taxonomy code.
func CodeOf(err error) Code {
	var (
		fe *FetchError
		ee *ExtractionError
		ve *ValidationError
		ie *InferenceError
	)
	switch {
	case errors.As(err, &ve):
		return CodeValidation
	case errors.As(err, &fe):
		return CodeFetch
	case errors.As(err, &ee):
		return CodeExtraction
	case errors.As(err, &ie):
		return CodeInference
	default:
		return CodeInternal
	}
}

// HTTPStatus maps an error to the status code the API boundary responds with.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeExtraction:
		return http.StatusUnprocessableEntity
	case CodeFetch:
		return http.StatusBadGateway
	case CodeInference:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
