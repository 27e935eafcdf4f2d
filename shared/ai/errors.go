package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrAssetFailed reports that the provider could not process an uploaded file.
var ErrAssetFailed = errors.New("remote processing failed")

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("empty response from model")

// IngestionError wraps any failure to get a local file into a READY remote asset.
type IngestionError struct {
	Path string
	Name string
	Err  error
}

func (e *IngestionError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("ingestion of %s (%s) failed: %v", e.Path, e.Name, e.Err)
	}
	return fmt.Sprintf("ingestion of %s failed: %v", e.Path, e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

// IngestionTimeoutError is the cause of an IngestionError when the asset was
// still processing at the deadline.
type IngestionTimeoutError struct {
	Waited time.Duration
	Polls  int
}

func (e *IngestionTimeoutError) Error() string {
	return fmt.Sprintf("asset still processing after %v (%d polls)", e.Waited, e.Polls)
}

func (e *IngestionTimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}

type Modality string

const (
	ModalityVisual Modality = "visual"
	ModalityAudio  Modality = "audio"
)

// ClassificationError covers both failed requests and responses that do not
// match the declared schema.
type ClassificationError struct {
	Modality Modality
	Err      error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("%s classification failed: %v", e.Modality, e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}
