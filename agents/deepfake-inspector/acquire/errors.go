package acquire

import "fmt"

// InvalidSourceError means no cache key could be derived from the source.
// It is returned before any disk or network activity.
type InvalidSourceError struct {
	Source string
	Reason string
}

func (e *InvalidSourceError) Error() string {
	return fmt.Sprintf("invalid source %q: %s", e.Source, e.Reason)
}

// AcquisitionError wraps a failed download or cache write.
type AcquisitionError struct {
	Key string
	Err error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("could not acquire video %s: %v", e.Key, e.Err)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}
