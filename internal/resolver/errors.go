package resolver

import "fmt"

// ConfigurationError indicates the asset record lacks the fields or
// credentials its upload source requires. Retrying cannot help.
type ConfigurationError struct {
	Source string
	Field  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s asset is missing required field %q", e.Source, e.Field)
}

// NotFoundError indicates the remote source answered but the referenced
// object does not exist there.
type NotFoundError struct {
	Source string
	Ref    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("object %q not found in %s", e.Ref, e.Source)
}

// SourceUnavailableError indicates the remote source could not be
// reached or refused the request. These are retried before surfacing.
type SourceUnavailableError struct {
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}
