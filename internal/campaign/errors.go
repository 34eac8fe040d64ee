package campaign

import (
	"errors"
	"fmt"
)

// ErrAborted means a workflow stopped after printing its reason to the user.
var ErrAborted = errors.New("campaign aborted")

// Manifest read failures.
var (
	ErrManifestNotFound     = errors.New("project spec not found")
	ErrManifestEmpty        = errors.New("project spec is empty")
	ErrManifestMissingField = errors.New("project spec missing field")
)

// ManifestFieldError reports a required manifest key that is absent or empty.
// It matches ErrManifestMissingField with errors.Is.
type ManifestFieldError struct {
	Field string
}

func (e *ManifestFieldError) Error() string {
	return fmt.Sprintf("%v: %s", ErrManifestMissingField, e.Field)
}

func (e *ManifestFieldError) Is(target error) bool { return target == ErrManifestMissingField }

// GitOperationError wraps a failed git invocation made by a workflow.
type GitOperationError struct {
	Op  string
	Err error
}

func (e *GitOperationError) Error() string {
	return fmt.Sprintf("git %s failed: %v", e.Op, e.Err)
}

func (e *GitOperationError) Unwrap() error { return e.Err }

// DirectoryMissingError is returned when a campaign working directory is
// expected on disk but absent.
type DirectoryMissingError struct {
	Path string
}

func (e *DirectoryMissingError) Error() string {
	return fmt.Sprintf("campaign directory does not exist: %s", e.Path)
}
