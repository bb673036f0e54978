package app

import (
	"fmt"
	"net/http"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

// ErrSnapshotNotFound is the expected outcome of loading a user-supplied
// snapshot name that was never saved; it is not an engine fault.
var ErrSnapshotNotFound = domainError(http.StatusNotFound, "SNAPSHOT_NOT_FOUND", "Snapshot not found")
