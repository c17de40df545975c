package search

import (
	"fmt"
	"time"
)

// EmptyRegistryError indicates a search against a registry with no agents.
type EmptyRegistryError struct{}

// Error implements the error interface.
func (e *EmptyRegistryError) Error() string {
	return "no agents registered"
}

// SearchTimeoutError indicates a query exceeded its deadline.
type SearchTimeoutError struct {
	Requirement string
	Timeout     time.Duration
}

// Error implements the error interface.
func (e *SearchTimeoutError) Error() string {
	return fmt.Sprintf("search for '%s' timed out after %s", e.Requirement, e.Timeout)
}
