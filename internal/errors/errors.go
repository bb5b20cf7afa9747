package errors

import (
	"fmt"
)

// PanelAPIError represents an error returned by the 3x-ui panel API
type PanelAPIError struct {
	Operation string
	Status    int
	Message   string
}

// Error returns the error message
func (e *PanelAPIError) Error() string {
	return fmt.Sprintf("panel API error during %s (status %d): %s", e.Operation, e.Status, e.Message)
}

// ValidationError represents an error when validation fails
type ValidationError struct {
	Field   string
	Message string
}

// Error returns the error message
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)
}

// ConfigError represents an error related to configuration
type ConfigError struct {
	Section string
	Message string
}

// Error returns the error message
func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Section, e.Message)
}

// StateError represents an error related to user conversation state
type StateError struct {
	UserID  int64
	Message string
}

// Error returns the error message
func (e *StateError) Error() string {
	return fmt.Sprintf("state error for user %d: %s", e.UserID, e.Message)
}
