package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// ValidateRequired checks if a required string field is not empty
func ValidateRequired(field, value, entityType string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{
			Field:   field,
			Value:   value,
			Message: fmt.Sprintf("is required for %s", entityType),
		}
	}
	return nil
}

// ValidateEntityKey checks a capability or component key. Keys end up in
// CLI flags, compose project names and result records, so they must be
// non-empty and free of whitespace.
func ValidateEntityKey(key, entityType string) error {
	if err := ValidateRequired("key", key, entityType); err != nil {
		return err
	}
	if strings.ContainsAny(key, " \t\n") {
		return ValidationError{
			Field:   "key",
			Value:   key,
			Message: "cannot contain whitespace",
		}
	}
	return nil
}

// Validate checks the settings for values that would make every run fail.
func (s Settings) Validate() error {
	var errs ValidationErrors

	if strings.TrimSpace(s.DatabaseDir) == "" {
		errs.Add("databaseDir", "must not be empty")
	}
	if s.Docker.ComposeBinary == "" {
		errs.Add("docker.composeBinary", "must not be empty")
	}
	if s.Docker.NetworkPrefix == "" {
		errs.Add("docker.networkPrefix", "must not be empty")
	}
	if s.Health.Interval <= 0 {
		errs.Add("health.interval", "must be positive", s.Health.Interval)
	}
	if s.Health.Attempts < 1 {
		errs.Add("health.attempts", "must be at least 1", s.Health.Attempts)
	}
	if s.Trino.HostPort < 1 || s.Trino.HostPort > 65535 {
		errs.Add("trino.hostPort", "must be a valid port", s.Trino.HostPort)
	}
	if s.TeardownTimeout <= 0 {
		errs.Add("teardownTimeout", "must be positive", s.TeardownTimeout)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
