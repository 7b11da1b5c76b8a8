package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedPayload = errors.New("malformed provider payload")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrProviderDisabled = errors.New("provider is not configured")
)

// ProviderError tags a failed outbound call with the provider that made it.
type ProviderError struct {
	Provider   string
	Category   Category
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (%s): HTTP %d: %v", e.Provider, e.Category, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Provider, e.Category, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func NewProviderError(provider string, category Category, err error) error {
	if err == nil {
		return nil
	}
	var existing *ProviderError
	if errors.As(err, &existing) {
		return err
	}
	return &ProviderError{Provider: provider, Category: category, Err: err}
}
