package pokeapi

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound matches an UpstreamError with status 404.
	ErrNotFound = errors.New("pokeapi: not found")

	// ErrEmptyResult is returned when a successful response decodes to nothing
	// (a null body or a record without a name).
	ErrEmptyResult = errors.New("pokeapi: empty result")
)

// UpstreamError is a non-2xx response from PokeAPI.
type UpstreamError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("pokeapi: upstream %d for %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("pokeapi: upstream %d for %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// DecodeError is a payload that does not match the expected shape.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("pokeapi: decode %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
