package provider

import (
	"errors"
	"fmt"
)

// Kind classifies a fetch failure.
type Kind string

const (
	KindConnection Kind = "connection"
	KindDecode     Kind = "decode"
	KindNotFound   Kind = "not_found"
)

// Sentinels matched by errors.Is against a *FetchError of the same kind.
var (
	ErrConnection = errors.New("provider connection failure")
	ErrDecode     = errors.New("provider decode failure")
	ErrNotFound   = errors.New("provider feed not found")
)

// FetchError reports why a provider could not produce an observation.
type FetchError struct {
	Provider string
	Kind     Kind
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for e.Kind.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrConnection:
		return e.Kind == KindConnection
	case ErrDecode:
		return e.Kind == KindDecode
	case ErrNotFound:
		return e.Kind == KindNotFound
	}
	return false
}

// KindOf returns the failure kind of err, or "" when err is not a
// *FetchError.
func KindOf(err error) Kind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

func connectionError(provider string, err error) error {
	return &FetchError{Provider: provider, Kind: KindConnection, Err: err}
}

func decodeError(provider string, err error) error {
	return &FetchError{Provider: provider, Kind: KindDecode, Err: err}
}

func notFoundError(provider string, err error) error {
	return &FetchError{Provider: provider, Kind: KindNotFound, Err: err}
}
