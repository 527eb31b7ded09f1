package dashboard

import (
	"errors"
	"fmt"
)

// ErrBusy is returned when a submission arrives while another is in flight.
var ErrBusy = errors.New("a question is already being answered")

// ErrorKind classifies why a submission failed.
type ErrorKind int

const (
	// TranslationError means the model call failed or its reply was unusable.
	TranslationError ErrorKind = iota + 1
	// ClassificationMiss means the reply named no known endpoint template.
	ClassificationMiss
	// NetworkError means the backend could not be reached or answered non-2xx.
	NetworkError
	// DecodeError means the backend body was not the expected JSON.
	DecodeError
	// RenderError means the chart could not be drawn.
	RenderError
)

// String returns the wire name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case TranslationError:
		return "translation"
	case ClassificationMiss:
		return "classification"
	case NetworkError:
		return "network"
	case DecodeError:
		return "decode"
	case RenderError:
		return "render"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Error is a failed submission. Endpoint is the model's endpoint string or
// the rebuilt fetch URL, whichever the failure happened at.
type Error struct {
	Kind     ErrorKind
	Endpoint string
	Err      error
}

func (e *Error) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("%s error (%s): %v", e.Kind, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of a submission error, or 0 for other errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
