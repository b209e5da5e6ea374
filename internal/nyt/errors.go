package nyt

import (
	"errors"
	"fmt"

	"github.com/bilgisen/nytrelay/internal/config"
)

// ErrMissingCredential is returned by NewClient when no API key is configured.
var ErrMissingCredential = config.ErrMissingCredential

// ErrorKind classifies upstream failures for the layers above the client.
type ErrorKind int

const (
	// KindUpstream covers transport failures and unexpected HTTP statuses.
	KindUpstream ErrorKind = iota
	// KindInvalidCategory is an unknown section, rejected locally or by a 404.
	KindInvalidCategory
	// KindRateLimited means the NYT API answered 429.
	KindRateLimited
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidCategory:
		return "invalid_category"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "upstream"
	}
}

// Error is returned by every Client operation that fails.
type Error struct {
	Kind       ErrorKind
	Op         string
	Category   string
	StatusCode int
	// Detail is safe to show to API callers.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.String()
	if e.Category != "" {
		msg += fmt.Sprintf(" (category %q)", e.Category)
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindUpstream, false
}

const rateLimitedDetail = "Too many requests to NYT API. Please try again later."
