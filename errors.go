package jaydl

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidURL means a required native ID could not be extracted.
	ErrInvalidURL = errors.New("could not extract a video ID from this URL")
	// ErrUpstreamUnavailable means every tier of the fallback chain failed.
	ErrUpstreamUnavailable = errors.New("could not access this content")
	// ErrNoFormats means a direct-tier result carried no usable formats.
	ErrNoFormats = errors.New("no downloadable formats available")
	// ErrNoMirrors means a source client exhausted its whole mirror pool.
	ErrNoMirrors = errors.New("all mirrors failed")
)

// RateLimitError is returned when the Spotify daily cap is reached. It is
// never retried automatically.
type RateLimitError struct {
	Remaining int
	ResetAt   time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("daily download limit reached, resets at %s", e.ResetAt.Format(time.RFC3339))
}

// AuthRequiredError is returned when the extraction tool reports content
// that needs a signed-in session (private, members-only, age-restricted).
// The request is not retried with a credential unless the caller re-submits
// one.
type AuthRequiredError struct {
	Reason string
}

func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf("content requires authentication (%s); supplying a credential may help", e.Reason)
}

// TruncateErrorText bounds upstream tool output before it reaches logs.
// Subprocess stderr can be arbitrarily large and occasionally contains
// request details that should not be propagated verbatim.
func TruncateErrorText(s string) string {
	const max = 500
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
