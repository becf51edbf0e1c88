package domain

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTransport marks network failures and timeouts talking to the upstream API.
	ErrTransport = errors.New("transport error")
	// ErrUpstream marks a non-200 HTTP status or a non-zero application code.
	ErrUpstream = errors.New("upstream error")
	// ErrMalformed marks an undecodable payload or a missing expected field.
	ErrMalformed = errors.New("malformed response")
	// ErrConfig marks an unusable line in the target list.
	ErrConfig = errors.New("bad target line")
	// ErrSink marks a failed push of the metric batch.
	ErrSink = errors.New("sink push failed")
)

// Kind returns a short label for the error class, used in logs and self-metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrUpstream):
		return "upstream"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, ErrConfig):
		return "config"
	case errors.Is(err, ErrSink):
		return "sink"
	default:
		return "other"
	}
}
