package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for failure classification. Stages wrap their errors with
// one of these so the runner and the orchestrator can tell a row-level
// failure from a batch-aborting one without inspecting message text.
var (
	// ErrTransport covers timeouts, network errors, and rate-limit
	// responses from external backends. Row-level.
	ErrTransport = errors.New("transport failure")
	// ErrContentQuality covers expected editorial rejections: short
	// sources, low-fidelity drafts, violated checklists. Row-level.
	ErrContentQuality = errors.New("content quality failure")
	// ErrNotFound covers missing rows or remote resources. Row-level.
	ErrNotFound = errors.New("not found")
	// ErrConfiguration covers unusable operator configuration. Aborts the
	// stage invocation.
	ErrConfiguration = errors.New("configuration error")
	// ErrInfrastructure covers store unavailability and lock contention.
	// Aborts the stage invocation; safe to retry the whole invocation.
	ErrInfrastructure = errors.New("infrastructure failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRowFailure reports whether an error should be recorded against the row
// and skipped, rather than aborting the whole stage invocation.
func IsRowFailure(err error) bool {
	if err == nil {
		return false
	}
	return !IsAbort(err)
}

// IsAbort reports whether an error must abort the current stage invocation.
func IsAbort(err error) bool {
	return errors.Is(err, ErrInfrastructure) || errors.Is(err, ErrConfiguration)
}

// ReasonCode extracts a short machine-readable classification for persistence
// in error text and stage log detail.
func ReasonCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrContentQuality):
		return "content_quality"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrInfrastructure):
		return "infrastructure"
	default:
		return "unclassified"
	}
}

// Details exposes the operator-facing portion of a wrapped error.
type ErrorDetails struct {
	Message string
	Reason  string
}

// Details strips the sentinel prefix from a wrapped error so status fields
// carry the human-readable part only.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	msg := err.Error()
	for _, marker := range []error{ErrTransport, ErrContentQuality, ErrNotFound, ErrConfiguration, ErrInfrastructure} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			msg = strings.TrimPrefix(msg, prefix)
			break
		}
	}
	return ErrorDetails{Message: strings.TrimSpace(msg), Reason: ReasonCode(err)}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
