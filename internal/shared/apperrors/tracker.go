package apperrors

import (
	"fmt"
	"net/http"
	"strings"
)

type Level string

const (
	LevelError Level = "ERROR"
	LevelWarn  Level = "WARN"
)

type Tracker interface {
	Track(level Level, errorText string, ctx map[string]interface{})
	WithHTTPRequest(r *http.Request) Tracker
}

type nopTracker struct{}

// NewNopTracker returns a tracker dropping everything, it's used when no
// error tracking service is configured.
func NewNopTracker() Tracker {
	return nopTracker{}
}

func (nopTracker) Track(Level, string, map[string]interface{}) {}

func (t nopTracker) WithHTTPRequest(*http.Request) Tracker {
	return t
}

// splitErrorText splits "failed to cancel subscription: card declined" into
// the class used for grouping and the detail.
func splitErrorText(errorText string) (class, detail string) {
	parts := strings.SplitN(errorText, ": ", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}

	return parts[0], ""
}

func stringTags(ctx map[string]interface{}) map[string]string {
	tags := map[string]string{}
	for k, v := range ctx {
		tags[k] = fmt.Sprintf("%v", v)
	}
	return tags
}
