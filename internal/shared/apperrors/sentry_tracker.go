package apperrors

import (
	"net/http"

	"github.com/getsentry/raven-go"
	"github.com/pkg/errors"
)

type SentryTracker struct {
	r       *http.Request
	project string
}

func NewSentryTracker(dsn, project, env string) (*SentryTracker, error) {
	raven.SetEnvironment(env)
	if err := raven.SetDSN(dsn); err != nil {
		return nil, errors.Wrap(err, "can't set sentry dsn")
	}

	return &SentryTracker{project: project}, nil
}

func (t SentryTracker) Track(level Level, errorText string, ctx map[string]interface{}) {
	tags := stringTags(ctx)
	tags["project"] = t.project

	var interfaces []raven.Interface
	if t.r != nil {
		interfaces = append(interfaces, raven.NewHttp(t.r))
	}

	errorClass, _ := splitErrorText(errorText)
	p := raven.NewPacket(errorText, interfaces...)
	p.Fingerprint = []string{t.project, errorClass}

	switch level {
	case LevelError:
		p.Level = raven.ERROR
	case LevelWarn:
		p.Level = raven.WARNING
	default:
		panic("invalid level " + level)
	}

	raven.Capture(p, tags)
}

func (t SentryTracker) WithHTTPRequest(r *http.Request) Tracker {
	t.r = r
	return t
}
