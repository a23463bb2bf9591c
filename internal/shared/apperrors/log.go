package apperrors

import (
	"fmt"

	"github.com/golangci/golangci-billing/internal/shared/logutil"
)

// WrapLogWithTracker returns a log reporting warnings and errors to t,
// tagged with lctx and the name of the child log they come from.
func WrapLogWithTracker(log logutil.Log, lctx logutil.Context, t Tracker) logutil.Log {
	return trackedLog{
		Log:  log,
		lctx: lctx,
		t:    t,
	}
}

type trackedLog struct {
	logutil.Log

	lctx      logutil.Context
	t         Tracker
	component string
}

func (tl trackedLog) track(level Level, format string, args []interface{}) {
	ctx := map[string]interface{}{}
	for k, v := range tl.lctx {
		ctx[k] = v
	}
	if tl.component != "" {
		ctx["component"] = tl.component
	}

	tl.t.Track(level, fmt.Sprintf(format, args...), ctx)
}

func (tl trackedLog) Fatalf(format string, args ...interface{}) {
	tl.track(LevelError, format, args)
	tl.Log.Fatalf(format, args...)
}

func (tl trackedLog) Errorf(format string, args ...interface{}) {
	tl.track(LevelError, format, args)
	tl.Log.Errorf(format, args...)
}

func (tl trackedLog) Warnf(format string, args ...interface{}) {
	tl.track(LevelWarn, format, args)
	tl.Log.Warnf(format, args...)
}

func (tl trackedLog) Child(name string) logutil.Log {
	component := name
	if tl.component != "" {
		component = tl.component + "/" + name
	}

	return trackedLog{
		Log:       tl.Log.Child(name),
		lctx:      tl.lctx,
		t:         tl.t,
		component: component,
	}
}
