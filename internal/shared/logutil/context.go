package logutil

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
)

// Context is attached to every line of a context log. It's read on each
// call, so keys added later (e.g. event_id after parsing) show up too.
type Context map[string]interface{}

// String renders "[k1=v1 k2=v2]" with sorted keys, "" for an empty context.
func (lctx Context) String() string {
	if len(lctx) == 0 {
		return ""
	}

	keys := make([]string, 0, len(lctx))
	for k := range lctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", color.YellowString(k), lctx[k]))
	}

	return "[" + strings.Join(pairs, " ") + "]"
}

func WrapLogWithContext(log Log, lctx Context) Log {
	return contextLog{
		Log:  log,
		lctx: lctx,
	}
}

type contextLog struct {
	Log
	lctx Context
}

func (cl contextLog) withContext(format string) string {
	ctx := cl.lctx.String()
	if ctx == "" {
		return format
	}

	// context values may contain '%'
	return format + " " + strings.Replace(ctx, "%", "%%", -1)
}

func (cl contextLog) Fatalf(format string, args ...interface{}) {
	cl.Log.Fatalf(cl.withContext(format), args...)
}

func (cl contextLog) Errorf(format string, args ...interface{}) {
	cl.Log.Errorf(cl.withContext(format), args...)
}

func (cl contextLog) Warnf(format string, args ...interface{}) {
	cl.Log.Warnf(cl.withContext(format), args...)
}

func (cl contextLog) Infof(format string, args ...interface{}) {
	cl.Log.Infof(cl.withContext(format), args...)
}

func (cl contextLog) Debugf(key string, format string, args ...interface{}) {
	cl.Log.Debugf(key, cl.withContext(format), args...)
}

func (cl contextLog) Child(name string) Log {
	return WrapLogWithContext(cl.Log.Child(name), cl.lctx)
}
