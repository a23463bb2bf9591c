package transportutil

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/golangci/golangci-billing/internal/api/endpointutil"
	"github.com/golangci/golangci-billing/internal/shared/logutil"
)

// AdaptErrorLogger makes a go-kit logger for transport errors (decode and
// encode failures). They are warnings: the client gets an error response.
func AdaptErrorLogger(log logutil.Log) log.Logger {
	return errorLog{
		log: log.Child("transport"),
	}
}

type errorLog struct {
	log logutil.Log
}

// Log gets go-kit key-value pairs like ("err", err).
func (el errorLog) Log(keyvals ...interface{}) error {
	pairs := make([]string, 0, len(keyvals)/2+1)
	for i := 0; i < len(keyvals); i += 2 {
		if i+1 == len(keyvals) {
			pairs = append(pairs, fmt.Sprint(keyvals[i]))
			break
		}
		pairs = append(pairs, fmt.Sprintf("%v=%v", keyvals[i], keyvals[i+1]))
	}

	el.log.Warnf("Transport error: %s", strings.Join(pairs, " "))
	return nil
}

// RequestContextLogger returns the request's context log or nil before the
// request context was made.
func RequestContextLogger(ctx context.Context) logutil.Log {
	rc := endpointutil.RequestContext(ctx)
	if rc == nil {
		return nil
	}

	return rc.Logger()
}
