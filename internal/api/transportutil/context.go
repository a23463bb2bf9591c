package transportutil

import (
	"context"
	"net/http"
	"time"

	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/golangci/golangci-billing/internal/api/endpointutil"
	"github.com/golangci/golangci-billing/internal/shared/logutil"
)

func MakeStoreAnonymousRequestContext(hctx endpointutil.HandlerRegContext) httptransport.RequestFunc {
	return func(ctx context.Context, r *http.Request) context.Context {
		hctx.ErrTracker = hctx.ErrTracker.WithHTTPRequest(r)
		rc := endpointutil.MakeAnonymousRequestContext(ctx, &hctx)
		return endpointutil.StoreRequestContext(ctx, rc)
	}
}

func FinalizeRequest(ctx context.Context, code int, r *http.Request) {
	rc := endpointutil.RequestContext(ctx)
	if rc != nil {
		rc.Logger().Debugf("http", "%s %s respond %d for %s", r.Method, r.URL.Path, code, time.Since(rc.RequestStartedAt()))
	} else {
		logger := logutil.NewStderrLog("finalize request", "http")
		logger.Debugf("http", "%s %s respond %d with no request context", r.Method, r.URL.Path, code)
	}
}

type ctxKey string

const httpRequestKey ctxKey = "transport/httpRequest"

func StoreHTTPRequestToContext(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, httpRequestKey, r)
}

func GetHTTPRequestFromContext(ctx context.Context) *http.Request {
	r, _ := ctx.Value(httpRequestKey).(*http.Request)
	return r
}
