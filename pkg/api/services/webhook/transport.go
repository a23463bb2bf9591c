package webhook

import (
	"context"
	"net/http"

	"github.com/go-kit/kit/endpoint"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/golangci/golangci-billing/internal/api/apierrors"
	"github.com/golangci/golangci-billing/internal/api/endpointutil"
	"github.com/golangci/golangci-billing/internal/api/transportutil"
	"github.com/golangci/golangci-billing/pkg/api/request"
	"github.com/pkg/errors"
)

type eventCreateRequest struct {
	Context *EventRequestContext
	Body    request.Body
}

func makeEventCreateEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, req interface{}) (interface{}, error) {
		if err := endpointutil.Error(ctx); err != nil {
			return nil, err
		}

		rc, ok := endpointutil.RequestContext(ctx).(*request.AnonymousContext)
		if !ok {
			return nil, errors.New("no anonymous request context")
		}

		reqData := req.(eventCreateRequest)
		reqData.Context.FillLogContext(rc.Lctx)

		return svc.EventCreate(rc, reqData.Context, reqData.Body)
	}
}

func makeDecodeEventCreateRequest(maxBodySize int64) httptransport.DecodeRequestFunc {
	return func(_ context.Context, r *http.Request) (interface{}, error) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(nil, r.Body, maxBodySize)
		}

		var req eventCreateRequest
		if err := transportutil.DecodeRequest(&req, r); err != nil {
			if errors.Cause(err) == apierrors.ErrPayloadTooLarge {
				return nil, err
			}
			return nil, errors.Wrap(apierrors.ErrBadRequest, err.Error())
		}

		return req, nil
	}
}

func RegisterHandlers(svc Service, regCtx *transportutil.HandlerRegContext) {
	hctx := endpointutil.HandlerRegContext{
		Log:        regCtx.Log,
		ErrTracker: regCtx.ErrTracker,
		Cfg:        regCtx.Cfg,
		DB:         regCtx.DB,
	}

	maxBodySize := regCtx.Cfg.GetInt("WEBHOOK_MAX_BODY_SIZE", DefaultMaxBodySize)
	eventCreateHandler := httptransport.NewServer(
		makeEventCreateEndpoint(svc),
		makeDecodeEventCreateRequest(int64(maxBodySize)),
		transportutil.EncodeResponse,
		httptransport.ServerBefore(transportutil.StoreHTTPRequestToContext),
		httptransport.ServerBefore(transportutil.MakeStoreAnonymousRequestContext(hctx)),
		httptransport.ServerErrorLogger(transportutil.AdaptErrorLogger(regCtx.Log)),
		httptransport.ServerErrorEncoder(transportutil.EncodeError),
		httptransport.ServerFinalizer(transportutil.FinalizeRequest),
	)

	regCtx.Router.Methods("POST").Path("/v1/payments/{provider}/events").Handler(eventCreateHandler)
	regCtx.Router.Methods("POST").Path("/v1/payments/{provider}/{token}/events").Handler(eventCreateHandler)
}
