package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/golangci/golangci-billing/internal/api/apierrors"
	"github.com/golangci/golangci-billing/internal/api/paymentproviders/paymentprovider"
	"github.com/golangci/golangci-billing/internal/shared/config"
	"github.com/golangci/golangci-billing/internal/shared/logutil"
	"github.com/golangci/golangci-billing/pkg/api/billing"
	"github.com/golangci/golangci-billing/pkg/api/models"
	"github.com/golangci/golangci-billing/pkg/api/request"
	"github.com/pkg/errors"
)

const DefaultMaxBodySize = 256 * 1024

type EventRequestContext struct {
	Provider    string `request:"provider,urlPart,"`
	Token       string `request:"token,urlPart,optional"`
	ContentType string `request:"content-type,header,optional"`
	Signature   string `request:"stripe-signature,header,optional"`
}

func (r EventRequestContext) FillLogContext(lctx logutil.Context) {
	lctx["provider"] = r.Provider
}

type Outcome string

const (
	OutcomeHandled   Outcome = "handled"
	OutcomeUnhandled Outcome = "unhandled"
)

type EventResult struct {
	Result Outcome `json:"result"`
}

type Service interface {
	//url:/v1/payments/{provider}/events method:POST
	//url:/v1/payments/{provider}/{token}/events method:POST
	// EventCreate returns nil result for events the provider can't confirm.
	EventCreate(rc *request.AnonymousContext, reqCtx *EventRequestContext, body request.Body) (*EventResult, error)
}

type eventHandler func(ctx context.Context, log logutil.Log, object json.RawMessage) error

type BasicService struct {
	cfg         config.Config
	billing     *billing.Service
	verifier    paymentprovider.SignatureVerifier
	locker      *SubscriptionLocker
	handlers    map[string]eventHandler
	maxBodySize int
}

// NewBasicService builds the webhook service. Nil verifier disables
// signature checks, nil locker disables per subscription locking.
func NewBasicService(cfg config.Config, billingSvc *billing.Service,
	verifier paymentprovider.SignatureVerifier, locker *SubscriptionLocker) *BasicService {

	s := &BasicService{
		cfg:         cfg,
		billing:     billingSvc,
		verifier:    verifier,
		locker:      locker,
		maxBodySize: cfg.GetInt("WEBHOOK_MAX_BODY_SIZE", DefaultMaxBodySize),
	}
	s.handlers = map[string]eventHandler{
		"HandleCustomerSubscriptionDeleted": s.handleCustomerSubscriptionDeleted,
		"HandleCheckoutSessionCompleted":    s.handleCheckoutSessionCompleted,
	}

	return s
}

// handlerName makes "HandleCustomerSubscriptionDeleted" from "customer.subscription.deleted".
func handlerName(eventType string) string {
	parts := strings.FieldsFunc(eventType, func(r rune) bool {
		return r == '.' || r == '_'
	})

	var sb strings.Builder
	sb.WriteString("Handle")
	for _, p := range parts {
		r, size := utf8.DecodeRuneInString(p)
		sb.WriteRune(unicode.ToUpper(r))
		sb.WriteString(p[size:])
	}
	return sb.String()
}

func (s BasicService) checkToken(rc *request.AnonymousContext, reqCtx *EventRequestContext) error {
	cfgTokenKey := fmt.Sprintf("%s_WEBHOOK_TOKEN", strings.ToUpper(reqCtx.Provider))
	cfgToken := s.cfg.GetString(cfgTokenKey)
	if cfgToken == "" {
		return nil
	}

	if reqCtx.Token != cfgToken {
		rc.Log.Warnf("Invalid webhook token %q", reqCtx.Token)
		return errors.Wrap(apierrors.ErrNotAuthorized, "invalid token")
	}

	return nil
}

func (s BasicService) checkRequest(rc *request.AnonymousContext, reqCtx *EventRequestContext, body request.Body) error {
	if reqCtx.Provider != s.billing.Provider().Name() {
		return errors.Wrapf(apierrors.ErrNotFound, "unexpected provider %q", reqCtx.Provider)
	}

	if err := s.checkToken(rc, reqCtx); err != nil {
		return err
	}

	if len(body) > s.maxBodySize {
		return errors.Wrapf(apierrors.ErrPayloadTooLarge, "too big body of len %d", len(body))
	}

	if s.verifier != nil {
		if err := s.verifier.VerifySignature(body, reqCtx.Signature); err != nil {
			rc.Log.Warnf("Webhook signature verification failed: %s", err)
			return errors.Wrap(err, "failed to verify signature")
		}
	}

	return nil
}

func (s BasicService) EventCreate(rc *request.AnonymousContext, reqCtx *EventRequestContext, body request.Body) (*EventResult, error) {
	if err := s.checkRequest(rc, reqCtx, body); err != nil {
		return nil, err
	}

	env, err := parseEnvelope(reqCtx.ContentType, body)
	if err != nil {
		return nil, errors.Wrap(apierrors.ErrBadRequest, err.Error())
	}
	rc.Lctx["event_id"] = env.ID

	provider := s.billing.Provider()
	events := eventLog{db: rc.DB}

	stored, err := events.find(provider.Name(), env.ID)
	if err != nil {
		return nil, err
	}
	if stored != nil && stored.IsHandled() {
		rc.Log.Infof("Event was already processed with status %s, skipping it", stored.Status)
		observeEvent(provider.Name(), stored.Type, "duplicate")
		return &EventResult{Result: outcomeFromStatus(stored.Status)}, nil
	}

	// A forged payload has an id the provider doesn't know.
	event, err := provider.GetEvent(rc.Ctx, env.ID)
	if err != nil || event == nil {
		rc.Log.Warnf("Can't confirm event with the provider, ignoring it: %v", err)
		observeEvent(provider.Name(), "unknown", "not_genuine")
		return nil, nil
	}

	eventType := event.Type
	if eventType == "" {
		eventType = env.Type
	}
	object := event.Object
	if len(object) == 0 {
		object = env.Object
	}
	rc.Lctx["event_type"] = eventType

	if stored == nil {
		stored, err = events.received(provider.Name(), env.ID, eventType, body)
		if err != nil {
			return nil, err
		}
	}

	handler := s.handlers[handlerName(eventType)]
	if handler == nil {
		rc.Log.Infof("No handler for event, acknowledging it")
		if err = events.setStatus(stored, models.PaymentGatewayEventStatusUnhandled); err != nil {
			return nil, err
		}
		observeEvent(provider.Name(), eventType, string(OutcomeUnhandled))
		return &EventResult{Result: OutcomeUnhandled}, nil
	}

	if err = handler(rc.Ctx, rc.Log, object); err != nil {
		if setErr := events.setStatus(stored, models.PaymentGatewayEventStatusFailed); setErr != nil {
			rc.Log.Warnf("Can't mark event as failed: %s", setErr)
		}
		observeEvent(provider.Name(), eventType, "failed")
		return nil, errors.Wrapf(err, "failed to handle event %s of type %s", env.ID, eventType)
	}

	if err = events.setStatus(stored, models.PaymentGatewayEventStatusHandled); err != nil {
		return nil, err
	}
	observeEvent(provider.Name(), eventType, string(OutcomeHandled))
	return &EventResult{Result: OutcomeHandled}, nil
}

func outcomeFromStatus(status models.PaymentGatewayEventStatus) Outcome {
	if status == models.PaymentGatewayEventStatusUnhandled {
		return OutcomeUnhandled
	}

	return OutcomeHandled
}
