package paymentprovider

import "context"

type contextKey string

const contextKeyIdempotencyKey contextKey = "paymentprovider/idempotencyKey"

// WithIdempotencyKey makes every retry of a create call share one key, so
// the provider performs the create at most once.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, contextKeyIdempotencyKey, key)
}

func IdempotencyKey(ctx context.Context) string {
	v, _ := ctx.Value(contextKeyIdempotencyKey).(string)
	return v
}
