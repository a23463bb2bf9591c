package request

import (
	"context"
	"time"

	"github.com/golangci/golangci-billing/internal/shared/logutil"
	"github.com/jinzhu/gorm"
)

type Context interface {
	RequestStartedAt() time.Time
	Logger() logutil.Log
	LogContext() logutil.Context
}

type BaseContext struct {
	Ctx  context.Context
	Log  logutil.Log
	Lctx logutil.Context
	DB   *gorm.DB

	StartedAt time.Time
}

func (ctx BaseContext) RequestStartedAt() time.Time {
	return ctx.StartedAt
}

func (ctx BaseContext) Logger() logutil.Log {
	return ctx.Log
}

func (ctx BaseContext) LogContext() logutil.Context {
	return ctx.Lctx
}

// AnonymousContext is the context of requests not bound to a user session,
// e.g. payment provider webhooks.
type AnonymousContext struct {
	BaseContext
}
