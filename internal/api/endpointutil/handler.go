package endpointutil

import (
	"github.com/golangci/golangci-billing/internal/shared/apperrors"
	"github.com/golangci/golangci-billing/internal/shared/config"
	"github.com/golangci/golangci-billing/internal/shared/logutil"
	"github.com/jinzhu/gorm"
)

type HandlerRegContext struct {
	Log        logutil.Log
	ErrTracker apperrors.Tracker
	Cfg        config.Config
	DB         *gorm.DB
}
