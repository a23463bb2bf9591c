package transportutil

import (
	"github.com/golangci/golangci-billing/internal/shared/apperrors"
	"github.com/golangci/golangci-billing/internal/shared/config"
	"github.com/golangci/golangci-billing/internal/shared/logutil"
	"github.com/gorilla/mux"
	"github.com/jinzhu/gorm"
)

type HandlerRegContext struct {
	Router     *mux.Router
	Log        logutil.Log
	ErrTracker apperrors.Tracker
	DB         *gorm.DB
	Cfg        config.Config
}
