package gormdb

import (
	"fmt"
	"time"

	"github.com/golangci/golangci-billing/internal/shared/logutil"
)

// logger adapts logutil.Log to gorm's Print-based logger.
type logger struct {
	log logutil.Log
}

func (l logger) Print(values ...interface{}) {
	if len(values) < 2 {
		return
	}

	if values[0] == "sql" && len(values) >= 5 {
		dur, _ := values[2].(time.Duration)
		l.log.Debugf("sql", "[%.2fms] %v %v", float64(dur.Nanoseconds())/1e6, values[3], values[4])
		return
	}

	l.log.Infof("gorm: %s", fmt.Sprint(values[2:]...))
}
