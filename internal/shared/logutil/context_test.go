package logutil

import (
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestContextString(t *testing.T) {
	color.NoColor = true

	assert.Equal(t, "", Context{}.String())
	assert.Equal(t, "[customer_id=3 event_id=evt_1]", Context{
		"event_id":    "evt_1",
		"customer_id": 3,
	}.String())
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLogLevel("debug", LogLevelInfo))
	assert.Equal(t, LogLevelWarn, ParseLogLevel("warning", LogLevelInfo))
	assert.Equal(t, LogLevelInfo, ParseLogLevel("verbose", LogLevelInfo))
}
