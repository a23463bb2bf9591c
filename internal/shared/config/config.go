package config

import "time"

// Config reads settings by key. Typed getters return def when the key is
// unset or its value can't be parsed.
type Config interface {
	GetString(key string) string
	GetStringList(key string) []string
	GetDuration(key string, def time.Duration) time.Duration
	GetInt(key string, def int) int
	GetFloat(key string, def float64) float64
	GetBool(key string, def bool) bool
}
