package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golangci/golangci-billing/internal/shared/logutil"
)

// EnvConfig reads upper-cased keys from the process environment.
type EnvConfig struct {
	log logutil.Log
}

func NewEnvConfig(log logutil.Log) *EnvConfig {
	return &EnvConfig{
		log: log,
	}
}

func (c EnvConfig) GetString(key string) string {
	return strings.TrimSpace(os.Getenv(strings.ToUpper(key)))
}

// GetStringList splits a comma separated value, empty items are dropped.
func (c EnvConfig) GetStringList(key string) []string {
	var ret []string
	for _, item := range strings.Split(c.GetString(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			ret = append(ret, item)
		}
	}

	return ret
}

// parse runs p on the value of key; false means the default should be used.
func (c EnvConfig) parse(key string, p func(s string) error) bool {
	s := c.GetString(key)
	if s == "" {
		return false
	}

	if err := p(s); err != nil {
		c.log.Warnf("Config: invalid %s %q: %s", strings.ToUpper(key), s, err)
		return false
	}

	return true
}

func (c EnvConfig) GetDuration(key string, def time.Duration) time.Duration {
	var ret time.Duration
	ok := c.parse(key, func(s string) (err error) {
		ret, err = time.ParseDuration(s)
		return
	})
	if !ok {
		return def
	}
	return ret
}

func (c EnvConfig) GetInt(key string, def int) int {
	var ret int
	ok := c.parse(key, func(s string) (err error) {
		ret, err = strconv.Atoi(s)
		return
	})
	if !ok {
		return def
	}
	return ret
}

func (c EnvConfig) GetFloat(key string, def float64) float64 {
	var ret float64
	ok := c.parse(key, func(s string) (err error) {
		ret, err = strconv.ParseFloat(s, 64)
		return
	})
	if !ok {
		return def
	}
	return ret
}

func (c EnvConfig) GetBool(key string, def bool) bool {
	var ret bool
	ok := c.parse(key, func(s string) error {
		switch strings.ToLower(s) {
		case "1", "true", "yes":
			ret = true
		case "0", "false", "no":
			ret = false
		default:
			return strconv.ErrSyntax
		}
		return nil
	})
	if !ok {
		return def
	}
	return ret
}
