package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// env reads typed settings from the process environment. Unset keys take
// the fallback; set but unparsable keys are collected as errors so a typo
// fails startup instead of silently running on a default.
type env struct {
	lookup func(string) (string, bool)
	errs   []string
}

func newEnv() *env {
	return &env{lookup: os.LookupEnv}
}

func (e *env) raw(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *env) invalid(key, v, want string) {
	e.errs = append(e.errs, fmt.Sprintf("%s=%q is not a valid %s", key, v, want))
}

func (e *env) String(key, fallback string) string {
	if v, ok := e.raw(key); ok {
		return v
	}
	return fallback
}

func (e *env) Int(key string, fallback int) int {
	v, ok := e.raw(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.invalid(key, v, "integer")
		return fallback
	}
	return n
}

func (e *env) Uint32(key string, fallback uint32) uint32 {
	v, ok := e.raw(key)
	if !ok {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		e.invalid(key, v, "unsigned integer")
		return fallback
	}
	return uint32(n)
}

func (e *env) Float(key string, fallback float64) float64 {
	v, ok := e.raw(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.invalid(key, v, "number")
		return fallback
	}
	return f
}

func (e *env) Bool(key string, fallback bool) bool {
	v, ok := e.raw(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.invalid(key, v, "boolean")
		return fallback
	}
	return b
}

func (e *env) Duration(key string, fallback time.Duration) time.Duration {
	v, ok := e.raw(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.invalid(key, v, "duration")
		return fallback
	}
	return d
}

// List splits a comma-separated value, dropping empty items.
func (e *env) List(key string, fallback []string) []string {
	v, ok := e.raw(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
