package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Rule limits one endpoint. A Path ending in "/" matches by prefix.
type Rule struct {
	Path   string
	Method string
	Limit  int           // requests per Window; zero or less is unlimited
	Window time.Duration
	Burst  int // defaults to Limit
}

// Config holds rate limiting configuration
type Config struct {
	Enabled       bool
	DefaultLimit  int
	DefaultWindow time.Duration
	Rules         []Rule
	Whitelist     map[string]bool
}

// DefaultConfig limits the model-backed endpoints to 30 requests an hour per client
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		DefaultLimit:  600,
		DefaultWindow: time.Minute,
		Rules:         DefaultRules(30),
		Whitelist:     map[string]bool{},
	}
}

// DefaultRules returns the rules for endpoints that call the model
func DefaultRules(perHour int) []Rule {
	return []Rule{
		{Path: "/normalize", Method: "POST", Limit: perHour, Window: time.Hour, Burst: 5},
		{Path: "/compare", Method: "POST", Limit: perHour, Window: time.Hour, Burst: 5},
		{Path: "/health", Method: "GET", Limit: 0},
	}
}

// LoadConfig reads RATE_LIMIT_ENABLED, RATE_LIMIT_MODEL_PER_HOUR and
// RATE_LIMIT_WHITELIST over DefaultConfig.
func LoadConfig() Config {
	cfg := DefaultConfig()
	if v, err := strconv.ParseBool(os.Getenv("RATE_LIMIT_ENABLED")); err == nil {
		cfg.Enabled = v
	}
	if v, err := strconv.Atoi(os.Getenv("RATE_LIMIT_MODEL_PER_HOUR")); err == nil && v > 0 {
		cfg.Rules = DefaultRules(v)
	}
	for _, ip := range strings.Split(os.Getenv("RATE_LIMIT_WHITELIST"), ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			cfg.Whitelist[ip] = true
		}
	}
	return cfg
}

// Match returns the rule for a request, preferring exact paths over prefixes, or nil
func Match(path, method string, rules []Rule) *Rule {
	for i := range rules {
		if rules[i].Path == path && rules[i].Method == method {
			return &rules[i]
		}
	}
	for i := range rules {
		r := &rules[i]
		if r.Method == method && strings.HasSuffix(r.Path, "/") && strings.HasPrefix(path, r.Path) {
			return r
		}
	}
	return nil
}
