package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP API server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeArchiver runs the background archive sweep.
	ServiceModeArchiver ServiceMode = "archiver"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeArchiver,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	parts := strings.Split(servicesStr, ",")
	for _, part := range parts {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeArchiver:
			services[mode] = true
		default:
			return nil, fmt.Errorf("invalid service name: %q (valid: %v)", serviceName, ValidServiceModes())
		}
	}

	if len(services) == 0 {
		return services, errors.New("at least one service must be specified")
	}
	return services, nil
}

// WorkerConfig contains execution worker client configuration.
type WorkerConfig struct {
	// BaseURL is the execution worker endpoint, e.g. "http://worker:9000".
	BaseURL string `env:"WORKER_BASE_URL" envDefault:"http://localhost:9000"`

	// Timeout bounds a single trigger request.
	Timeout time.Duration `env:"WORKER_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to worker configuration values.
func (w *WorkerConfig) Sanitize() {
	w.BaseURL = strings.TrimRight(strings.TrimSpace(w.BaseURL), "/")
	if w.Timeout <= 0 {
		w.Timeout = 10 * time.Second
	}
}

// RateLimitConfig contains per-owner fixed-window rate limit budgets.
type RateLimitConfig struct {
	// ExecutionLimit caps execution-class operations (create, retry) per window.
	ExecutionLimit int `env:"RATE_LIMIT_EXECUTION" envDefault:"5"`

	// ReadLimit caps read-class operations (get, list, stats) per window.
	ReadLimit int `env:"RATE_LIMIT_READ" envDefault:"60"`

	// Window is the fixed window length.
	Window time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1h"`
}

// Sanitize applies guardrails to rate limit configuration values.
func (r *RateLimitConfig) Sanitize() {
	if r.Window <= 0 {
		r.Window = time.Hour
	}
	if r.ExecutionLimit < 0 {
		r.ExecutionLimit = 0
	}
	if r.ReadLimit < 0 {
		r.ReadLimit = 0
	}
}

// PollerConfig contains snapshot poller configuration.
type PollerConfig struct {
	// Interval is how often the poller considers refreshing.
	Interval time.Duration `env:"POLLER_INTERVAL" envDefault:"30s"`

	// FetchTimeout bounds a single snapshot fetch.
	FetchTimeout time.Duration `env:"POLLER_FETCH_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to poller configuration values.
func (p *PollerConfig) Sanitize() {
	// A too-tight interval hammers the store for no fresher data
	if p.Interval < time.Second {
		p.Interval = time.Second
	}
	if p.FetchTimeout <= 0 {
		p.FetchTimeout = 10 * time.Second
	}
}

// ArchiverConfig contains background archive sweep configuration.
type ArchiverConfig struct {
	// Interval is the sweep tick interval.
	Interval time.Duration `env:"ARCHIVER_INTERVAL" envDefault:"1h"`

	// RetentionDays is how many days completed jobs are kept before the
	// sweep removes them.
	RetentionDays int `env:"ARCHIVER_RETENTION_DAYS" envDefault:"30"`

	// BatchSize is the maximum number of jobs one sweep may remove.
	// Batching prevents long locks and I/O spikes on large tables.
	BatchSize int `env:"ARCHIVER_BATCH_SIZE" envDefault:"100"`
}

// Sanitize applies guardrails to archiver configuration values.
func (a *ArchiverConfig) Sanitize() {
	// Enforce a minimum interval to prevent excessive database load
	if a.Interval < time.Minute {
		a.Interval = time.Minute
	}
	if a.RetentionDays < 1 {
		a.RetentionDays = 1
	}
	if a.BatchSize < 1 {
		a.BatchSize = 1
	}
	if a.BatchSize > 10000 {
		a.BatchSize = 10000
	}
}
