// Package worker provides the HTTP client adapter for the external research
// execution worker.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/scoutline/scout-api/internal/core"
	apperrors "github.com/scoutline/scout-api/internal/errors"
)

const defaultTimeout = 10 * time.Second

// Client triggers research execution over the worker's HTTP API. The worker
// accepts jobs asynchronously: a trigger only enqueues, results come back
// later through the internal callback endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientConfig holds configuration for the worker client.
type ClientConfig struct {
	// BaseURL is the worker endpoint, e.g. "http://worker:9000".
	BaseURL string
	// Timeout bounds a single trigger request. Defaults to 10s.
	Timeout time.Duration
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewClient creates a new worker client.
func NewClient(cfg ClientConfig) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("worker base URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	var logger *slog.Logger
	if cfg.Logger != nil {
		logger = cfg.Logger.With("component", "worker_client")
	}

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// TriggerExecution asks the worker to start researching the given job. The
// worker answers 202 Accepted; anything else is an error. Network timeouts
// and unreachable workers surface as Transient so callers can retry.
func (c *Client) TriggerExecution(ctx context.Context, jobID string) error {
	url := fmt.Sprintf("%s/v1/research/execute/%s", c.baseURL, jobID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("build trigger request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return apperrors.Wrapf(err, apperrors.ErrCodeTransient,
				"Execution worker did not respond in time for job %s.", jobID)
		}
		return apperrors.Wrap(err, apperrors.ErrCodeTransient, "Execution worker is unreachable.")
	}
	defer func() {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusAccepted {
		return apperrors.Internalf("execution worker rejected job %s: status %d", jobID, resp.StatusCode)
	}

	if c.logger != nil {
		c.logger.DebugContext(ctx, "execution triggered", "id", jobID)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

var _ core.ExecutionTrigger = (*Client)(nil)
