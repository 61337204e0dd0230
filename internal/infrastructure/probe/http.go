package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/GriffinCanCode/FitOS/backend/internal/shared/types"
)

// HTTPChecker probes HTTP endpoints with a GET request. Any 2xx status
// counts as healthy.
type HTTPChecker struct {
	client *resty.Client
}

// NewHTTPChecker creates an HTTP checker with pooled transport
func NewHTTPChecker() *HTTPChecker {
	// Borrow retryablehttp's pooled transport; retries stay with resty
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = 1 * time.Second
	retryClient.Logger = nil // Disable logging

	restyClient := resty.New()
	restyClient.
		SetTimeout(10*time.Second).
		SetRetryCount(1).
		SetRetryWaitTime(100*time.Millisecond).
		SetRetryMaxWaitTime(500*time.Millisecond).
		SetHeader("User-Agent", "FitOS-Probe/1.0")

	restyClient.SetTransport(retryClient.HTTPClient.Transport)

	return &HTTPChecker{client: restyClient}
}

// Check issues a GET against the probe target. The caller's context
// bounds the attempt, retries included.
func (h *HTTPChecker) Check(ctx context.Context, cfg types.ProbeConfig) error {
	resp, err := h.client.R().SetContext(ctx).Get(cfg.Target)
	if err != nil {
		return fmt.Errorf("probe request failed: %w", err)
	}

	if !resp.IsSuccess() {
		return fmt.Errorf("probe returned status %d", resp.StatusCode())
	}

	return nil
}
