package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/0xcro3dile/starbot/internal/domain/entities"
)

// maxErrorBody caps how much of a failed response body is kept in errors.
const maxErrorBody = 512

// newHTTPClient splits the total budget so that connecting can't eat all
// of it. The caller enforces the total with a context deadline.
func newHTTPClient(total time.Duration) *http.Client {
	phase := total / 3
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: phase, KeepAlive: 30 * time.Second}).DialContext,
			TLSHandshakeTimeout:   phase,
			ResponseHeaderTimeout: total,
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}

// classifyTransportError maps a failed round trip to a generation failure.
func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return entities.NewCanceledError(err)
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return entities.NewTimeoutError(err)
	}
	return entities.NewConnectionError(err)
}

// checkStatus turns a non-2xx response into a bad-status failure.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return entities.NewBadStatusError(resp.StatusCode, fmt.Sprintf("status %d: %s", resp.StatusCode, body))
}

// readError distinguishes a body read cut short by the deadline from a
// malformed payload.
func readError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return classifyTransportError(errors.Join(ctxErr, err))
	}
	return entities.NewInvalidResponseError(err)
}
