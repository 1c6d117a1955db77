package external

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// maxResponseSize bounds how much of an upstream body is read
const maxResponseSize = 16 << 20

// httpResponse is what survives a guarded GET
type httpResponse struct {
	statusCode int
	body       []byte
}

// guardedGet waits for the limiter, then performs a GET through the breaker.
// A non-2xx response is returned together with errUpstreamStatus.
func guardedGet(
	ctx context.Context,
	client *http.Client,
	limiter *rate.Limiter,
	breaker *gobreaker.CircuitBreaker,
	requestURL string,
	headers map[string]string,
) (*httpResponse, error) {
	if err := limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	result, err := breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to execute request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}

		out := &httpResponse{statusCode: resp.StatusCode, body: body}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return out, fmt.Errorf("%w: %d", errUpstreamStatus, resp.StatusCode)
		}
		return out, nil
	})

	resp, _ := result.(*httpResponse)
	return resp, err
}
