package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"
)

// Bounded-attempt policy for the remote call. The pipeline itself never
// retries; this is the collaborator boundary, so transient rate-limit and
// server errors get a small number of spaced attempts and everything else
// fails immediately.
const maxAttempts = 3

var (
	rateLimitWaits   = []time.Duration{5 * time.Second, 15 * time.Second}
	serverErrorWaits = []time.Duration{2 * time.Second, 6 * time.Second}
)

func callWithRetry(ctx context.Context, client *openai.Client, params responses.ResponseNewParams) (*responses.Response, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := client.Responses.New(ctx, params)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var wait time.Duration
		switch {
		case isRateLimitError(err) && attempt < len(rateLimitWaits):
			wait = rateLimitWaits[attempt]
		case isServerError(err) && attempt < len(serverErrorWaits):
			wait = serverErrorWaits[attempt]
		default:
			return nil, err
		}

		slog.Warn("model call failed, retrying", "attempt", attempt+1, "wait", wait, "error", err)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("model call failed after %d attempts: %w", maxAttempts, lastErr)
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "429") ||
		strings.Contains(s, "rate limit") ||
		strings.Contains(s, "too many requests")
}

func isServerError(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "500") ||
		strings.Contains(s, "502") ||
		strings.Contains(s, "503") ||
		strings.Contains(s, "internal server error") ||
		strings.Contains(s, "server_error")
}
