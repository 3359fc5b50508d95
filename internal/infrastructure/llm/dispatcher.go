// Package llm sends chat prompts to OpenAI-compatible completion endpoints.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/suatgpt/suatgpt-backend/internal/core/domain"
	"github.com/suatgpt/suatgpt-backend/internal/pkg/metrics"
	"github.com/suatgpt/suatgpt-backend/internal/pkg/requestid"
)

const (
	defaultTimeout  = 60 * time.Second
	temperature     = 0.7
	maxResponseBody = 4 << 20
	completionsPath = "/chat/completions"
)

// Reply texts shown to the user when the provider does not answer.
const (
	missingKeyText    = "Sorry, the AI service (%s) has no API key configured. Set AI_QWEN_PUBLIC_API_KEY."
	providerErrorText = "Sorry, the AI service (%s) call failed. Check the network (public/internal) or the API key."
	emptyResponseText = "The AI service returned an invalid or empty response."
)

// Config captures the settings of a Dispatcher.
type Config struct {
	// Timeout bounds each HTTP attempt. Defaults to 60s.
	Timeout time.Duration
	Retry   RetryPolicy
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// Dispatcher implements ports.CompletionClient over HTTP.
type Dispatcher struct {
	client *http.Client
	retry  RetryPolicy
	log    zerolog.Logger
}

func NewDispatcher(cfg Config, log zerolog.Logger) *Dispatcher {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Dispatcher{client: client, retry: cfg.Retry.normalized(), log: log}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// statusError is a non-2xx provider response.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.code, e.body)
}

// Complete sends text to the route's provider. It never returns an error:
// every failure becomes a Completion whose Text is safe to show the user.
func (d *Dispatcher) Complete(ctx context.Context, route domain.Route, text string) domain.Completion {
	if route.Public && route.APIKey == "" {
		return d.record(route, time.Time{}, domain.Completion{
			Text:    fmt.Sprintf(missingKeyText, route.Key),
			Outcome: domain.OutcomeMissingKey,
			Reason:  errors.New("public route has no api key"),
		})
	}

	payload, err := json.Marshal(completionRequest{
		Model:       route.Model,
		Messages:    []chatMessage{{Role: "user", Content: text}},
		Temperature: temperature,
	})
	if err != nil {
		return d.record(route, time.Time{}, d.failed(route, fmt.Errorf("encode request: %w", err)))
	}

	start := time.Now()
	var body []byte
	attempt := 0
	err = retry.Do(ctx, d.retry.backoff(), func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			metrics.CompletionRetriesTotal.WithLabelValues(route.Key).Inc()
			d.log.Debug().Str("model_key", route.Key).Int("attempt", attempt).Msg("retrying provider call")
		}
		var callErr error
		body, callErr = d.post(ctx, route, payload)
		return callErr
	})
	if err != nil {
		return d.record(route, start, d.failed(route, err))
	}

	var resp completionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return d.record(route, start, d.failed(route, fmt.Errorf("decode response: %w", err)))
	}
	if len(resp.Choices) == 0 {
		return d.record(route, start, domain.Completion{
			Text:    emptyResponseText,
			Outcome: domain.OutcomeEmptyResponse,
			Reason:  errors.New("response has no choices"),
		})
	}

	var content string
	if c := resp.Choices[0].Message.Content; c != nil {
		content = *c
	}
	return d.record(route, start, domain.Completion{Text: content, Outcome: domain.OutcomeSuccess})
}

// post performs one HTTP attempt. Errors worth another attempt are wrapped
// with retry.RetryableError.
func (d *Dispatcher) post(ctx context.Context, route domain.Route, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, route.BaseURL+completionsPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+route.APIKey)
	if id := requestid.FromContext(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, retry.RetryableError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, retry.RetryableError(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &statusError{code: resp.StatusCode, body: truncate(string(body), 256)}
		if retryableStatus(resp.StatusCode) {
			return nil, retry.RetryableError(serr)
		}
		return nil, serr
	}
	return body, nil
}

func (d *Dispatcher) failed(route domain.Route, err error) domain.Completion {
	return domain.Completion{
		Text:    fmt.Sprintf(providerErrorText, route.Key),
		Outcome: domain.OutcomeProviderError,
		Reason:  err,
	}
}

func (d *Dispatcher) record(route domain.Route, start time.Time, c domain.Completion) domain.Completion {
	metrics.CompletionsTotal.WithLabelValues(route.Key, string(c.Outcome)).Inc()
	if !start.IsZero() {
		metrics.CompletionDuration.WithLabelValues(route.Key).Observe(time.Since(start).Seconds())
	}
	return c
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
