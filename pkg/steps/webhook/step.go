// Package webhook implements the webhook step kind: an outbound HTTP call
// with configured method, headers and body.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/evercrm/cadence/pkg/protocol"
	"github.com/evercrm/cadence/pkg/template"
)

const (
	defaultTimeout  = 30 * time.Second
	maxResponseSize = 64 * 1024
)

// Handler performs one outbound HTTP request. Any non-2xx response is a
// step failure.
type Handler struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    string

	client *http.Client
}

// NewHandler builds a handler from step configuration.
func NewHandler(config map[string]any) (*Handler, error) {
	url, _ := config["url"].(string)
	if url == "" {
		return nil, errors.New("webhook config requires a url")
	}

	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodPost
	}

	body, _ := config["body"].(string)

	headers := make(map[string]string)
	if headersConfig, ok := config["headers"].(map[string]any); ok {
		for key, value := range headersConfig {
			if s, ok := value.(string); ok {
				headers[key] = s
			}
		}
	}

	return &Handler{
		URL:     url,
		Method:  strings.ToUpper(method),
		Headers: headers,
		Body:    body,
		client:  &http.Client{Timeout: defaultTimeout},
	}, nil
}

func (h *Handler) Execute(ctx context.Context, executionCtx protocol.ExecutionContext) (*protocol.StepResult, error) {
	body, err := template.RenderForContact(h.Body, executionCtx.Contact, executionCtx.Deal)
	if err != nil {
		return nil, fmt.Errorf("failed to render webhook body: %w", err)
	}

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, h.Method, h.URL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook request: %w", err)
	}

	if body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	for key, value := range h.Headers {
		req.Header.Set(key, value)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(responseBody)))
	}

	return &protocol.StepResult{
		Output: map[string]any{
			"status_code": resp.StatusCode,
			"url":         h.URL,
			"method":      h.Method,
			"response":    string(responseBody),
		},
	}, nil
}
