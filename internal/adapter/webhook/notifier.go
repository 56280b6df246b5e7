package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/cva-pasha/covali-templates/internal/adapter/events"
	"github.com/cva-pasha/covali-templates/internal/domain"
	"github.com/cva-pasha/covali-templates/pkg/circuitbreaker"
	"github.com/cva-pasha/covali-templates/pkg/logger"
	"github.com/cva-pasha/covali-templates/pkg/tracing"
)

var ErrWebhookUnavailable = errors.New("webhook endpoint unavailable")

// Notifier posts template events to a single HTTP endpoint behind a circuit breaker.
type Notifier struct {
	url        string
	httpClient *http.Client
	breaker    *circuitbreaker.Breaker
}

func NewNotifier(url string) *Notifier {
	return NewNotifierWithClient(url, &http.Client{
		Timeout:   5 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}, circuitbreaker.New("webhook"))
}

func NewNotifierWithClient(url string, client *http.Client, breaker *circuitbreaker.Breaker) *Notifier {
	return &Notifier{
		url:        url,
		httpClient: client,
		breaker:    breaker,
	}
}

func (n *Notifier) Publish(ctx context.Context, e domain.TemplateEvent) error {
	_, err := n.breaker.Execute(func() (any, error) {
		return nil, n.post(ctx, e)
	})
	if circuitbreaker.IsOpen(err) {
		return fmt.Errorf("%w: %v", domain.ErrCircuitOpen, err)
	}
	return err
}

func (n *Notifier) Close() error {
	n.httpClient.CloseIdleConnections()
	return nil
}

func (n *Notifier) post(ctx context.Context, e domain.TemplateEvent) error {
	ctx, span := tracing.Tracer().Start(ctx, "webhook.send")
	defer span.End()

	span.SetAttributes(
		attribute.String("webhook.url", n.url),
		attribute.String("template.id", e.TemplateID.String()),
		attribute.String("template.event_type", string(e.Type)),
	)

	body, err := json.Marshal(events.NewTemplateEventPayload(e))
	if err != nil {
		tracing.RecordError(span, err)
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		tracing.RecordError(span, err)
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", string(e.Type))

	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		req.Header.Set("X-Correlation-ID", correlationID)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		tracing.RecordError(span, err)
		return fmt.Errorf("%w: %v", ErrWebhookUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if isTransientError(resp.StatusCode) {
		err := fmt.Errorf("%w: status %d", ErrWebhookUnavailable, resp.StatusCode)
		tracing.RecordError(span, err)
		return err
	}

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("webhook rejected event: status %d, body: %s", resp.StatusCode, string(respBody))
		tracing.RecordError(span, err)
		return err
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func isTransientError(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
