package reward

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ranked-ladder/internal/domain"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

type awardRequest struct {
	PlayerID string                  `json:"playerId"`
	Event    domain.ProgressionEvent `json:"event"`
}

// WebhookClient posts each progression event to an external reward service.
type WebhookClient struct {
	url    string
	client *fasthttp.Client
	logger zerolog.Logger
}

func NewWebhookClient(url string, logger zerolog.Logger) *WebhookClient {
	return &WebhookClient{
		url: url,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger,
	}
}

func (c *WebhookClient) Award(ctx context.Context, playerID string, event domain.ProgressionEvent) error {
	body, err := json.Marshal(awardRequest{PlayerID: playerID, Event: event})
	if err != nil {
		return fmt.Errorf("failed to encode award: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	// lets the receiver drop duplicate deliveries
	req.Header.Set("Idempotency-Key", event.ID)
	req.SetBody(body)

	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.Do(req, resp)
	}
	if err != nil {
		return fmt.Errorf("failed to deliver award: %w", err)
	}

	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return fmt.Errorf("reward service error: %d", code)
	}

	c.logger.Debug().
		Str("player_id", playerID).
		Str("event_id", event.ID).
		Str("type", string(event.Type)).
		Msg("award delivered")
	return nil
}

// LogAwarder only records awards; it is used when no reward service is configured.
type LogAwarder struct {
	logger zerolog.Logger
}

func NewLogAwarder(logger zerolog.Logger) *LogAwarder {
	return &LogAwarder{logger: logger}
}

func (a *LogAwarder) Award(_ context.Context, playerID string, event domain.ProgressionEvent) error {
	a.logger.Info().
		Str("player_id", playerID).
		Str("event_id", event.ID).
		Str("type", string(event.Type)).
		Str("from_tier", event.FromTier).
		Str("to_tier", event.ToTier).
		Msg("award skipped, no reward service configured")
	return nil
}
