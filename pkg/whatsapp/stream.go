package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"watopic/internal/models"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

// Listen connects to the gateway's event stream and pushes decoded events
// into the queue in arrival order. It reconnects with a small delay until
// the context is cancelled.
func (c *WhatsAppClient) Listen(ctx context.Context, events chan<- models.SourceEvent, logger *logrus.Logger) error {
	if c.wsURL == "" {
		return fmt.Errorf("websocket URL not configured")
	}

	for {
		if err := c.listenOnce(ctx, events, logger); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.WithError(err).Warn("Event stream disconnected, reconnecting")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}
}

func (c *WhatsAppClient) listenOnce(ctx context.Context, events chan<- models.SourceEvent, logger *logrus.Logger) error {
	opts := &websocket.DialOptions{}
	if c.apiKey != "" {
		opts.HTTPHeader = http.Header{"X-Api-Key": []string{c.apiKey}}
	}

	conn, _, err := websocket.Dial(ctx, c.wsURL, opts)
	if err != nil {
		return fmt.Errorf("failed to dial event stream: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "shutting down")

	logger.WithField("url", c.wsURL).Info("Connected to source event stream")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("event stream read failed: %w", err)
		}

		var event models.SourceEvent
		if err := json.Unmarshal(data, &event); err != nil {
			logger.WithError(err).Warn("Dropping undecodable event frame")
			continue
		}

		select {
		case events <- event:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
