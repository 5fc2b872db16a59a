package service

import (
	"context"

	"github.com/josh-kwaku/obras-ledger/internal/events"
	"github.com/josh-kwaku/obras-ledger/internal/logging"
	"github.com/josh-kwaku/obras-ledger/internal/metrics"
)

// publish logs and counts a failed publish; it never fails the caller.
func publish(ctx context.Context, p events.Publisher, m *metrics.Metrics, evt events.Event) {
	if err := p.Publish(ctx, evt); err != nil {
		m.EventsPublished.WithLabelValues(string(evt.Type), "error").Inc()
		logging.FromContext(ctx).Warn("event publish failed",
			"event_id", evt.ID,
			"event_type", evt.Type,
			"error", err,
		)
		return
	}
	m.EventsPublished.WithLabelValues(string(evt.Type), "ok").Inc()
}
