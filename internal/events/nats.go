package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	StreamName    = "OBRAS_LEDGER"
	SubjectPrefix = "obras.ledger"
)

type NATSPublisher struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// ConnectNATS dials url, makes sure the stream exists and returns a publisher.
func ConnectNATS(ctx context.Context, url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("obras-ledger"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("ConnectNATS: connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("ConnectNATS: jetstream: %w", err)
	}

	if err := ensureStream(ctx, js); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ConnectNATS: %w", err)
	}

	return &NATSPublisher{nc: nc, js: js}, nil
}

func ensureStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{SubjectPrefix + ".>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    30 * 24 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("ensureStream: %w", err)
	}
	return nil
}

// Subject is obras.ledger.<type>.<contract>, or obras.ledger.<type>.all for
// events not tied to one contract.
func Subject(evt Event) string {
	target := "all"
	if evt.ContractID != nil {
		target = evt.ContractID.String()
	}
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, evt.Type, target)
}

func (p *NATSPublisher) Publish(ctx context.Context, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("Publish: marshal: %w", err)
	}

	// The event ID doubles as the JetStream dedup key.
	if _, err := p.js.Publish(ctx, Subject(evt), data, jetstream.WithMsgID(evt.ID.String())); err != nil {
		return fmt.Errorf("Publish: %s: %w", evt.Type, err)
	}
	return nil
}

func (p *NATSPublisher) Close() error {
	if err := p.nc.Drain(); err != nil {
		return fmt.Errorf("Close: %w", err)
	}
	return nil
}

// Ping reports whether the connection is usable for publishing.
func (p *NATSPublisher) Ping(context.Context) error {
	if !p.nc.IsConnected() {
		return fmt.Errorf("Ping: nats status %s", p.nc.Status())
	}
	return nil
}
