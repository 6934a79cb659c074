// Package publisher forwards engine snapshots to NATS as vehicle position messages.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/vehicletracker/vehicletracker/internal/animation"
)

// DefaultSubjectPrefix is the first subject token.
const DefaultSubjectPrefix = "tracker"

// Conn is the part of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subj string, data []byte) error
}

// PublisherMetrics receives publish outcomes.
type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

// PositionMessage is the JSON payload published per snapshot.
type PositionMessage struct {
	Option    string    `json:"option"`
	State     string    `json:"state"`
	Timestamp time.Time `json:"timestamp"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Heading   float64   `json:"heading"`
	Cursor    int       `json:"cursor"`
	Progress  float64   `json:"progress"`
}

// NATSPublisher publishes snapshots on {prefix}.{option}.
type NATSPublisher struct {
	conn    Conn
	nc      *nats.Conn
	prefix  string
	metrics PublisherMetrics
	logger  zerolog.Logger
}

// Connect dials NATS and returns a publisher that owns the connection.
func Connect(url, prefix string, m PublisherMetrics, logger zerolog.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("vehicle-tracker"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			logger.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			logger.Info().Str("url", c.ConnectedUrlRedacted()).Msg("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			logger.Info().Msg("nats closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	if m != nil {
		m.NATSSetConnected(true)
	}

	p := New(nc, prefix, m, logger)
	p.nc = nc
	return p, nil
}

// New wraps an existing connection. The caller keeps ownership of conn.
func New(conn Conn, prefix string, m PublisherMetrics, logger zerolog.Logger) *NATSPublisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSPublisher{
		conn:    conn,
		prefix:  subjectToken(prefix),
		metrics: m,
		logger:  logger.With().Str("component", "publisher").Logger(),
	}
}

// Close drains and closes the connection when this publisher owns it.
func (p *NATSPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
		p.nc.Close()
	}
}

// Subject returns the subject a snapshot for option is published on.
func (p *NATSPublisher) Subject(option animation.Option) string {
	return p.prefix + "." + subjectToken(string(option))
}

// PublishSnapshot marshals and publishes one snapshot.
func (p *NATSPublisher) PublishSnapshot(s animation.Snapshot) error {
	msg := PositionMessage{
		Option:    string(s.Option),
		State:     s.State.String(),
		Timestamp: s.At,
		Lat:       s.Position.Lat,
		Lon:       s.Position.Lng,
		Heading:   s.Heading,
		Cursor:    s.Cursor,
		Progress:  s.Progress(),
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	start := time.Now()
	err = p.conn.Publish(p.Subject(s.Option), b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
}

// Run publishes every snapshot from ch until ctx is done or ch is closed.
func (p *NATSPublisher) Run(ctx context.Context, ch <-chan animation.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-ch:
			if !ok {
				return
			}
			if err := p.PublishSnapshot(s); err != nil {
				p.logger.Warn().Err(err).Str("option", string(s.Option)).Msg("publish failed")
			}
		}
	}
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
