package publisher

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"route-simulator/internal/sim"
)

type NATSPublisher struct {
	nc          *nats.Conn
	prefix      string
	logSubjects bool
	metrics     PublisherMetrics
}

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

func NewNATSPublisher(url, subjectPrefix string, logSubjects bool, m PublisherMetrics) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("route-simulator"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Printf("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return &NATSPublisher{nc: nc, prefix: subjectPrefix, logSubjects: logSubjects, metrics: m}, nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

// EventMessage is the wire envelope of one simulation event.
type EventMessage struct {
	Kind      string    `json:"kind"`
	SessionID string    `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`
	Data      sim.Event `json:"data"`
}

// Subject returns "<prefix>.<session>.<kind>".
func Subject(prefix, sessionID, kind string) string {
	if prefix == "" {
		return fmt.Sprintf("%s.%s", subjectToken(sessionID), subjectToken(kind))
	}
	return fmt.Sprintf("%s.%s.%s", prefix, subjectToken(sessionID), subjectToken(kind))
}

func (p *NATSPublisher) PublishEvent(sessionID string, e sim.Event) error {
	subject := Subject(p.prefix, sessionID, e.Kind())
	b, err := json.Marshal(EventMessage{Kind: e.Kind(), SessionID: sessionID, Timestamp: time.Now().UTC(), Data: e})
	if err != nil {
		return err
	}
	if p.logSubjects {
		log.Printf("nats publish subject=%s", subject)
	}
	start := time.Now()
	err = p.nc.Publish(subject, b)
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

// Sink binds the publisher to one simulation session.
func (p *NATSPublisher) Sink(sessionID string) sim.Sink {
	return sim.SinkFunc(func(e sim.Event) {
		if err := p.PublishEvent(sessionID, e); err != nil {
			log.Printf("publish error for %s: %v", sessionID, err)
		}
	})
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
