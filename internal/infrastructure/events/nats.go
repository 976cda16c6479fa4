// Package events publishes page lifecycle events to NATS.
package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	domainpages "pagebin/app/internal/domain/pages"
)

// DefaultSubjectPrefix namespaces every published subject.
const DefaultSubjectPrefix = "pagebin"

// Options configures the NATS connection.
type Options struct {
	URL           string
	SubjectPrefix string
	Name          string
	Logger        *logrus.Logger
}

// Publisher publishes JSON-encoded events to <prefix>.<topic>.
type Publisher struct {
	conn   *nats.Conn
	prefix string
}

var _ domainpages.EventPublisher = (*Publisher)(nil)

// NewPublisher connects to NATS with automatic reconnection.
func NewPublisher(opts Options) (*Publisher, error) {
	conn, err := connect(opts)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn, prefix: subjectPrefix(opts.SubjectPrefix)}, nil
}

// Publish encodes event and sends it on the subject for topic.
func (p *Publisher) Publish(_ context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return eris.Wrap(err, "marshaling event")
	}
	subject := p.Subject(topic)
	if err := p.conn.Publish(subject, data); err != nil {
		return eris.Wrapf(err, "publishing to %s", subject)
	}
	return nil
}

// Subject returns the fully qualified subject for topic.
func (p *Publisher) Subject(topic string) string {
	return p.prefix + topic
}

// Flush waits until the server has processed buffered messages.
func (p *Publisher) Flush() error {
	return p.conn.Flush()
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return eris.Wrap(err, "draining NATS connection")
	}
	return nil
}

// Subscriber receives events published by a Publisher.
type Subscriber struct {
	conn   *nats.Conn
	prefix string
}

// Message is one received event.
type Message struct {
	Topic string
	Data  []byte
}

// NewSubscriber connects to NATS for reading events.
func NewSubscriber(opts Options) (*Subscriber, error) {
	conn, err := connect(opts)
	if err != nil {
		return nil, err
	}
	return &Subscriber{conn: conn, prefix: subjectPrefix(opts.SubjectPrefix)}, nil
}

// Watch delivers every page event to handle until ctx is cancelled.
func (s *Subscriber) Watch(ctx context.Context, handle func(Message)) error {
	ch := make(chan *nats.Msg, 64)
	sub, err := s.conn.ChanSubscribe(s.prefix+">", ch)
	if err != nil {
		return eris.Wrap(err, "subscribing to page events")
	}
	defer sub.Unsubscribe() //nolint:errcheck

	if err := s.conn.Flush(); err != nil {
		return eris.Wrap(err, "flushing subscription")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-ch:
			handle(Message{Topic: strings.TrimPrefix(msg.Subject, s.prefix), Data: msg.Data})
		}
	}
}

// Close closes the connection.
func (s *Subscriber) Close() error {
	s.conn.Close()
	return nil
}

func connect(opts Options) (*nats.Conn, error) {
	url := strings.TrimSpace(opts.URL)
	if url == "" {
		return nil, eris.New("NATS url is required")
	}

	name := opts.Name
	if name == "" {
		name = "pagebin"
	}

	natsOpts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	if logger := opts.Logger; logger != nil {
		entry := logger.WithField("component", "events.nats")
		natsOpts = append(natsOpts,
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				if err != nil {
					entry.WithField("error", err.Error()).Warn("disconnected from NATS")
				}
			}),
			nats.ReconnectHandler(func(conn *nats.Conn) {
				entry.WithField("url", conn.ConnectedUrl()).Info("reconnected to NATS")
			}),
		)
	}

	conn, err := nats.Connect(url, natsOpts...)
	if err != nil {
		return nil, eris.Wrapf(err, "connecting to NATS at %s", url)
	}
	return conn, nil
}

func subjectPrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return prefix + "."
}
