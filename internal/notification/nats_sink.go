package notification

import (
	"context"

	"github.com/nats-io/nats.go"
)

// NATSSink publishes notifications as JSON on a NATS subject.
type NATSSink struct {
	conn    *nats.Conn
	subject string
}

// NewNATSSink connects to url.
func NewNATSSink(url, subject string) (*NATSSink, error) {
	conn, err := nats.Connect(url, nats.Name("watch-market-notifier"))
	if err != nil {
		return nil, err
	}
	return &NATSSink{conn: conn, subject: subject}, nil
}

func (s *NATSSink) Name() string { return "nats" }

func (s *NATSSink) Deliver(_ context.Context, n Notification) error {
	data, err := Encode(n)
	if err != nil {
		return err
	}
	return s.conn.Publish(s.subject, data)
}

// Close drains and closes the connection.
func (s *NATSSink) Close() {
	if s != nil && s.conn != nil {
		_ = s.conn.Drain()
	}
}
