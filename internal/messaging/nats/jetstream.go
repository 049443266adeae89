package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// JetStreamClient extends Client with JetStream persistence.
type JetStreamClient struct {
	*Client
	js jetstream.JetStream
}

// StreamConfig describes a JetStream stream the projector depends on.
type StreamConfig struct {
	Name     string
	Subjects []string
	// MaxAge and MaxBytes bound retention.
	MaxAge   time.Duration
	MaxBytes int64
	// Retention policy; the projector only uses limits-based streams.
	Retention jetstream.RetentionPolicy
	Storage   jetstream.StorageType
}

// ConsumerConfig describes a durable pull consumer.
type ConsumerConfig struct {
	// Name doubles as the durable name.
	Name string
	// FilterSubject restricts which messages the consumer receives.
	FilterSubject string
	// AckWait is how long the server waits for an ack before redelivering.
	AckWait time.Duration
	// MaxDeliver caps delivery attempts per message.
	MaxDeliver int
	// MaxAckPending caps in-flight unacknowledged messages.
	MaxAckPending int
}

var (
	// ChangeStream captures change-capture records emitted by the event store.
	// Limits retention: the stream is the redelivery buffer, not the source of
	// truth, and overlapping redeliveries are safe for the projector.
	ChangeStream = StreamConfig{
		Name:      "CARELOG_CHANGES",
		Subjects:  []string{"changes.>"},
		MaxAge:    24 * time.Hour,
		MaxBytes:  1024 * 1024 * 1024,
		Retention: jetstream.LimitsPolicy,
		Storage:   jetstream.FileStorage,
	}

	// DLQStream captures change records the projector could not decode.
	DLQStream = StreamConfig{
		Name:      "CARELOG_PROJECTOR_DLQ",
		Subjects:  []string{"projector.dlq.>"},
		MaxAge:    7 * 24 * time.Hour,
		MaxBytes:  100 * 1024 * 1024,
		Retention: jetstream.LimitsPolicy,
		Storage:   jetstream.FileStorage,
	}
)

// NewJetStreamClient connects and opens a JetStream context.
func NewJetStreamClient(cfg Config) (*JetStreamClient, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(client.conn)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("open jetstream context: %w", err)
	}
	return &JetStreamClient{Client: client, js: js}, nil
}

// CreateOrUpdateStream ensures a stream exists with the given shape.
func (c *JetStreamClient) CreateOrUpdateStream(ctx context.Context, cfg StreamConfig) (jetstream.Stream, error) {
	stream, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      cfg.Name,
		Subjects:  cfg.Subjects,
		MaxAge:    cfg.MaxAge,
		MaxBytes:  cfg.MaxBytes,
		Retention: cfg.Retention,
		Storage:   cfg.Storage,
	})
	if err != nil {
		return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
	}
	return stream, nil
}

// CreateOrUpdateConsumer ensures a durable pull consumer on the named stream.
// Acknowledgement is always explicit; the fetch loop decides ack vs. NAK per
// batch.
func (c *JetStreamClient) CreateOrUpdateConsumer(ctx context.Context, streamName string, cfg ConsumerConfig) (jetstream.Consumer, error) {
	stream, err := c.Stream(ctx, streamName)
	if err != nil {
		return nil, err
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          cfg.Name,
		Durable:       cfg.Name,
		FilterSubject: cfg.FilterSubject,
		AckWait:       cfg.AckWait,
		MaxDeliver:    cfg.MaxDeliver,
		MaxAckPending: cfg.MaxAckPending,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("ensure consumer %s on %s: %w", cfg.Name, streamName, err)
	}
	return consumer, nil
}

// Stream returns a handle on an existing stream.
func (c *JetStreamClient) Stream(ctx context.Context, name string) (jetstream.Stream, error) {
	stream, err := c.js.Stream(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get stream %s: %w", name, err)
	}
	return stream, nil
}

// PublishSync publishes a message and waits for the stream's ack.
func (c *JetStreamClient) PublishSync(ctx context.Context, subject string, data []byte) (*jetstream.PubAck, error) {
	return c.js.Publish(ctx, subject, data)
}
