// Package nats wraps the NATS client used for the change-capture stream and
// the dead-letter stream.
package nats

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Config holds connection settings for the broker.
type Config struct {
	// URL of the NATS server, e.g. "nats://localhost:4222".
	URL string
	// Name identifies this client on the server.
	Name string
	// MaxReconnects bounds reconnection attempts; -1 reconnects forever.
	MaxReconnects int
	// ReconnectWait spaces reconnection attempts.
	ReconnectWait time.Duration
	// Timeout bounds the initial connect.
	Timeout time.Duration
	// Username and Password authenticate when both are set.
	Username string
	Password string
}

// DefaultConfig returns connection defaults suited to a long-running
// consumer: reconnect forever rather than dying on a broker restart.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Name:          "carelog-projector",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// Client wraps a NATS connection.
type Client struct {
	conn *nats.Conn
}

// NewClient connects to the broker.
func NewClient(cfg Config) (*Client, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
	}
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", cfg.URL, err)
	}
	return &Client{conn: conn}, nil
}

// Conn exposes the underlying connection.
func (c *Client) Conn() *nats.Conn { return c.conn }

// Close closes the connection if it is still open.
func (c *Client) Close() error {
	if c.conn != nil && !c.conn.IsClosed() {
		c.conn.Close()
	}
	return nil
}
