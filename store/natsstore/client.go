package natsstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goSession/store"
	"github.com/nats-io/nats.go"
)

// DefaultRequestTimeout bounds a request whose context carries no deadline.
const DefaultRequestTimeout = 2 * time.Second

var _ store.Store = (*Client)(nil)

// Client is a store.Store whose records live behind a Responder.
type Client struct {
	conn    *nats.Conn
	prefix  string
	timeout time.Duration
}

// NewClient wraps an established connection. An empty prefix selects
// DefaultPrefix.
func NewClient(conn *nats.Conn, prefix string) *Client {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Client{conn: conn, prefix: prefix, timeout: DefaultRequestTimeout}
}

// Dial connects to url and returns a Client on that connection. Close releases
// it.
func Dial(url, prefix string, opts ...nats.Option) (*Client, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	return NewClient(nc, prefix), nil
}

// Close drains the underlying connection.
func (c *Client) Close() {
	if c == nil || c.conn == nil {
		return
	}
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
	}
}

// Ready reports whether the connection is established and not draining.
// IsConnected stays true while Drain runs, so the status is checked directly.
func (c *Client) Ready() error {
	if c == nil || c.conn == nil {
		return errors.New("nats client not configured")
	}
	if status := c.conn.Status(); status != nats.CONNECTED {
		return fmt.Errorf("nats connection %s", status)
	}
	return nil
}

func (c *Client) FindByEmail(ctx context.Context, email string) (*store.User, error) {
	return c.call(ctx, opFindByEmail, request{Email: email})
}

func (c *Client) FindByID(ctx context.Context, id string) (*store.User, error) {
	return c.call(ctx, opFindByID, request{ID: id})
}

func (c *Client) Create(ctx context.Context, in store.NewUser) (*store.User, error) {
	return c.call(ctx, opCreate, request{User: &in})
}

func (c *Client) SetSession(ctx context.Context, id string, expectedVersion int64, next store.Session) (*store.User, error) {
	return c.call(ctx, opSetSession, request{ID: id, ExpectedVersion: expectedVersion, Session: &next})
}

func (c *Client) Revoke(ctx context.Context, id string) (*store.User, error) {
	return c.call(ctx, opRevoke, request{ID: id})
}

func (c *Client) call(ctx context.Context, op string, req request) (*store.User, error) {
	if c == nil || c.conn == nil {
		return nil, errors.New("nil nats client")
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", op, err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	msg, err := c.conn.RequestWithContext(ctx, subject(c.prefix, op), data)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", op, err)
	}

	var rep reply
	if err := json.Unmarshal(msg.Data, &rep); err != nil {
		return nil, fmt.Errorf("%w: decode %s reply: %v", ErrRemote, op, err)
	}
	if rep.Error != nil {
		return nil, decodeError(rep.Error)
	}
	if rep.User == nil {
		return nil, fmt.Errorf("%w: empty %s reply", ErrRemote, op)
	}
	return rep.User, nil
}
