package natsstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/store"
	"github.com/MrEthical07/goSession/store/memory"
	"github.com/MrEthical07/goSession/store/storetest"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

func runServer(t *testing.T) *server.Server {
	t.Helper()

	ns, err := server.NewServer(&server.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	})
	require.NoError(t, err)

	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("nats server not ready")
	}
	t.Cleanup(ns.Shutdown)
	return ns
}

func connect(t *testing.T, ns *server.Server) *nats.Conn {
	t.Helper()

	nc, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)
	return nc
}

func newPair(t *testing.T, backend store.Store) *Client {
	t.Helper()

	ns := runServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	resp := NewResponder(connect(t, ns), backend, ResponderConfig{Prefix: "test.users"}, nil)
	require.NoError(t, resp.Start(ctx))
	t.Cleanup(resp.Close)

	return NewClient(connect(t, ns), "test.users")
}

func TestNATSStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return newPair(t, memory.New())
	})
}

type failingStore struct {
	store.Store
}

func (failingStore) FindByID(context.Context, string) (*store.User, error) {
	return nil, errors.New("disk on fire")
}

func TestInternalErrorsAreOpaque(t *testing.T) {
	client := newPair(t, failingStore{Store: memory.New()})

	_, err := client.FindByID(context.Background(), "any")
	require.ErrorIs(t, err, ErrRemote)
	require.NotContains(t, err.Error(), "disk on fire")
}

func TestRequestWithoutResponderFails(t *testing.T) {
	ns := runServer(t)
	client := NewClient(connect(t, ns), "nobody.home")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := client.FindByEmail(ctx, "a@example.com")
	require.Error(t, err)
	require.False(t, errors.Is(err, store.ErrNotFound))
}

func TestMalformedRequestGetsBadRequest(t *testing.T) {
	ns := runServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resp := NewResponder(connect(t, ns), memory.New(), ResponderConfig{}, nil)
	require.NoError(t, resp.Start(ctx))
	defer resp.Close()

	nc := connect(t, ns)
	msg, err := nc.Request(subject(DefaultPrefix, opFindByID), []byte("{"), time.Second)
	require.NoError(t, err)
	require.Contains(t, string(msg.Data), codeBadRequest)
}

func TestStartTwiceFails(t *testing.T) {
	ns := runServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resp := NewResponder(connect(t, ns), memory.New(), ResponderConfig{}, nil)
	require.NoError(t, resp.Start(ctx))
	defer resp.Close()

	require.Error(t, resp.Start(ctx))
}

func TestClientReady(t *testing.T) {
	ns := runServer(t)
	client := NewClient(connect(t, ns), "")
	require.NoError(t, client.Ready())

	// Drain is asynchronous; Ready must fail from the moment Close returns.
	client.Close()
	require.Error(t, client.Ready())

	closed := NewClient(connect(t, ns), "")
	closed.conn.Close()
	require.Error(t, closed.Ready())

	var nilClient *Client
	require.Error(t, nilClient.Ready())
}
