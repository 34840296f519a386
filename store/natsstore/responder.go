package natsstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/store"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// DefaultQueue is the queue group responders join so requests are balanced
// across replicas.
const DefaultQueue = "gosession-user-store"

// ResponderConfig tunes a Responder.
type ResponderConfig struct {
	Prefix         string
	Queue          string
	HandlerTimeout time.Duration
}

// Responder serves a store.Store over NATS request/reply.
type Responder struct {
	conn    *nats.Conn
	backend store.Store
	cfg     ResponderConfig
	log     *zap.Logger

	mu   sync.Mutex
	subs []*nats.Subscription
}

// NewResponder returns an unstarted Responder for backend.
func NewResponder(conn *nats.Conn, backend store.Store, cfg ResponderConfig, log *zap.Logger) *Responder {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.Queue == "" {
		cfg.Queue = DefaultQueue
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = DefaultRequestTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Responder{conn: conn, backend: backend, cfg: cfg, log: log}
}

// Start subscribes to every operation subject. The subscriptions are drained
// when ctx is done or Close is called.
func (r *Responder) Start(ctx context.Context) error {
	if r == nil || r.conn == nil || r.backend == nil {
		return errors.New("responder not configured")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.subs) > 0 {
		return errors.New("responder already started")
	}

	for _, op := range allOps {
		op := op
		sub, err := r.conn.QueueSubscribe(subject(r.cfg.Prefix, op), r.cfg.Queue, func(msg *nats.Msg) {
			r.handle(ctx, op, msg)
		})
		if err != nil {
			r.drainLocked()
			return err
		}
		r.subs = append(r.subs, sub)
	}

	if err := r.conn.Flush(); err != nil {
		r.drainLocked()
		return err
	}

	go func() {
		<-ctx.Done()
		r.Close()
	}()
	return nil
}

// Close drains all subscriptions. It is safe to call more than once.
func (r *Responder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drainLocked()
}

func (r *Responder) drainLocked() {
	for _, sub := range r.subs {
		_ = sub.Drain()
	}
	r.subs = nil
}

func (r *Responder) handle(parent context.Context, op string, msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), r.cfg.HandlerTimeout)
	defer cancel()

	var req request
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		r.respond(msg, reply{Error: &replyError{Code: codeBadRequest, Message: "malformed request"}})
		return
	}

	u, err := r.dispatch(ctx, op, req)
	if err != nil {
		rep := reply{Error: encodeError(err)}
		if rep.Error.Code == codeInternal {
			r.log.Error("user store request failed", zap.String("op", op), zap.Error(err))
		}
		r.respond(msg, rep)
		return
	}
	r.respond(msg, reply{User: u})
}

func (r *Responder) dispatch(ctx context.Context, op string, req request) (*store.User, error) {
	switch op {
	case opFindByEmail:
		return r.backend.FindByEmail(ctx, req.Email)
	case opFindByID:
		return r.backend.FindByID(ctx, req.ID)
	case opCreate:
		if req.User == nil {
			return nil, errors.New("create: missing user")
		}
		return r.backend.Create(ctx, *req.User)
	case opSetSession:
		if req.Session == nil {
			return nil, errors.New("set_session: missing session")
		}
		return r.backend.SetSession(ctx, req.ID, req.ExpectedVersion, *req.Session)
	case opRevoke:
		return r.backend.Revoke(ctx, req.ID)
	default:
		return nil, errors.New("unknown operation " + op)
	}
}

func (r *Responder) respond(msg *nats.Msg, rep reply) {
	data, err := json.Marshal(rep)
	if err != nil {
		r.log.Error("encode user store reply", zap.Error(err))
		return
	}
	if err := msg.Respond(data); err != nil {
		r.log.Warn("send user store reply", zap.Error(err))
	}
}
