package goSession

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/store/memory"
)

func buildAuditTestEngine(t *testing.T, sink AuditSink) (*Engine, *memory.Store) {
	t.Helper()

	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false
	s := memory.New()

	engine, err := New().WithConfig(cfg).WithStore(s).WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return engine, s
}

func collect(t *testing.T, sink *ChannelSink, n int) []AuditEvent {
	t.Helper()
	out := make([]AuditEvent, 0, n)
	timeout := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case ev := <-sink.Events():
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("timed out after %d of %d events", len(out), n)
		}
	}
	return out
}

func TestAuditLoginEvents(t *testing.T) {
	sink := NewChannelSink(16)
	e, s := buildAuditTestEngine(t, sink)
	defer e.Close()

	u, _ := registerUser(t, e, s, testEmail)
	ctx := WithClientIP(context.Background(), "198.51.100.4")
	if _, err := e.Login(ctx, testEmail, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := e.Login(ctx, testEmail, testPassword); err != nil {
		t.Fatalf("Login: %v", err)
	}

	events := collect(t, sink, 3)
	if events[0].Type != "register_success" || !events[0].Success || events[0].UserID != u.ID {
		t.Fatalf("unexpected register event %+v", events[0])
	}
	if events[1].Type != "login_failure" || events[1].Success || events[1].Error != "invalid_credentials" {
		t.Fatalf("unexpected failure event %+v", events[1])
	}
	if events[1].IP != "198.51.100.4" {
		t.Fatalf("client IP not propagated: %+v", events[1])
	}
	if events[2].Type != "login_success" || !events[2].Success {
		t.Fatalf("unexpected success event %+v", events[2])
	}
}

func TestAuditRefreshRejectionRecordsRevocation(t *testing.T) {
	sink := NewChannelSink(16)
	e, s := buildAuditTestEngine(t, sink)
	defer e.Close()

	u, _ := registerUser(t, e, s, testEmail)
	collect(t, sink, 1)

	if _, err := e.Refresh(context.Background(), u.ID, "garbage"); err == nil {
		t.Fatal("expected refresh failure")
	}

	events := collect(t, sink, 2)
	if events[0].Type != "session_revoked" || events[0].Metadata["reason"] != "refresh_decode" {
		t.Fatalf("unexpected revoke event %+v", events[0])
	}
	rejected := events[1]
	if rejected.Type != "refresh_rejected" || rejected.Error != "refresh_invalid" {
		t.Fatalf("unexpected rejection event %+v", rejected)
	}
	if rejected.Metadata["failure"] != "decode" || rejected.Metadata["revoked"] != "true" {
		t.Fatalf("unexpected rejection metadata %+v", rejected.Metadata)
	}
}

func TestAuditDisabledEmitsNothing(t *testing.T) {
	sink := NewChannelSink(4)
	s := memory.New()
	e, err := New().WithConfig(testConfig()).WithStore(s).WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	registerUser(t, e, s, testEmail)
	e.Close()

	select {
	case ev := <-sink.Events():
		t.Fatalf("unexpected event with audit disabled: %+v", ev)
	default:
	}
	if e.AuditDropped() != 0 {
		t.Fatal("disabled audit must report zero drops")
	}
}

func TestAuditErrorCodes(t *testing.T) {
	cases := map[error]AuditErrorCode{
		ErrInvalidCredentials: auditErrInvalidCredentials,
		ErrUserAlreadyExists:  auditErrDuplicate,
		ErrForbidden:          auditErrForbidden,
		ErrSessionConflict:    auditErrSessionConflict,
		&StoreError{Op: opFindUser, Err: context.DeadlineExceeded}: auditErrUnavailable,
		errors.New("something else"):                               auditErrInternal,
	}
	for err, want := range cases {
		if got := auditErrorCode(err); got != want {
			t.Fatalf("auditErrorCode(%v) = %q, want %q", err, got, want)
		}
	}
	if got := auditErrorCode(nil); got != "" {
		t.Fatalf("nil error must map to empty code, got %q", got)
	}
}
