package eduAuth

import (
	"context"
	"testing"
	"time"
)

func collectAudit(t *testing.T, events <-chan AuditEvent, want int) []AuditEvent {
	t.Helper()
	out := make([]AuditEvent, 0, want)
	deadline := time.After(2 * time.Second)
	for len(out) < want {
		select {
		case ev := <-events:
			out = append(out, ev)
		case <-deadline:
			t.Fatalf("timed out after %d of %d audit events", len(out), want)
		}
	}
	return out
}

func TestAuditTrailForSessionLifecycle(t *testing.T) {
	sink := NewChannelAuditSink(64)
	et := newEngineTest(t, func(cfg *Config) {
		cfg.Audit.Enabled = true
		cfg.Audit.BufferSize = 64
		cfg.Audit.DropIfFull = false
	}, func(b *Builder) {
		b.WithAuditSink(sink)
	})

	id := et.register(t, "audited@example.com")
	// account_created is preceded by identity_invalidated.
	collectAudit(t, sink.Events(), 2)

	ctx := WithRequestID(WithClientIP(context.Background(), "203.0.113.9"), "req-1")
	if _, err := et.engine.Login(ctx, "audited@example.com", "wrong-password"); err == nil {
		t.Fatal("expected login failure")
	}
	pair, err := et.engine.Login(ctx, "audited@example.com", testPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := et.engine.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := et.engine.Refresh(ctx, pair.RefreshToken); err == nil {
		t.Fatal("expected reuse detection")
	}

	events := collectAudit(t, sink.Events(), 4)
	wantTypes := []string{
		auditEventLoginFailure,
		auditEventLoginSuccess,
		auditEventRefreshSuccess,
		auditEventRefreshReuse,
	}
	for i, ev := range events {
		if ev.Type != wantTypes[i] {
			t.Fatalf("event %d: expected %s, got %s", i, wantTypes[i], ev.Type)
		}
		if ev.Subject != id.Subject {
			t.Fatalf("event %d: expected subject %s, got %s", i, id.Subject, ev.Subject)
		}
		if ev.IP != "203.0.113.9" || ev.RequestID != "req-1" {
			t.Fatalf("event %d: missing request context %+v", i, ev)
		}
		if ev.ID == "" || ev.Timestamp.IsZero() {
			t.Fatalf("event %d: missing id or timestamp", i)
		}
	}
	if events[0].Error != "invalid_credentials" || events[0].Metadata["reason"] != "wrong_password" {
		t.Fatalf("unexpected failure event %+v", events[0])
	}
	if events[3].Error != "refresh_reuse" || events[3].Success {
		t.Fatalf("unexpected reuse event %+v", events[3])
	}
}

func TestAuditDisabledEmitsNothing(t *testing.T) {
	sink := NewChannelAuditSink(8)
	et := newEngineTest(t, nil, func(b *Builder) {
		b.WithAuditSink(sink)
	})
	et.register(t, "quiet@example.com")

	select {
	case ev := <-sink.Events():
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
	if et.engine.AuditDropped() != 0 {
		t.Fatal("disabled audit must not count drops")
	}
}

func TestAuditErrorCodeHidesDetail(t *testing.T) {
	if got := auditErrorCode(ErrStoreUnavailable); got != "store_unavailable" {
		t.Fatalf("unexpected code %q", got)
	}
	if got := auditErrorCode(context.DeadlineExceeded); got != "internal" {
		t.Fatalf("unexpected code %q", got)
	}
	if got := auditErrorCode(nil); got != "" {
		t.Fatalf("unexpected code %q", got)
	}
}

func TestWithRequestIDGenerates(t *testing.T) {
	ctx := WithRequestID(context.Background(), "")
	if len(RequestIDFromContext(ctx)) != 36 {
		t.Fatalf("expected generated uuid, got %q", RequestIDFromContext(ctx))
	}
	if ClientIPFromContext(context.Background()) != "" {
		t.Fatal("expected empty client ip")
	}
}
