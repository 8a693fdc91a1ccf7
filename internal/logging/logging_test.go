package logging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	Replace(zap.New(core))
	t.Cleanup(func() { Replace(zap.NewNop()) })
	return logs
}

func TestWithFields(t *testing.T) {
	logs := observe(t)

	ctx := WithFields(context.Background(), zap.String("user_id", "u1"))
	ctx = WithFields(ctx, zap.String("session", "s1"))
	WithContext(ctx).Info("document unlocked")
	WithContext(context.Background()).Info("plain")

	all := logs.All()
	if len(all) != 2 {
		t.Fatalf("got %d entries, want 2", len(all))
	}
	got := all[0].ContextMap()
	if got["user_id"] != "u1" || got["session"] != "s1" {
		t.Errorf("fields = %v, want user_id and session", got)
	}
	if len(all[1].Context) != 0 {
		t.Errorf("plain entry carries fields: %v", all[1].ContextMap())
	}
}

func TestMiddlewareRequestID(t *testing.T) {
	logs := observe(t)

	var seen string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		WithContext(r.Context()).Info("handled")
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-7")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "req-7" || rec.Header().Get("X-Request-ID") != "req-7" {
		t.Errorf("request id = %q, header %q", seen, rec.Header().Get("X-Request-ID"))
	}
	entries := logs.FilterMessage("handled").All()
	if len(entries) != 1 || entries[0].ContextMap()["request_id"] != "req-7" {
		t.Errorf("handled entries = %+v", entries)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("no request id generated")
	}
}
