package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fruitsalade/docportal/internal/logging"
	"github.com/fruitsalade/docportal/pkg/models"
	"github.com/fruitsalade/docportal/pkg/protocol"
)

func newTestAuth(now time.Time) *Auth {
	a := New("test-secret")
	a.now = func() time.Time { return now }
	return a
}

func TestIssueAndValidate(t *testing.T) {
	now := time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)
	a := newTestAuth(now)

	tok, exp, err := a.IssueToken("u1", "priya", true, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if !exp.Equal(now.Add(time.Hour)) {
		t.Errorf("expiry = %v, want %v", exp, now.Add(time.Hour))
	}

	claims, err := a.ValidateToken(tok)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != "u1" || claims.Username != "priya" || !claims.IsAdmin {
		t.Errorf("claims = %+v", claims)
	}
	want := models.Actor{UserID: "u1", IsAdmin: true, View: models.ViewSelf}
	if got := claims.Actor(models.ViewSelf); got != want {
		t.Errorf("Actor = %+v, want %+v", got, want)
	}
}

func TestValidateRejects(t *testing.T) {
	now := time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)
	a := newTestAuth(now)
	valid, _, _ := a.IssueToken("u1", "priya", false, time.Hour)

	later := newTestAuth(now.Add(2 * time.Hour))
	other := New("other-secret")
	other.now = a.now

	noneTok, _ := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "u1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		auth  *Auth
		token string
	}{
		{"expired", later, valid},
		{"wrong secret", other, valid},
		{"garbage", a, "not-a-token"},
		{"unsigned", a, noneTok},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.auth.ValidateToken(tt.token); err == nil {
				t.Error("ValidateToken succeeded, want error")
			}
		})
	}
}

func TestIssueTokenRequiresUser(t *testing.T) {
	if _, _, err := New("s").IssueToken("", "x", false, time.Hour); err == nil {
		t.Error("IssueToken with empty user succeeded")
	}
}

func TestParseUnverified(t *testing.T) {
	now := time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)
	tok, exp, err := newTestAuth(now).IssueToken("u7", "sam", false, 2*time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	// Another secret: the claims are still readable.
	claims, err := ParseUnverified(tok)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != "u7" || !claims.ExpiresAt.Time.Equal(exp) {
		t.Errorf("claims = %+v, want u7 expiring %v", claims, exp)
	}

	if _, err := ParseUnverified("not-a-token"); err == nil {
		t.Error("expected error for garbage")
	}
}

func TestMiddleware(t *testing.T) {
	a := New("test-secret")
	tok, _, _ := a.IssueToken("u2", "arjun", false, time.Hour)

	var seen *Claims
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetClaims(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }, http.StatusNoContent},
		{"query", func(r *http.Request) { r.URL.RawQuery = "token=" + tok }, http.StatusNoContent},
		{"missing", func(r *http.Request) {}, http.StatusUnauthorized},
		{"invalid", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status == http.StatusNoContent {
				if seen == nil || seen.UserID != "u2" {
					t.Errorf("claims = %+v", seen)
				}
				return
			}
			var body protocol.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.Code != http.StatusUnauthorized || body.Error == "" {
				t.Errorf("error body = %+v", body)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	h := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, tt := range []struct {
		claims *Claims
		status int
	}{
		{nil, http.StatusForbidden},
		{&Claims{UserID: "u1"}, http.StatusForbidden},
		{&Claims{UserID: "u1", IsAdmin: true}, http.StatusOK},
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.claims != nil {
			req = req.WithContext(WithClaims(req.Context(), tt.claims))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.status {
			t.Errorf("RequireAdmin(%+v) = %d, want %d", tt.claims, rec.Code, tt.status)
		}
	}
}

func TestMiddlewareTagsLogsWithUser(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logging.Replace(zap.New(core))
	defer logging.Replace(zap.NewNop())

	a := New("test-secret")
	tok, _, _ := a.IssueToken("u2", "arjun", false, time.Hour)
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logging.WithContext(r.Context()).Info("listing documents")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("listing documents").All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["user_id"]; got != "u2" {
		t.Errorf("user_id = %v, want u2", got)
	}
}
