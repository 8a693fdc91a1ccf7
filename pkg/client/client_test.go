package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fruitsalade/docportal/internal/api"
	"github.com/fruitsalade/docportal/internal/auth"
	"github.com/fruitsalade/docportal/internal/navigator"
	"github.com/fruitsalade/docportal/internal/pin"
	"github.com/fruitsalade/docportal/internal/records"
	"github.com/fruitsalade/docportal/internal/settings"
	"github.com/fruitsalade/docportal/pkg/models"
	"github.com/fruitsalade/docportal/pkg/protocol"
	"github.com/fruitsalade/docportal/pkg/retry"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return New(Config{
		BaseURL:     ts.URL,
		RetryConfig: retry.Config{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: time.Millisecond},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestRetriesIdempotentRequests(t *testing.T) {
	var attempts atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			writeJSON(w, http.StatusServiceUnavailable, protocol.ErrorResponse{Error: "warming up", Code: 503})
			return
		}
		writeJSON(w, http.StatusOK, protocol.HealthResponse{Status: "ok", Employees: 2})
	}))

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, h.Employees)
	assert.EqualValues(t, 3, attempts.Load())
}

func TestDoesNotRetryPosts(t *testing.T) {
	var attempts atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		writeJSON(w, http.StatusBadGateway, protocol.ErrorResponse{Error: "verify pin failed", Code: 502, Details: "db down"})
	}))

	_, err := c.ResumeSession("s1").SubmitPin(context.Background(), "1234")
	ae, ok := AsAPIError(err)
	require.True(t, ok, "got %T", err)
	assert.Equal(t, http.StatusBadGateway, ae.StatusCode)
	assert.Contains(t, err.Error(), "db down")
	assert.EqualValues(t, 1, attempts.Load())
}

func TestNonJSONErrorBody(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such route", http.StatusNotFound)
	}))
	_, err := c.Setting(context.Background(), "company_name")
	require.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "no such route")
}

func TestVerifyPinResults(t *testing.T) {
	until := time.Date(2024, time.June, 15, 10, 15, 0, 0, time.UTC)
	three := 3
	tests := []struct {
		name   string
		status int
		body   interface{}
		want   func(*testing.T, error, bool, *int, bool, *time.Time)
	}{
		{"ok", http.StatusOK, protocol.MessageResponse{Success: true}, func(t *testing.T, err error, ok bool, left *int, locked bool, _ *time.Time) {
			require.NoError(t, err)
			assert.True(t, ok)
		}},
		{"incorrect", http.StatusForbidden, protocol.ErrorResponse{Error: "Incorrect PIN", AttemptsLeft: &three}, func(t *testing.T, err error, ok bool, left *int, locked bool, _ *time.Time) {
			require.NoError(t, err)
			assert.False(t, ok)
			require.NotNil(t, left)
			assert.Equal(t, 3, *left)
			assert.False(t, locked)
		}},
		{"locked", http.StatusTooManyRequests, protocol.ErrorResponse{Error: "locked", Locked: true, LockedUntil: &until}, func(t *testing.T, err error, ok bool, left *int, locked bool, lu *time.Time) {
			require.NoError(t, err)
			assert.True(t, locked)
			require.NotNil(t, lu)
			assert.True(t, lu.Equal(until))
		}},
		{"not set", http.StatusBadRequest, protocol.ErrorResponse{Error: "no PIN set"}, func(t *testing.T, err error, ok bool, left *int, locked bool, _ *time.Time) {
			require.Error(t, err)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPatch, r.Method)
				writeJSON(w, tt.status, tt.body)
			}))
			res, err := c.VerifyPin(context.Background(), "1234")
			tt.want(t, err, res.OK, res.AttemptsLeft, res.Locked, res.LockedUntil)
		})
	}
}

func TestCredentialsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docportal", "credentials.json")
	_, err := LoadCredentials(path)
	require.Error(t, err)

	exp := time.Date(2024, time.June, 16, 0, 0, 0, 0, time.UTC)
	require.NoError(t, SaveCredentials(path, &Credentials{Server: "http://portal", Token: "tok", UserID: "u1", ExpiresAt: exp}))

	c, err := LoadCredentials(path)
	require.NoError(t, err)
	assert.Equal(t, "tok", c.Token)
	assert.False(t, c.Expired(exp.Add(-time.Hour), time.Minute))
	assert.True(t, c.Expired(exp.Add(-time.Minute), 5*time.Minute))
	assert.False(t, (&Credentials{}).Expired(exp, time.Hour))

	require.NoError(t, DeleteCredentials(path))
	require.NoError(t, DeleteCredentials(path))
}

// ─── Against a real server ──────────────────────────────────────────────────

type memSource struct {
	employees []models.Employee
	documents []models.Document
}

func (m *memSource) FetchEmployees(context.Context) ([]models.Employee, error) { return m.employees, nil }
func (m *memSource) FetchDocuments(context.Context) ([]models.Document, error) { return m.documents, nil }
func (m *memSource) DeleteDocument(context.Context, string) error              { return nil }

type fakeResolver struct{}

func (fakeResolver) ResolveURL(_ context.Context, doc models.Document, action models.Action) (string, error) {
	return "https://files.example/" + doc.ID + "?" + string(action), nil
}

func portal(t *testing.T) (user, admin *Client) {
	t.Helper()
	src := &memSource{
		employees: []models.Employee{
			{ID: "u1", Name: "Priya Shah", Department: "Engineering", Location: "HQ"},
			{ID: "a1", Name: "Hana Admin", Department: "HR", Location: "HQ"},
		},
		documents: []models.Document{
			{ID: "d1", OwnerID: "u1", Name: "salary-june.pdf", Type: models.TypeSalarySlip, UploadDate: time.Date(2024, time.June, 28, 9, 0, 0, 0, time.UTC)},
			{ID: "d2", OwnerID: "u1", Name: "offer.pdf", Type: models.TypePersonal, UploadDate: time.Date(2023, time.January, 5, 9, 0, 0, 0, time.UTC)},
		},
	}
	loader := records.NewLoader(src)
	_, err := loader.Revalidate(context.Background())
	require.NoError(t, err)

	now := func() time.Time { return time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC) }
	a := auth.New("client-test-secret")
	srv := api.NewServer(api.Config{
		Records:  loader,
		Deleter:  src,
		Pins:     pin.NewService(pin.NewMemoryStore(), pin.Config{Cost: bcrypt.MinCost, Now: now}),
		Resolver: fakeResolver{},
		Settings: settings.NewMemoryStore(map[string]string{settings.KeyCompanyName: "Acme"}),
		Profiles: navigator.DefaultProfiles(),
		Auth:     a,
		Now:      now,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	mk := func(id string, isAdmin bool) *Client {
		tok, _, err := a.IssueToken(id, id, isAdmin, time.Hour)
		require.NoError(t, err)
		return New(Config{BaseURL: ts.URL, AuthToken: tok})
	}
	return mk("u1", false), mk("a1", true)
}

func TestLoaderOverHTTP(t *testing.T) {
	user, admin := portal(t)

	l := records.NewLoader(user)
	ix, err := l.Revalidate(context.Background())
	require.NoError(t, err)
	assert.Len(t, ix.Employees(), 1)
	assert.Len(t, ix.DocumentsOf("u1"), 2)

	ix, err = records.NewLoader(admin).Revalidate(context.Background())
	require.NoError(t, err)
	assert.Len(t, ix.Employees(), 2)

	assert.ErrorIs(t, user.DeleteDocument(context.Background(), "nope"), records.ErrNotFound)
}

func TestSessionOverHTTP(t *testing.T) {
	ctx := context.Background()
	user, admin := portal(t)

	msg, err := user.SetPin(ctx, "2468", "")
	require.NoError(t, err)
	assert.Equal(t, "PIN set successfully", msg)

	st, err := user.CheckLockStatus(ctx)
	require.NoError(t, err)
	assert.False(t, st.IsLocked)

	sess, view, err := user.OpenSession(ctx, navigator.ProfileEmbedded, "")
	require.NoError(t, err)
	assert.Equal(t, []int{2024, 2023}, view.View.AvailableYears)

	view, err = sess.Send(ctx, protocol.NavigatorEvent{Type: "set_filters", Year: "all", Month: "all"})
	require.NoError(t, err)
	view, err = sess.Send(ctx, protocol.NavigatorEvent{Type: "enter_folder", ID: models.TypePersonal})
	require.NoError(t, err)
	require.Len(t, view.View.Content.Files, 1)
	assert.Equal(t, "d2", view.View.Content.Files[0].ID)

	act, err := sess.Request(ctx, models.ActionDownload, "d2")
	require.NoError(t, err)
	assert.Equal(t, "pending_pin", act.Pin.Phase)

	_, err = sess.OpenPin(ctx)
	require.NoError(t, err)

	_, err = sess.SubmitPin(ctx, "1111")
	ae, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, ae.StatusCode)
	require.NotNil(t, ae.Response.AttemptsLeft)
	assert.Equal(t, 4, *ae.Response.AttemptsLeft)

	act, err = sess.SubmitPin(ctx, "2468")
	require.NoError(t, err)
	assert.Equal(t, "https://files.example/d2?download", act.Pin.URL)

	_, err = sess.Request(ctx, models.ActionView, "d1")
	require.NoError(t, err)
	act, err = sess.Cancel(ctx)
	require.NoError(t, err)
	assert.Equal(t, "idle", act.Pin.Phase)

	require.NoError(t, sess.Close(ctx))
	_, err = sess.View(ctx)
	assert.True(t, IsNotFound(err))

	require.NoError(t, admin.ResetPins(ctx, "u1"))
	ps, err := user.PinStatus(ctx)
	require.NoError(t, err)
	assert.False(t, ps.PinSet)
	require.NoError(t, admin.ResetPins(ctx, "u1", "a1"))
}

func TestSettingsOverHTTP(t *testing.T) {
	ctx := context.Background()
	user, admin := portal(t)

	v, err := user.Setting(ctx, settings.KeyCompanyName)
	require.NoError(t, err)
	assert.Equal(t, "Acme", v)

	err = user.PutSetting(ctx, settings.KeyCompanyName, "Nope")
	ae, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, ae.StatusCode)

	require.NoError(t, admin.PutSetting(ctx, settings.KeyCompanyName, "Acme Ltd"))
	all, err := user.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltd", all[settings.KeyCompanyName])
}
