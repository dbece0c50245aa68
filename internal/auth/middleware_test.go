package auth

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

var testSecret = []byte("test-secret")

func identityEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_, _ = io.WriteString(w, id.Subject+"/"+string(id.Role))
	})
}

func newTestMiddleware() *Middleware {
	return NewMiddleware(testSecret, NewPolicy([]string{"/healthz", "/metrics", "/ingest/"}, QARules), nil)
}

func do(t *testing.T, handler http.Handler, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func TestMiddleware_RequiresToken(t *testing.T) {
	resp := do(t, newTestMiddleware().Wrap(identityEcho()), http.MethodGet, "/api/v1/calendar", "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if resp.Header().Get("WWW-Authenticate") == "" {
		t.Fatal("expected WWW-Authenticate header")
	}
}

func TestMiddleware_ViewerReadsCalendar(t *testing.T) {
	resp := do(t, newTestMiddleware().Wrap(identityEcho()), http.MethodGet, "/api/v1/calendar", mustToken(t, "dr.kim", RoleViewer))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got := resp.Body.String(); got != "dr.kim/viewer" {
		t.Fatalf("unexpected identity %q", got)
	}
}

func TestMiddleware_RoleLadder(t *testing.T) {
	handler := newTestMiddleware().Wrap(identityEcho())
	cases := []struct {
		role   Role
		method string
		path   string
		want   int
	}{
		{RoleViewer, http.MethodPost, "/api/v1/records/rec-1/approve", http.StatusForbidden},
		{RolePhysicist, http.MethodPost, "/api/v1/records/rec-1/approve", http.StatusOK},
		{RolePhysicist, http.MethodDelete, "/api/v1/records/rec-1", http.StatusForbidden},
		{RoleAdmin, http.MethodDelete, "/api/v1/records/rec-1", http.StatusOK},
		{RoleViewer, http.MethodGet, "/api/v1/exports/calendar.pdf", http.StatusOK},
		{RolePhysicist, http.MethodPut, "/api/v1/thresholds", http.StatusForbidden},
	}
	for _, tc := range cases {
		resp := do(t, handler, tc.method, tc.path, mustToken(t, "user-1", tc.role))
		if resp.Code != tc.want {
			t.Fatalf("%s %s %s: expected %d, got %d", tc.role, tc.method, tc.path, tc.want, resp.Code)
		}
	}
}

func TestMiddleware_PublicPaths(t *testing.T) {
	handler := newTestMiddleware().Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for _, path := range []string{"/healthz", "/metrics", "/ingest/folders"} {
		if resp := do(t, handler, http.MethodGet, path, ""); resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, resp.Code)
		}
	}
}

func TestParseJWT_Rejects(t *testing.T) {
	if _, err := ParseJWT("", testSecret); !errors.Is(err, ErrEmptyToken) {
		t.Fatalf("expected ErrEmptyToken, got %v", err)
	}
	foreign, err := IssueJWT([]byte("other-secret"), "user-1", RoleViewer, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := ParseJWT(foreign, testSecret); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := IssueJWT(testSecret, "user-1", Role("operator"), time.Hour); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	if _, err := IssueJWT(testSecret, "", RoleViewer, time.Hour); !errors.Is(err, ErrMissingSubject) {
		t.Fatalf("expected ErrMissingSubject, got %v", err)
	}
}

func TestRoleSatisfies(t *testing.T) {
	if !RoleAdmin.Satisfies(RolePhysicist) || RoleViewer.Satisfies(RolePhysicist) {
		t.Fatal("unexpected role ordering")
	}
	if Role("").Satisfies(Role("")) {
		t.Fatal("empty role must not satisfy anything")
	}
	if role, ok := NormalizeRole(" Physicist "); !ok || role != RolePhysicist {
		t.Fatalf("expected physicist, got %q", role)
	}
}

func signedRequest(secret, body []byte, at time.Time) *http.Request {
	ts := strconv.FormatInt(at.Unix(), 10)
	req := httptest.NewRequest(http.MethodPost, "/ingest/folders", bytes.NewReader(body))
	req.Header.Set(HeaderIngestTimestamp, ts)
	req.Header.Set(HeaderIngestSignature, SignIngest(secret, ts, body))
	return req
}

func TestIngestVerifier_Wrap(t *testing.T) {
	secret := []byte("ingest-secret")
	body := []byte(`{"path":"/data/run"}`)
	handler := NewIngestVerifier(secret, time.Minute).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ := io.ReadAll(r.Body)
		if !bytes.Equal(got, body) {
			t.Fatalf("body not restored: %s", got)
		}
		w.WriteHeader(http.StatusAccepted)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, signedRequest(secret, body, time.Now()))
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, signedRequest(secret, body, time.Now().Add(-time.Hour)))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for stale signature, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, signedRequest([]byte("wrong"), body, time.Now()))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad signature, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, signedRequest(secret, []byte(strings.Repeat("x", maxIngestBody+1)), time.Now()))
	if resp.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.Code)
	}
}

func TestIngestVerifier_Verify(t *testing.T) {
	now := time.Date(2025, 9, 19, 8, 0, 0, 0, time.UTC)
	v := NewIngestVerifier([]byte("s"), time.Minute)
	v.now = func() time.Time { return now }
	ts := strconv.FormatInt(now.Add(30*time.Second).Unix(), 10)

	if err := v.Verify(ts, SignIngest([]byte("s"), ts, nil), nil); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
	if err := v.Verify("", "", nil); !errors.Is(err, ErrSignatureMissing) {
		t.Fatalf("expected ErrSignatureMissing, got %v", err)
	}
	if err := v.Verify("soon", "abc", nil); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
	if err := NewIngestVerifier(nil, 0).Verify(ts, "abc", nil); !errors.Is(err, ErrIngestNotConfigured) {
		t.Fatalf("expected ErrIngestNotConfigured, got %v", err)
	}
}

func mustToken(t *testing.T, subject string, role Role) string {
	t.Helper()
	signed, err := IssueJWT(testSecret, subject, role, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestParseJWT_Expired(t *testing.T) {
	expired, err := IssueJWT(testSecret, "user-1", RoleViewer, -time.Minute)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := ParseJWT(expired, testSecret); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	resp := do(t, newTestMiddleware().Wrap(identityEcho()), http.MethodGet, "/api/v1/records", expired)
	if resp.Code != http.StatusUnauthorized || !strings.Contains(resp.Body.String(), "expired") {
		t.Fatalf("expected expired 401, got %d %q", resp.Code, resp.Body.String())
	}
}
