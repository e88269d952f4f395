package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SubhabrataBarik/TaskMaster/internal/shared"
	tu "github.com/SubhabrataBarik/TaskMaster/internal/testing"
	"github.com/google/uuid"
)

func newTestAPI(baseURL string, store TokenStore) *APIService {
	return NewAPIService(APIOpts{BaseURL: baseURL, Store: store, Timeout: 2 * time.Second})
}

// tokenServer serves /tasks/ for "Bearer <valid>" and answers every other token with 401.
type tokenServer struct {
	mu        sync.Mutex
	valid     string
	refreshed atomic.Int32
	protected atomic.Int32
	seen      []string

	refresh func(w http.ResponseWriter, r *http.Request)
}

func (s *tokenServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/auth/token/refresh/" {
		s.refreshed.Add(1)
		s.refresh(w, r)
		return
	}

	s.protected.Add(1)
	auth := r.Header.Get("Authorization")
	s.mu.Lock()
	s.seen = append(s.seen, auth)
	valid := s.valid
	s.mu.Unlock()

	if auth != "Bearer "+valid {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Given token not valid for any token type"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`[]`))
}

func (s *tokenServer) authHeaders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.seen...)
}

func TestAPIService(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Custom BaseURL and Client", func(t *testing.T) {
			customClient := &http.Client{}
			srv := NewAPIService(APIOpts{BaseURL: "http://example.com/api/", HTTPClient: customClient})

			if srv.baseURL != "http://example.com/api" {
				t.Errorf("expected trailing slash trimmed, got %s", srv.baseURL)
			}
			if srv.httpClient != customClient {
				t.Error("expected custom client to be used")
			}
		})

		t.Run("With Defaults", func(t *testing.T) {
			srv := NewAPIService(APIOpts{})

			if srv.baseURL != "http://localhost:8000/api" {
				t.Errorf("expected default baseURL, got %s", srv.baseURL)
			}
			if srv.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
			if srv.endpoints != DefaultEndpoints() {
				t.Errorf("expected default endpoints, got %+v", srv.endpoints)
			}
			if srv.limiter != nil {
				t.Error("expected no limiter without a rate limit")
			}
			srv.Store().Set("a", "r")
			if srv.Store().Access() != "a" {
				t.Error("expected fallback in-memory store")
			}
		})

		t.Run("Endpoints From Config", func(t *testing.T) {
			e := EndpointsFromConfig(shared.EndpointsConfig{Login: "/v2/login/"})
			if e.Login != "/v2/login/" {
				t.Errorf("expected override, got %s", e.Login)
			}
			if e.Refresh != DefaultEndpoints().Refresh {
				t.Errorf("expected default refresh path, got %s", e.Refresh)
			}
		})
	})

	t.Run("Do", func(t *testing.T) {
		t.Run("Sets Headers", func(t *testing.T) {
			var got http.Header
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Clone()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			srv := newTestAPI(server.URL, tu.NewFakeTokenStore("A1", "R1"))
			if _, err := srv.Get(context.Background(), "/tasks/", nil); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if got.Get("Authorization") != "Bearer A1" {
				t.Errorf("expected bearer token, got %q", got.Get("Authorization"))
			}
			if got.Get("Content-Type") != "application/json" {
				t.Errorf("expected JSON content type, got %q", got.Get("Content-Type"))
			}
			if got.Get("Accept") != "application/json" {
				t.Errorf("expected JSON accept, got %q", got.Get("Accept"))
			}
			if _, err := uuid.Parse(got.Get("X-Request-ID")); err != nil {
				t.Errorf("expected uuid request id, got %q", got.Get("X-Request-ID"))
			}
		})

		t.Run("Omits Authorization Without Token", func(t *testing.T) {
			var auth []string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				auth = r.Header.Values("Authorization")
			}))
			defer server.Close()

			srv := newTestAPI(server.URL, tu.NewFakeTokenStore("", ""))
			srv.Get(context.Background(), "/tasks/", nil)

			if len(auth) != 0 {
				t.Errorf("expected no Authorization header, got %v", auth)
			}
		})

		t.Run("Caller Header Overrides Content Type", func(t *testing.T) {
			var contentType string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				contentType = r.Header.Get("Content-Type")
			}))
			defer server.Close()

			srv := newTestAPI(server.URL, nil)
			srv.Do(context.Background(), Request{
				Method: http.MethodPost,
				Path:   "/upload/",
				Header: http.Header{"Content-Type": []string{"text/plain"}},
				Body:   []byte("hello"),
			})

			if contentType != "text/plain" {
				t.Errorf("expected text/plain, got %q", contentType)
			}
		})

		t.Run("Encodes Body And Query", func(t *testing.T) {
			var body map[string]string
			var query url.Values
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				query = r.URL.Query()
				json.NewDecoder(r.Body).Decode(&body)
			}))
			defer server.Close()

			srv := newTestAPI(server.URL, nil)
			srv.Do(context.Background(), Request{
				Method: http.MethodPost,
				Path:   "tasks/",
				Query:  url.Values{"status__in": {"pending,completed"}},
				Body:   map[string]string{"title": "Write tests"},
			})

			if body["title"] != "Write tests" {
				t.Errorf("expected JSON body, got %v", body)
			}
			if query.Get("status__in") != "pending,completed" {
				t.Errorf("expected query to be sent, got %v", query)
			}
		})

		t.Run("Absolute Paths Are Used As Is", func(t *testing.T) {
			var path string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				path = r.URL.Path
			}))
			defer server.Close()

			srv := newTestAPI("http://unused.invalid/api", nil)
			if _, err := srv.Get(context.Background(), server.URL+"/tasks/?page=2", nil); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if path != "/tasks/" {
				t.Errorf("expected /tasks/, got %s", path)
			}
		})

		t.Run("Non-JSON Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				w.Write([]byte("plain text response"))
			}))
			defer server.Close()

			srv := newTestAPI(server.URL, nil)
			resp, err := srv.Get(context.Background(), "/test", nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.IsJSON || resp.JSONData != nil {
				t.Error("expected response to not be JSON")
			}
			if string(resp.Body) != "plain text response" {
				t.Errorf("expected body 'plain text response', got %s", string(resp.Body))
			}
		})

		t.Run("Failed Request Creation", func(t *testing.T) {
			srv := newTestAPI("http://example.com", nil)
			_, err := srv.Get(context.Background(), "/test\x00invalid", nil)

			if err == nil || !strings.Contains(err.Error(), "failed to create request") {
				t.Errorf("expected 'failed to create request' error, got %v", err)
			}
		})

		t.Run("Failed HTTP Request", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection failed"))}
			srv := NewAPIService(APIOpts{BaseURL: "http://example.com", HTTPClient: client})

			_, err := srv.Get(context.Background(), "/test", nil)
			if !errors.Is(err, shared.ErrNetworkUnavailable) {
				t.Errorf("expected ErrNetworkUnavailable, got %v", err)
			}
			if !strings.Contains(err.Error(), "request failed") {
				t.Errorf("expected 'request failed' error, got %v", err)
			}
		})

		t.Run("Failed Body Read", func(t *testing.T) {
			resp := &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(&tu.FCloser{})}
			client := &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)}
			srv := NewAPIService(APIOpts{BaseURL: "http://example.com", HTTPClient: client})

			_, err := srv.Get(context.Background(), "/test", nil)
			if err == nil || !strings.Contains(err.Error(), "failed to read response") {
				t.Errorf("expected 'failed to read response' error, got %v", err)
			}
		})

		t.Run("Unencodable Body", func(t *testing.T) {
			srv := newTestAPI("http://example.com", nil)
			_, err := srv.Post(context.Background(), "/tasks/", map[string]any{"bad": make(chan int)})
			if err == nil || !strings.Contains(err.Error(), "failed to encode request body") {
				t.Errorf("expected encode error, got %v", err)
			}
		})

		t.Run("Rate Limited Requests Respect Context", func(t *testing.T) {
			srv := NewAPIService(APIOpts{BaseURL: "http://example.com", RateLimit: 0.001})
			srv.limiter.Allow()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			defer cancel()
			if _, err := srv.Get(ctx, "/tasks/", nil); err == nil || !strings.Contains(err.Error(), "rate limiter") {
				t.Errorf("expected rate limiter error, got %v", err)
			}
		})
	})

	t.Run("Refresh On 401", func(t *testing.T) {
		t.Run("Retries With New Access Token", func(t *testing.T) {
			ts := &tokenServer{valid: "A2"}
			ts.refresh = func(w http.ResponseWriter, r *http.Request) {
				var body map[string]string
				json.NewDecoder(r.Body).Decode(&body)
				if body["refresh"] != "R1" {
					t.Errorf("expected refresh token R1 in body, got %v", body)
				}
				if r.Header.Get("Authorization") != "" {
					t.Errorf("expected refresh without bearer, got %q", r.Header.Get("Authorization"))
				}
				w.Write([]byte(`{"access":"A2"}`))
			}
			server := httptest.NewServer(ts)
			defer server.Close()

			store := tu.NewFakeTokenStore("A1", "R1")
			srv := newTestAPI(server.URL, store)

			resp, err := srv.Get(context.Background(), "/tasks/", nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.StatusCode != http.StatusOK {
				t.Errorf("expected 200 after retry, got %d", resp.StatusCode)
			}

			seen := ts.authHeaders()
			if len(seen) != 2 || seen[0] != "Bearer A1" || seen[1] != "Bearer A2" {
				t.Errorf("expected [Bearer A1, Bearer A2], got %v", seen)
			}
			if ts.refreshed.Load() != 1 {
				t.Errorf("expected one refresh, got %d", ts.refreshed.Load())
			}
			if store.Access() != "A2" || store.Refresh() != "R1" {
				t.Errorf("expected (A2, R1) kept, got (%s, %s)", store.Access(), store.Refresh())
			}
		})

		t.Run("Persists Rotated Refresh Token", func(t *testing.T) {
			ts := &tokenServer{valid: "A2"}
			ts.refresh = func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"access":"A2","refresh":"R2"}`))
			}
			server := httptest.NewServer(ts)
			defer server.Close()

			store := tu.NewFakeTokenStore("A1", "R1")
			if _, err := newTestAPI(server.URL, store).Get(context.Background(), "/tasks/", nil); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if store.Access() != "A2" || store.Refresh() != "R2" {
				t.Errorf("expected (A2, R2), got (%s, %s)", store.Access(), store.Refresh())
			}
		})

		t.Run("Retries At Most Once", func(t *testing.T) {
			ts := &tokenServer{valid: "never"}
			ts.refresh = func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"access":"A2"}`))
			}
			server := httptest.NewServer(ts)
			defer server.Close()

			srv := newTestAPI(server.URL, tu.NewFakeTokenStore("A1", "R1"))
			resp, err := srv.Get(context.Background(), "/tasks/", nil)
			if err != nil {
				t.Fatalf("expected response, got %v", err)
			}
			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("expected final 401, got %d", resp.StatusCode)
			}
			if ts.protected.Load() != 2 || ts.refreshed.Load() != 1 {
				t.Errorf("expected 2 requests and 1 refresh, got %d and %d", ts.protected.Load(), ts.refreshed.Load())
			}
			if !errors.Is(CheckResponse(resp), shared.ErrAuthRejected) {
				t.Error("expected final 401 to classify as ErrAuthRejected")
			}
		})

		t.Run("Rejected Retry Clears Session", func(t *testing.T) {
			ts := &tokenServer{valid: "never"}
			ts.refresh = func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"access":"A2","refresh":"R2"}`))
			}
			server := httptest.NewServer(ts)
			defer server.Close()

			expired := 0
			store := tu.NewFakeTokenStore("A1", "R1")
			srv := NewAPIService(APIOpts{
				BaseURL:          server.URL,
				Store:            store,
				OnSessionExpired: func() { expired++ },
			})

			err := srv.doJSON(context.Background(), Request{Method: http.MethodGet, Path: "/tasks/"}, nil)
			if !errors.Is(err, shared.ErrAuthRejected) {
				t.Fatalf("expected ErrAuthRejected, got %v", err)
			}
			if ts.refreshed.Load() != 1 {
				t.Errorf("expected one refresh, got %d", ts.refreshed.Load())
			}
			if store.Access() != "" || store.Refresh() != "" {
				t.Errorf("expected cleared session, got (%s, %s)", store.Access(), store.Refresh())
			}
			if expired != 1 {
				t.Errorf("expected expiry hook once, got %d", expired)
			}
		})

		t.Run("Forbidden Keeps Session", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"detail":"You do not have permission to perform this action."}`))
			}))
			defer server.Close()

			store := tu.NewFakeTokenStore("A1", "R1")
			err := newTestAPI(server.URL, store).doJSON(context.Background(), Request{Method: http.MethodGet, Path: "/tasks/"}, nil)
			if !errors.Is(err, shared.ErrAuthRejected) {
				t.Fatalf("expected ErrAuthRejected, got %v", err)
			}
			if store.Access() != "A1" || store.Refresh() != "R1" {
				t.Errorf("expected session kept, got (%s, %s)", store.Access(), store.Refresh())
			}
		})

		t.Run("Already Cleared Session Expires Once", func(t *testing.T) {
			ts := &tokenServer{valid: "A2"}
			ts.refresh = func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"detail":"Token is blacklisted"}`))
			}
			server := httptest.NewServer(ts)
			defer server.Close()

			expired := 0
			store := tu.NewFakeTokenStore("A1", "R1")
			srv := NewAPIService(APIOpts{
				BaseURL:          server.URL,
				Store:            store,
				OnSessionExpired: func() { expired++ },
			})

			if _, err := srv.Get(context.Background(), "/tasks/", nil); !errors.Is(err, shared.ErrSessionExpired) {
				t.Fatalf("expected ErrSessionExpired, got %v", err)
			}

			// a late 401 for a request sent with A1 before the session was cleared
			_, err := srv.refreshAfter(context.Background(), "A1")
			if !errors.Is(err, shared.ErrSessionExpired) {
				t.Errorf("expected ErrSessionExpired, got %v", err)
			}
			if expired != 1 {
				t.Errorf("expected expiry hook once, got %d", expired)
			}
			if ts.refreshed.Load() != 1 {
				t.Errorf("expected no second refresh call, got %d", ts.refreshed.Load())
			}
		})

		t.Run("Rejected Refresh Clears Session", func(t *testing.T) {
			ts := &tokenServer{valid: "A2"}
			ts.refresh = func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"detail":"Token is blacklisted"}`))
			}
			server := httptest.NewServer(ts)
			defer server.Close()

			expired := 0
			store := tu.NewFakeTokenStore("A1", "R1")
			srv := NewAPIService(APIOpts{
				BaseURL:          server.URL,
				Store:            store,
				OnSessionExpired: func() { expired++ },
			})

			resp, err := srv.Get(context.Background(), "/tasks/", nil)
			if !errors.Is(err, shared.ErrSessionExpired) {
				t.Fatalf("expected ErrSessionExpired, got %v", err)
			}
			if !errors.Is(err, shared.ErrRefreshFailed) {
				t.Errorf("expected ErrRefreshFailed cause, got %v", err)
			}
			if resp != nil {
				t.Error("expected no response")
			}
			if store.Access() != "" || store.Refresh() != "" {
				t.Errorf("expected cleared session, got (%s, %s)", store.Access(), store.Refresh())
			}
			if ts.protected.Load() != 1 {
				t.Errorf("expected no retry, got %d protected requests", ts.protected.Load())
			}
			if expired != 1 {
				t.Errorf("expected expiry hook once, got %d", expired)
			}
		})

		t.Run("Refresh Without Access Clears Session", func(t *testing.T) {
			ts := &tokenServer{valid: "A2"}
			ts.refresh = func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"refresh":"R2"}`))
			}
			server := httptest.NewServer(ts)
			defer server.Close()

			store := tu.NewFakeTokenStore("A1", "R1")
			_, err := newTestAPI(server.URL, store).Get(context.Background(), "/tasks/", nil)
			if !errors.Is(err, shared.ErrSessionExpired) {
				t.Errorf("expected ErrSessionExpired, got %v", err)
			}
			if store.Access() != "" {
				t.Error("expected cleared session")
			}
		})

		t.Run("Missing Refresh Token Expires Without Calling", func(t *testing.T) {
			ts := &tokenServer{valid: "A2"}
			ts.refresh = func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"access":"A2"}`))
			}
			server := httptest.NewServer(ts)
			defer server.Close()

			_, err := newTestAPI(server.URL, tu.NewFakeTokenStore("A1", "")).Get(context.Background(), "/tasks/", nil)
			if !errors.Is(err, shared.ErrNoRefreshToken) || !errors.Is(err, shared.ErrSessionExpired) {
				t.Errorf("expected expired session without refresh token, got %v", err)
			}
			if ts.refreshed.Load() != 0 {
				t.Errorf("expected no refresh call, got %d", ts.refreshed.Load())
			}
		})

		t.Run("Network Failure During Refresh Expires", func(t *testing.T) {
			calls := 0
			client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
				calls++
				if calls == 1 {
					return tu.JSONResponse(http.StatusUnauthorized, `{}`), nil
				}
				return nil, errors.New("connection reset")
			})}
			store := tu.NewFakeTokenStore("A1", "R1")
			srv := NewAPIService(APIOpts{BaseURL: "http://example.com", HTTPClient: client, Store: store})

			_, err := srv.Get(context.Background(), "/tasks/", nil)
			if !errors.Is(err, shared.ErrSessionExpired) || !errors.Is(err, shared.ErrNetworkUnavailable) {
				t.Errorf("expected expired session caused by network failure, got %v", err)
			}
			if store.Access() != "" {
				t.Error("expected cleared session")
			}
		})

		t.Run("Refresh Endpoint Does Not Recurse", func(t *testing.T) {
			ts := &tokenServer{valid: "A2"}
			ts.refresh = func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			}
			server := httptest.NewServer(ts)
			defer server.Close()

			store := tu.NewFakeTokenStore("A1", "R1")
			resp, err := newTestAPI(server.URL, store).Post(context.Background(), "/auth/token/refresh/", map[string]string{"refresh": "R1"})
			if err != nil {
				t.Fatalf("expected response, got %v", err)
			}
			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("expected 401 returned as is, got %d", resp.StatusCode)
			}
			if ts.refreshed.Load() != 1 {
				t.Errorf("expected a single call, got %d", ts.refreshed.Load())
			}
			if store.Access() != "A1" {
				t.Error("expected session untouched")
			}
		})

		t.Run("NoAuth Requests Do Not Refresh", func(t *testing.T) {
			ts := &tokenServer{valid: "A2"}
			ts.refresh = func(w http.ResponseWriter, r *http.Request) {
				t.Error("unexpected refresh")
			}
			server := httptest.NewServer(ts)
			defer server.Close()

			srv := newTestAPI(server.URL, tu.NewFakeTokenStore("A1", "R1"))
			resp, err := srv.Do(context.Background(), Request{Method: http.MethodGet, Path: "/tasks/", NoAuth: true})
			if err != nil {
				t.Fatalf("expected response, got %v", err)
			}
			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", resp.StatusCode)
			}
			if seen := ts.authHeaders(); len(seen) != 1 || seen[0] != "" {
				t.Errorf("expected one unauthenticated request, got %v", seen)
			}
		})

		t.Run("Concurrent 401s Share One Refresh", func(t *testing.T) {
			const n = 8

			var arrived atomic.Int32
			allArrived := make(chan struct{})
			ts := &tokenServer{valid: "A2"}
			ts.refresh = func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(20 * time.Millisecond)
				w.Write([]byte(`{"access":"A2","refresh":"R2"}`))
			}
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/tasks/" && r.Header.Get("Authorization") == "Bearer A1" {
					if arrived.Add(1) == n {
						close(allArrived)
					}
					select {
					case <-allArrived:
					case <-time.After(2 * time.Second):
					}
				}
				ts.ServeHTTP(w, r)
			}))
			defer server.Close()

			store := tu.NewFakeTokenStore("A1", "R1")
			srv := newTestAPI(server.URL, store)

			var wg sync.WaitGroup
			errs := make(chan error, n)
			for range n {
				wg.Add(1)
				go func() {
					defer wg.Done()
					resp, err := srv.Get(context.Background(), "/tasks/", nil)
					if err == nil {
						err = CheckResponse(resp)
					}
					errs <- err
				}()
			}
			wg.Wait()
			close(errs)

			for err := range errs {
				if err != nil {
					t.Errorf("expected every request to succeed, got %v", err)
				}
			}
			if got := ts.refreshed.Load(); got != 1 {
				t.Errorf("expected exactly one refresh call, got %d", got)
			}
			if sets, clears := store.Counts(); sets != 1 || clears != 0 {
				t.Errorf("expected one Set and no Clear, got %d and %d", sets, clears)
			}
			if store.Access() != "A2" || store.Refresh() != "R2" {
				t.Errorf("expected (A2, R2), got (%s, %s)", store.Access(), store.Refresh())
			}
		})

		t.Run("Cancelled Waiter Does Not Fail Refresh", func(t *testing.T) {
			release := make(chan struct{})
			ts := &tokenServer{valid: "A2"}
			ts.refresh = func(w http.ResponseWriter, r *http.Request) {
				<-release
				w.Write([]byte(`{"access":"A2"}`))
			}
			server := httptest.NewServer(ts)
			defer server.Close()

			store := tu.NewFakeTokenStore("A1", "R1")
			srv := newTestAPI(server.URL, store)

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() {
				_, err := srv.Get(ctx, "/tasks/", nil)
				done <- err
			}()

			for ts.refreshed.Load() == 0 {
				time.Sleep(time.Millisecond)
			}
			cancel()
			if err := <-done; !errors.Is(err, context.Canceled) {
				t.Errorf("expected cancelled caller, got %v", err)
			}

			close(release)
			deadline := time.Now().Add(2 * time.Second)
			for store.Access() != "A2" && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			if store.Access() != "A2" {
				t.Errorf("expected detached refresh to complete, got %q", store.Access())
			}
		})
	})

	t.Run("Refresh", func(t *testing.T) {
		t.Run("Public Refresh Updates Store", func(t *testing.T) {
			ts := &tokenServer{valid: "A2"}
			ts.refresh = func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"access":"A2","refresh":"R2"}`))
			}
			server := httptest.NewServer(ts)
			defer server.Close()

			store := tu.NewFakeTokenStore("A1", "R1")
			token, err := newTestAPI(server.URL, store).Refresh(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if token != "A2" || store.Refresh() != "R2" {
				t.Errorf("expected A2/R2, got %s/%s", token, store.Refresh())
			}
		})
	})

	t.Run("APIResponse", func(t *testing.T) {
		t.Run("Decode", func(t *testing.T) {
			var v map[string]int
			if err := (&APIResponse{Body: []byte(`{"a":1}`)}).Decode(&v); err != nil || v["a"] != 1 {
				t.Errorf("expected decoded body, got %v (%v)", v, err)
			}
		})

		t.Run("Decode Malformed", func(t *testing.T) {
			var v map[string]int
			err := (&APIResponse{Body: []byte(`{"a":`)}).Decode(&v)
			if !errors.Is(err, shared.ErrDecode) {
				t.Errorf("expected ErrDecode, got %v", err)
			}
		})

		t.Run("Decode Empty", func(t *testing.T) {
			var v map[string]int
			if err := (&APIResponse{StatusCode: http.StatusNoContent}).Decode(&v); err != nil {
				t.Errorf("expected empty body to be ignored, got %v", err)
			}
		})
	})
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
