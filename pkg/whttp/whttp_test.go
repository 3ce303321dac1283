package whttp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetSetsBrowserHeaders(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	c, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := c.Get(context.Background(), srv.URL+"/2024/09/09/")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(res.Body) != "<html>ok</html>" {
		t.Fatalf("unexpected body %q", res.Body)
	}
	if gotUA != DefaultUserAgent {
		t.Fatalf("expected browser user agent, got %q", gotUA)
	}
}

func TestGetStatusError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c, _ := New(Options{})
	_, err := c.Get(context.Background(), srv.URL)

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", se.StatusCode)
	}
}

func TestGetNoRetryByDefault(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, _ := New(Options{})
	if _, err := c.Get(context.Background(), srv.URL); err == nil {
		t.Fatal("expected an error")
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("expected a single attempt, got %d", n)
	}
}

func TestGetRetriesWhenConfigured(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c, _ := New(Options{Retries: 2})
	c.http.RetryWaitMin = time.Millisecond
	c.http.RetryWaitMax = time.Millisecond

	if _, err := c.Get(context.Background(), srv.URL); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Fatalf("expected 2 attempts, got %d", n)
	}
}

func TestGetRateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c, _ := New(Options{Rate: 0.001})
	if _, err := c.Get(context.Background(), srv.URL); err != nil {
		t.Fatalf("first request should use the burst: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Get(ctx, srv.URL); err == nil {
		t.Fatal("second request should be held back by the limiter")
	}
}

func TestNewRejectsBadProxy(t *testing.T) {
	if _, err := New(Options{Proxy: "://bad"}); err == nil {
		t.Fatal("expected an error for a malformed proxy")
	}
}

func TestSourceLabel(t *testing.T) {
	tests := map[string]string{
		"https://www.formulatv.com/audiencias/": "formulatv.com",
		"https://audiencias.example.co.uk/x/":   "example.co.uk",
		"http://127.0.0.1:8080/":                "127.0.0.1",
		"http://localhost/":                     "localhost",
	}
	for in, want := range tests {
		if got := SourceLabel(in); got != want {
			t.Fatalf("SourceLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
