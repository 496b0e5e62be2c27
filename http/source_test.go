package http_test

import (
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/opencontainers/go-digest"

	"github.com/voxelio/cellio"
	cellhttp "github.com/voxelio/cellio/http"
)

func serve(t *testing.T, data []byte) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var requests atomic.Int32
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		requests.Add(1)
		_, _ = w.Write(data)
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func TestStreamReadAndRewind(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	server, requests := serve(t, data)

	s, err := cellhttp.Open(server.URL)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if s.Length() != int64(len(data)) {
		t.Fatalf("Length() = %d, want %d", s.Length(), len(data))
	}

	buf := make([]byte, 9)
	if _, err := io.ReadFull(s, buf); err != nil {
		t.Fatalf("ReadFull() error = %v", err)
	}
	if string(buf) != "the quick" {
		t.Fatalf("read %q, want %q", buf, "the quick")
	}

	// Small backward seek must be served from the rewind buffer.
	if err := s.Seek(4); err != nil {
		t.Fatalf("Seek(4) error = %v", err)
	}
	if _, err := io.ReadFull(s, buf[:5]); err != nil {
		t.Fatalf("ReadFull() after rewind error = %v", err)
	}
	if string(buf[:5]) != "quick" {
		t.Fatalf("read %q, want %q", buf[:5], "quick")
	}
	if got := requests.Load(); got != 1 {
		t.Fatalf("rewind triggered %d requests, want 1", got)
	}
}

func TestSeekBelowMarkReconnects(t *testing.T) {
	data := []byte("0123456789abcdefghijklmnopqrstuvwxyz")
	server, requests := serve(t, data)

	s, err := cellhttp.Open(server.URL)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	// A transport-level skip re-primes the rewind window past the mark.
	if _, err := s.Skip(20); err != nil {
		t.Fatalf("Skip() error = %v", err)
	}
	if err := s.Seek(2); err != nil {
		t.Fatalf("Seek(2) error = %v", err)
	}

	buf := make([]byte, 4)
	if _, err := io.ReadFull(s, buf); err != nil {
		t.Fatalf("ReadFull() error = %v", err)
	}
	if string(buf) != "2345" {
		t.Fatalf("read %q, want %q", buf, "2345")
	}
	if got := requests.Load(); got != 2 {
		t.Fatalf("seek below mark triggered %d requests, want 2", got)
	}
}

func TestDigestVerification(t *testing.T) {
	data := []byte("verified content payload")
	server, _ := serve(t, data)

	s, err := cellhttp.Open(server.URL, cellhttp.WithExpectedDigest(digest.FromBytes(data)))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	got, err := io.ReadAll(s)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("ReadAll() = %q, want %q", got, data)
	}
}

func TestDigestMismatch(t *testing.T) {
	server, _ := serve(t, []byte("tampered content"))

	s, err := cellhttp.Open(server.URL, cellhttp.WithExpectedDigest(digest.FromString("something else")))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	_, err = io.ReadAll(s)
	if !errors.Is(err, cellhttp.ErrDigestMismatch) {
		t.Fatalf("ReadAll() error = %v, want ErrDigestMismatch", err)
	}
	if !errors.Is(err, cellio.ErrTransport) {
		t.Fatalf("ReadAll() error = %v, want ErrTransport in chain", err)
	}
}

func TestRequestFailure(t *testing.T) {
	server := httptest.NewServer(nethttp.NotFoundHandler())
	t.Cleanup(server.Close)

	_, err := cellhttp.Open(server.URL)
	if !errors.Is(err, cellio.ErrTransport) {
		t.Fatalf("Open() error = %v, want ErrTransport", err)
	}
}

func TestUnsupportedLocator(t *testing.T) {
	_, err := cellhttp.NewSource("ftp://example.com/x")
	if !errors.Is(err, cellio.ErrUnsupportedLocator) {
		t.Fatalf("NewSource() error = %v, want ErrUnsupportedLocator", err)
	}
}

func TestBareHostAccepted(t *testing.T) {
	if _, err := cellhttp.NewSource("example.com/data"); err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	if !cellhttp.Supports("https://example.com/data") {
		t.Fatal("Supports(https) = false, want true")
	}
	if cellhttp.Supports("ftp://example.com/data") {
		t.Fatal("Supports(ftp) = true, want false")
	}
}

func TestCustomHeaders(t *testing.T) {
	data := []byte("header test")
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Header.Get("Authorization") != "Bearer token" {
			w.WriteHeader(nethttp.StatusUnauthorized)
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(server.Close)

	s, err := cellhttp.Open(server.URL, cellhttp.WithHeader("Authorization", "Bearer token"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	got, err := io.ReadAll(s)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("ReadAll() = %q, want %q", got, data)
	}
}

func TestRegisteredScheme(t *testing.T) {
	data := []byte("registry dispatch")
	server, _ := serve(t, data)

	s, err := cellio.Open(server.URL)
	if err != nil {
		t.Fatalf("cellio.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	got, err := io.ReadAll(s)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("ReadAll() = %q, want %q", got, data)
	}
}
