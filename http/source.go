// Package http provides a cellio.Source backed by forward-streaming HTTP
// GET requests.
//
// The transport is modeled as forward-only: every connection is a plain
// GET starting at byte zero, and reconnecting replays the request. Seek
// behavior on top of it comes entirely from cellio.Stream's rewind
// buffering.
package http

import (
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/voxelio/cellio"
)

// ErrDigestMismatch is returned when fully streamed content does not
// match the expected digest.
var ErrDigestMismatch = errors.New("http: content digest mismatch")

// Source implements cellio.Source over HTTP. Each Connect issues a fresh
// GET request; the response body is the forward-only byte stream.
type Source struct {
	url      string
	client   *nethttp.Client
	headers  nethttp.Header
	expected digest.Digest
}

// Option configures a Source.
type Option func(*Source)

// WithClient sets the HTTP client used for requests.
func WithClient(client *nethttp.Client) Option {
	return func(s *Source) {
		s.client = client
	}
}

// WithHeaders sets additional headers on each request.
func WithHeaders(headers nethttp.Header) Option {
	return func(s *Source) {
		if headers == nil {
			return
		}
		s.headers = headers.Clone()
	}
}

// WithHeader sets a single header on each request.
func WithHeader(key, value string) Option {
	return func(s *Source) {
		if s.headers == nil {
			s.headers = make(nethttp.Header)
		}
		s.headers.Set(key, value)
	}
}

// WithExpectedDigest enables content verification. The digest is checked
// whenever a connection is streamed from byte zero to completion; a
// connection abandoned early (e.g. replaced by a reconnecting seek) is
// not verified.
func WithExpectedDigest(d digest.Digest) Option {
	return func(s *Source) {
		s.expected = d
	}
}

// Supports reports whether the locator carries a scheme this source can
// construct from.
func Supports(locator string) bool {
	return strings.HasPrefix(locator, "http:") || strings.HasPrefix(locator, "https:")
}

// NewSource creates a Source for the given locator. Bare host/path
// locators without a scheme are given an http:// prefix; locators with a
// different scheme fail with cellio.ErrUnsupportedLocator.
func NewSource(locator string, opts ...Option) (*Source, error) {
	if !Supports(locator) {
		if strings.Contains(locator, "://") {
			return nil, fmt.Errorf("%w: %q", cellio.ErrUnsupportedLocator, locator)
		}
		locator = "http://" + locator
	}
	s := &Source{
		url:    locator,
		client: nethttp.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = nethttp.DefaultClient
	}
	return s, nil
}

// Open opens a buffered stream over the locator.
func Open(locator string, opts ...Option) (*cellio.Stream, error) {
	src, err := NewSource(locator, opts...)
	if err != nil {
		return nil, err
	}
	return cellio.NewStream(src)
}

// Connect implements cellio.Source. The reported length comes from the
// response Content-Length and is cellio.UnknownLength when the server
// does not provide one.
func (s *Source) Connect() (io.ReadCloser, int64, error) {
	req, err := nethttp.NewRequest(nethttp.MethodGet, s.url, nil)
	if err != nil {
		return nil, 0, err
	}
	for key, values := range s.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "identity")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	if resp.StatusCode != nethttp.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		return nil, 0, fmt.Errorf("http: request failed: %s", resp.Status)
	}

	body := resp.Body
	if s.expected != "" {
		body = newVerifiedBody(resp.Body, s.expected)
	}
	return body, resp.ContentLength, nil
}

// verifiedBody feeds streamed bytes through a digest verifier and checks
// the result once the body is fully consumed.
type verifiedBody struct {
	body     io.ReadCloser
	tee      io.Reader
	verifier digest.Verifier
	expected digest.Digest
}

func newVerifiedBody(body io.ReadCloser, expected digest.Digest) *verifiedBody {
	verifier := expected.Verifier()
	return &verifiedBody{
		body:     body,
		tee:      io.TeeReader(body, verifier),
		verifier: verifier,
		expected: expected,
	}
}

func (v *verifiedBody) Read(p []byte) (int, error) {
	n, err := v.tee.Read(p)
	if errors.Is(err, io.EOF) && !v.verifier.Verified() {
		return n, fmt.Errorf("%w: want %s", ErrDigestMismatch, v.expected)
	}
	return n, err
}

func (v *verifiedBody) Close() error {
	return v.body.Close()
}

func init() {
	opener := func(locator string) (*cellio.Stream, error) {
		return Open(locator)
	}
	cellio.Register("http", opener)
	cellio.Register("https", opener)
}
