// Package testutil provides in-memory forward-only byte sources for
// stream tests.
package testutil

import (
	"errors"
	"io"
	"sync"
)

// StreamSource is an in-memory, forward-only byte source. Each Connect
// yields an independent reader over the backing data; the reader can be
// throttled to small reads, made to fail at a given offset, or made to
// hide the resource length, to exercise the reconnect and partial-read
// paths of a stream.
type StreamSource struct {
	// Chunk caps the bytes returned per Read call (0 = no cap).
	Chunk int

	// HideLength makes Connect report an unknown resource length.
	HideLength bool

	// ConnectErr, when set, makes Connect fail.
	ConnectErr error

	// FailAt injects FailErr once the reader reaches this offset
	// (negative = never).
	FailAt  int
	FailErr error

	mu       sync.Mutex
	data     []byte
	connects int
}

// NewStreamSource returns a source backed by the provided data.
func NewStreamSource(data []byte) *StreamSource {
	return &StreamSource{data: data, FailAt: -1}
}

// Connect implements the forward-only source contract.
func (s *StreamSource) Connect() (io.ReadCloser, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ConnectErr != nil {
		return nil, 0, s.ConnectErr
	}
	s.connects++
	length := int64(len(s.data))
	if s.HideLength {
		length = -1
	}
	return &conn{src: s}, length, nil
}

// Connects returns how many connections have been established.
func (s *StreamSource) Connects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connects
}

type conn struct {
	src    *StreamSource
	off    int
	closed bool
}

func (c *conn) Read(p []byte) (int, error) {
	if c.closed {
		return 0, errors.New("read on closed connection")
	}
	s := c.src
	if s.FailAt >= 0 && c.off >= s.FailAt {
		return 0, s.FailErr
	}
	avail := s.data[c.off:]
	if len(avail) == 0 {
		return 0, io.EOF
	}
	lim := len(p)
	if s.Chunk > 0 && lim > s.Chunk {
		lim = s.Chunk
	}
	if s.FailAt >= 0 && c.off+lim > s.FailAt {
		lim = s.FailAt - c.off
	}
	n := copy(p[:lim], avail)
	c.off += n
	return n, nil
}

func (c *conn) Close() error {
	c.closed = true
	return nil
}
