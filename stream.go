package cellio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Stream presents a seekable read interface over a forward-only [Source].
//
// A bounded rewind buffer holds the most recently streamed bytes starting
// at the mark. Seeks landing inside the buffered window reposition in
// memory; seeks below the mark re-establish the connection and forward
// seeks past the stream head discard intervening bytes.
//
// A Stream is not safe for concurrent use; position, mark, and the rewind
// buffer form mutable state with ordering dependencies. Independent
// streams over the same resource may operate fully in parallel.
type Stream struct {
	src    Source
	logger *slog.Logger

	rc     io.ReadCloser
	length int64
	pos    int64 // logical read offset exposed to the caller
	mark   int64 // offset of the first byte held in buf
	buf    []byte
	closed bool
}

// Stream implements io.ReadCloser.
var _ io.ReadCloser = (*Stream)(nil)

// StreamOption configures a Stream.
type StreamOption func(*Stream)

// WithLogger sets the logger used for connection lifecycle events.
// If nil, a discard logger is used (default behavior).
func WithLogger(logger *slog.Logger) StreamOption {
	return func(s *Stream) {
		s.logger = logger
	}
}

// NewStream opens a stream over the given source. The connection is
// established immediately and the rewind buffer is primed at offset zero,
// so a new stream always has position and mark both at zero.
func NewStream(src Source, opts ...StreamOption) (*Stream, error) {
	s := &Stream{src: src, length: UnknownLength}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	if err := s.connect(); err != nil {
		return nil, err
	}
	return s, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (s *Stream) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s.logger
}

// connect establishes a fresh connection and primes the rewind buffer at
// offset zero.
func (s *Stream) connect() error {
	rc, length, err := s.src.Connect()
	if err != nil {
		return fmt.Errorf("cellio: connect: %w: %w", ErrTransport, err)
	}
	s.rc = rc
	s.length = length
	s.pos = 0
	s.mark = 0
	s.buf = s.buf[:0]
	s.log().Debug("stream connected", "length", length)
	return nil
}

func (s *Stream) reconnect() error {
	if s.rc != nil {
		_ = s.rc.Close()
	}
	return s.connect()
}

// head returns the transport position: the offset one past the last byte
// streamed from the connection. Invariant: mark <= pos <= head.
func (s *Stream) head() int64 {
	return s.mark + int64(len(s.buf))
}

// Offset returns the current logical read position.
func (s *Stream) Offset() int64 {
	return s.pos
}

// Length returns the total byte length of the resource, or
// [UnknownLength] when the transport does not report one. The length
// becomes known once end-of-resource is observed.
func (s *Stream) Length() int64 {
	return s.length
}

// Read reads up to len(p) bytes, advancing the position. Bytes behind the
// stream head are served from the rewind buffer; the remainder comes from
// the transport. Fewer than len(p) bytes are returned only at
// end-of-resource, signaled with io.EOF.
func (s *Stream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	n := 0
	if s.pos < s.head() {
		n = copy(p, s.buf[s.pos-s.mark:])
		s.pos += int64(n)
		if n == len(p) {
			return n, nil
		}
	}
	k, err := s.rc.Read(p[n:])
	if k > 0 {
		s.retain(p[n : n+k])
		s.pos += int64(k)
		n += k
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			if s.length < 0 {
				s.length = s.head()
			}
			return n, io.EOF
		}
		return n, fmt.Errorf("cellio: read: %w: %w", ErrTransport, err)
	}
	return n, nil
}

// retain appends freshly streamed bytes to the rewind buffer. When the
// window would exceed MaxOverhead the buffer is re-primed: the mark jumps
// past the new bytes and rewinds below it require a reconnect.
func (s *Stream) retain(b []byte) {
	if len(s.buf)+len(b) > MaxOverhead {
		s.buf = s.buf[:0]
		s.mark = s.pos + int64(len(b))
		return
	}
	s.buf = append(s.buf, b...)
}

// Skip advances the logical position by n bytes without returning them.
// The buffered window is consumed first; the rest is discarded from the
// transport in bounded steps, since the underlying primitive only
// guarantees int32-range progress per call. A zero-progress step is
// treated as end-of-resource, reported as io.EOF with the count actually
// skipped.
func (s *Stream) Skip(n int64) (int64, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: skip %d bytes", ErrSeekOutOfRange, n)
	}
	var skipped int64
	if w := s.head() - s.pos; w > 0 {
		d := min(w, n)
		s.pos += d
		skipped += d
	}
	for skipped < n {
		step := min(n-skipped, skipChunk)
		copied, err := io.CopyN(io.Discard, s.rc, step)
		s.pos += copied
		skipped += copied
		// The transport cursor moved past the buffered window; re-prime
		// the rewind buffer at the new position.
		s.mark = s.pos
		s.buf = s.buf[:0]
		if err != nil {
			if errors.Is(err, io.EOF) {
				if s.length < 0 {
					s.length = s.pos
				}
				return skipped, io.EOF
			}
			return skipped, fmt.Errorf("cellio: skip: %w: %w", ErrTransport, err)
		}
		if copied == 0 {
			return skipped, io.EOF
		}
	}
	return skipped, nil
}

// Seek repositions the stream to the absolute offset target.
//
// Targets inside the buffered window [mark, head] reposition in memory
// without touching the transport; target == Offset() is a no-op. Targets
// past the stream head are reached by discarding forward. Targets below
// the mark force a reconnect followed by a forward skip.
//
// Negative targets and targets beyond a known length fail with
// [ErrSeekOutOfRange] before any I/O, leaving position and mark
// unchanged.
func (s *Stream) Seek(target int64) error {
	if s.closed {
		return ErrClosed
	}
	if target < 0 {
		return fmt.Errorf("%w: target %d", ErrSeekOutOfRange, target)
	}
	if s.length >= 0 && target > s.length {
		return fmt.Errorf("%w: target %d beyond length %d", ErrSeekOutOfRange, target, s.length)
	}
	if target == s.pos {
		return nil
	}
	if target >= s.mark && target <= s.head() {
		s.pos = target
		return nil
	}
	if target > s.head() {
		return s.seekForward(target)
	}
	// Below the rewind window: only a fresh connection can get back there.
	s.log().Debug("seek below rewind window", "target", target, "mark", s.mark)
	if err := s.reconnect(); err != nil {
		return err
	}
	return s.seekForward(target)
}

func (s *Stream) seekForward(target int64) error {
	if target == s.pos {
		return nil
	}
	if _, err := s.Skip(target - s.pos); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: target %d beyond end of resource", ErrSeekOutOfRange, target)
		}
		return err
	}
	return nil
}

// Close releases the connection. All further operations, including a
// second Close, fail with [ErrClosed].
func (s *Stream) Close() error {
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	s.buf = nil
	if s.rc == nil {
		return nil
	}
	if err := s.rc.Close(); err != nil {
		return fmt.Errorf("cellio: close: %w: %w", ErrTransport, err)
	}
	return nil
}
