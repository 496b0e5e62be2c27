// Package cellio provides seek-capable random access over forward-only
// byte sources, feeding out-of-core, cell-based multidimensional datasets.
//
// Network transports typically expose only forward-streaming reads, while
// dataset decoders need arbitrary seeking, including small backward seeks
// (re-reading a header after a lookahead, revisiting a just-read region).
// [Stream] bridges the two: it keeps a bounded rewind buffer of recently
// streamed bytes so that small backward seeks are served in memory, and
// only re-establishes the connection for seeks that leave the buffered
// window.
//
// Transports plug in through the [Source] interface, which supplies
// connection establishment only; buffering, mark/rewind, and skip logic
// are implemented once in [Stream]. The http and file subpackages provide
// sources for the common locator schemes and register themselves with the
// scheme registry consulted by [Open].
//
// Decoding raw plane bytes into typed element arrays lives in the pixel
// subpackage; concurrent multi-plane loading lives in prefetch.
package cellio

import (
	"errors"
	"io"
)

// Sentinel errors.
var (
	// ErrUnsupportedLocator is returned when no registered source handles
	// the locator's scheme.
	ErrUnsupportedLocator = errors.New("cellio: unsupported locator")

	// ErrSeekOutOfRange is returned when a seek target is negative or
	// beyond the known length of the resource.
	ErrSeekOutOfRange = errors.New("cellio: seek out of range")

	// ErrTransport is returned when the underlying connection fails.
	ErrTransport = errors.New("cellio: transport failure")

	// ErrClosed is returned when an operation is attempted on a closed
	// stream.
	ErrClosed = errors.New("cellio: stream closed")
)

// MaxOverhead is the capacity of the rewind buffer, in bytes. Backward
// seeks landing within the last MaxOverhead streamed bytes are served in
// memory without re-establishing the connection. It is shared by all
// streams; the memory cost is paid per open stream.
const MaxOverhead = 1 << 20

// skipChunk caps a single forward-discard step. The underlying primitive
// only guarantees progress for int32-range counts per call, so larger
// skips loop in bounded steps.
const skipChunk = int64(1<<31 - 1)

// UnknownLength marks a resource whose total byte length is not reported
// by the transport. Callers must tolerate it; seeks on such streams are
// bounds-checked against negative targets only.
const UnknownLength int64 = -1

// Source is the minimal capability a transport must provide: establishing
// a fresh forward-only connection positioned at offset zero.
//
// Connect returns the byte stream and the total resource length, or
// [UnknownLength] when the transport does not report one. Connect may be
// called more than once over the life of a stream; each call must yield an
// independent connection starting at the beginning of the resource.
type Source interface {
	Connect() (rc io.ReadCloser, length int64, err error)
}
