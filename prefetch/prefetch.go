// Package prefetch loads many equal-sized planes of a dataset
// concurrently.
//
// Streams are single-owner, so parallelism comes from independent
// streams: every worker constructs its own fetcher (and therefore its
// own connection) and planes are distributed across workers. Distinct
// planes decode into disjoint ranges of the destination array, so no
// locking of the destination is needed.
package prefetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/voxelio/cellio"
	"github.com/voxelio/cellio/pixel"
)

// Fetcher produces the raw bytes of one plane at a time. A fetcher is
// owned by a single worker; implementations need not be safe for
// concurrent use. The returned buffer is only valid until the next
// FetchPlane call.
type Fetcher interface {
	FetchPlane(planeIndex int) ([]byte, error)
	io.Closer
}

// NewFetcherFunc constructs an independent Fetcher for one worker.
type NewFetcherFunc func() (Fetcher, error)

type config struct {
	workers int
	logger  *slog.Logger
}

// Option configures a prefetch run.
type Option func(*config)

// WithWorkers sets the number of workers. Values < 0 force serial
// execution. Zero uses GOMAXPROCS. Values > 0 force a fixed count.
func WithWorkers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

// WithLogger sets the logger. If nil, a discard logger is used (default
// behavior).
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// Planes fills dst with planes [0, planes) decoded as element type T,
// fetching raw bytes through per-worker fetchers and looking up each
// plane's layout through meta. The first failure cancels outstanding
// work and is returned.
func Planes[T pixel.Element](ctx context.Context, dst []T, planes int, newFetcher NewFetcherFunc, meta pixel.Metadata, opts ...Option) error {
	cfg := config{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	if planes <= 0 {
		return nil
	}

	workers := cfg.workers
	switch {
	case workers < 0:
		workers = 1
	case workers == 0:
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > planes {
		workers = planes
	}
	log := cfg.logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	log.Debug("prefetching planes", "planes", planes, "workers", workers)

	loader := pixel.NewLoader[T](meta)
	g, ctx := errgroup.WithContext(ctx)

	indices := make(chan int)
	g.Go(func() error {
		defer close(indices)
		for i := 0; i < planes; i++ {
			select {
			case indices <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			f, err := newFetcher()
			if err != nil {
				return fmt.Errorf("prefetch: fetcher: %w", err)
			}
			defer f.Close()
			for idx := range indices {
				raw, err := f.FetchPlane(idx)
				if err != nil {
					return fmt.Errorf("prefetch: plane %d: %w", idx, err)
				}
				if err := loader.Convert(dst, raw, idx); err != nil {
					return fmt.Errorf("prefetch: plane %d: %w", idx, err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// StreamFetcher reads fixed-size planes from a buffered stream. The
// internal buffer is reused across fetches.
type StreamFetcher struct {
	stream     *cellio.Stream
	planeBytes int
	offsetOf   func(planeIndex int) int64
	buf        []byte
}

// NewStreamFetcher returns a NewFetcherFunc that opens one stream per
// worker through the scheme registry. planeBytes is the raw byte size of
// one plane; offsetOf maps a plane index to its absolute byte offset,
// or nil when planes are packed contiguously from offset zero.
func NewStreamFetcher(locator string, planeBytes int, offsetOf func(planeIndex int) int64) NewFetcherFunc {
	return func() (Fetcher, error) {
		s, err := cellio.Open(locator)
		if err != nil {
			return nil, err
		}
		return &StreamFetcher{stream: s, planeBytes: planeBytes, offsetOf: offsetOf}, nil
	}
}

// FetchPlane seeks to the plane's offset and reads it in full.
func (f *StreamFetcher) FetchPlane(planeIndex int) ([]byte, error) {
	off := int64(planeIndex) * int64(f.planeBytes)
	if f.offsetOf != nil {
		off = f.offsetOf(planeIndex)
	}
	if err := f.stream.Seek(off); err != nil {
		return nil, err
	}
	if f.buf == nil {
		f.buf = make([]byte, f.planeBytes)
	}
	if _, err := io.ReadFull(f.stream, f.buf); err != nil {
		return nil, err
	}
	return f.buf, nil
}

// Close releases the underlying stream.
func (f *StreamFetcher) Close() error {
	return f.stream.Close()
}
