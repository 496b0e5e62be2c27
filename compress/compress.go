// Package compress wraps cellio sources with transparent decompression.
//
// A wrapped source decompresses on the fly as the connection streams, so
// the stream layered on top seeks over decompressed offsets. Reconnects
// replay the compressed stream from the start; the decompressed length is
// unknown up front.
package compress

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/voxelio/cellio"
)

// Gzip wraps src so connections stream gzip-decompressed bytes.
func Gzip(src cellio.Source) cellio.Source {
	return gzipSource{src: src}
}

// Zstd wraps src so connections stream zstd-decompressed bytes.
func Zstd(src cellio.Source) cellio.Source {
	return zstdSource{src: src}
}

// ForPath wraps src according to the locator's suffix (.gz/.gzip,
// .zst/.zstd) and returns it unchanged for anything else.
func ForPath(src cellio.Source, locator string) cellio.Source {
	switch strings.ToLower(path.Ext(locator)) {
	case ".gz", ".gzip":
		return Gzip(src)
	case ".zst", ".zstd":
		return Zstd(src)
	default:
		return src
	}
}

type gzipSource struct {
	src cellio.Source
}

func (g gzipSource) Connect() (io.ReadCloser, int64, error) {
	rc, _, err := g.src.Connect()
	if err != nil {
		return nil, 0, err
	}
	zr, err := gzip.NewReader(rc)
	if err != nil {
		_ = rc.Close()
		return nil, 0, fmt.Errorf("compress: gzip: %w", err)
	}
	return &layered{outer: zr, inner: rc}, cellio.UnknownLength, nil
}

type zstdSource struct {
	src cellio.Source
}

func (z zstdSource) Connect() (io.ReadCloser, int64, error) {
	rc, _, err := z.src.Connect()
	if err != nil {
		return nil, 0, err
	}
	dec, err := zstd.NewReader(rc)
	if err != nil {
		_ = rc.Close()
		return nil, 0, fmt.Errorf("compress: zstd: %w", err)
	}
	return &layered{outer: dec.IOReadCloser(), inner: rc}, cellio.UnknownLength, nil
}

// layered closes the decompressor and then the underlying connection.
type layered struct {
	outer io.ReadCloser
	inner io.ReadCloser
}

func (l *layered) Read(p []byte) (int, error) {
	return l.outer.Read(p)
}

func (l *layered) Close() error {
	err := l.outer.Close()
	if cerr := l.inner.Close(); err == nil {
		err = cerr
	}
	return err
}
