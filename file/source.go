// Package file provides a cellio.Source over local files.
//
// Local files are seekable on their own, but exposing them through the
// same forward-only source contract keeps every locator scheme behind one
// stream implementation; reconnecting is a cheap reopen here.
package file

import (
	"io"
	"os"
	"strings"

	"github.com/voxelio/cellio"
)

// Source implements cellio.Source over a local file path.
type Source struct {
	path string
}

// Supports reports whether the locator carries the file scheme.
func Supports(locator string) bool {
	return strings.HasPrefix(locator, "file:")
}

// NewSource creates a Source for a file: locator or a plain path.
func NewSource(locator string) *Source {
	path := locator
	if strings.HasPrefix(path, "file://") {
		path = strings.TrimPrefix(path, "file://")
	} else {
		path = strings.TrimPrefix(path, "file:")
	}
	return &Source{path: path}
}

// Open opens a buffered stream over the locator.
func Open(locator string) (*cellio.Stream, error) {
	return cellio.NewStream(NewSource(locator))
}

// Connect implements cellio.Source. The length comes from Stat for
// regular files and is cellio.UnknownLength otherwise (pipes, devices).
func (s *Source) Connect() (io.ReadCloser, int64, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, 0, err
	}
	length := cellio.UnknownLength
	if info, err := f.Stat(); err == nil && info.Mode().IsRegular() {
		length = info.Size()
	}
	return f, length, nil
}

func init() {
	cellio.Register("file", Open)
}
