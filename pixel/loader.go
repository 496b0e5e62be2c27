package pixel

import "fmt"

// Metadata supplies the pixel layout for each plane. Implementations are
// queried fresh on every convert call; results are not cached here, so a
// dataset whose layout varies per plane is handled correctly.
type Metadata interface {
	PlaneMetadata(planeIndex int) (bitsPerPixel int, littleEndian bool, err error)
}

// FixedMetadata is a Metadata reporting the same layout for every plane.
type FixedMetadata struct {
	BitsPerPixel int
	LittleEndian bool
}

// PlaneMetadata implements Metadata.
func (m FixedMetadata) PlaneMetadata(int) (int, bool, error) {
	return m.BitsPerPixel, m.LittleEndian, nil
}

// Loader fills a typed destination array plane by plane, looking up each
// plane's layout through its metadata provider.
type Loader[T Element] struct {
	meta Metadata
}

// NewLoader creates a loader for element type T.
func NewLoader[T Element](meta Metadata) *Loader[T] {
	return &Loader[T]{meta: meta}
}

// Type returns the element tag handled by this loader.
func (l *Loader[T]) Type() Type {
	return TypeOf[T]()
}

// Bits returns the fixed element width in bits.
func (l *Loader[T]) Bits() int {
	return l.Type().Bits()
}

// Convert decodes one plane's raw bytes into dst at the plane's offset.
func (l *Loader[T]) Convert(dst []T, raw []byte, planeIndex int) error {
	bpp, little, err := l.meta.PlaneMetadata(planeIndex)
	if err != nil {
		return fmt.Errorf("pixel: plane %d metadata: %w", planeIndex, err)
	}
	return Convert(dst, raw, planeIndex, bpp, little)
}
