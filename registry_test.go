package cellio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxelio/cellio"
	"github.com/voxelio/cellio/internal/testutil"
)

func TestOpenDispatchesByScheme(t *testing.T) {
	data := []byte("registered scheme payload")
	var gotLocator string
	cellio.Register("mem", func(locator string) (*cellio.Stream, error) {
		gotLocator = locator
		return cellio.NewStream(testutil.NewStreamSource(data))
	})

	s, err := cellio.Open("mem://dataset/planes")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	assert.Equal(t, "mem://dataset/planes", gotLocator)
	assert.Equal(t, int64(0), s.Offset())
	assert.Equal(t, int64(len(data)), s.Length())
}

func TestOpenUnsupportedScheme(t *testing.T) {
	t.Parallel()

	_, err := cellio.Open("ftp://example.com/x")
	require.Error(t, err)
	assert.ErrorIs(t, err, cellio.ErrUnsupportedLocator)
}

func TestOpenNoScheme(t *testing.T) {
	t.Parallel()

	_, err := cellio.Open("just-a-path")
	assert.ErrorIs(t, err, cellio.ErrUnsupportedLocator)
}

func TestSupports(t *testing.T) {
	cellio.Register("probe", func(string) (*cellio.Stream, error) {
		return nil, nil
	})

	assert.True(t, cellio.Supports("probe://anything"))
	assert.True(t, cellio.Supports("PROBE://case/insensitive"))
	assert.False(t, cellio.Supports("gopher://example"))
	assert.False(t, cellio.Supports("no-scheme"))
}
