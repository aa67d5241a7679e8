package astipipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrame(t *testing.T) {
	f1 := &Frame{
		Duration:  2,
		MediaType: MediaTypeVideo,
		Pts:       42,
	}
	require.False(t, f1.HasData())
	f1.SetData([]byte("payload"))
	require.True(t, f1.HasData())

	// Ref shares payload storage
	f2 := &Frame{}
	f2.Ref(f1)
	require.Equal(t, []byte("payload"), f2.Data())
	require.Equal(t, int64(42), f2.Pts)
	require.Equal(t, int64(2), f2.Duration)
	require.Equal(t, MediaTypeVideo, f2.MediaType)
	f1.Data()[0] = 'x'
	require.Equal(t, []byte("xayload"), f2.Data())

	// CopyProps copies properties only
	f3 := &Frame{}
	f3.CopyProps(f1)
	require.False(t, f3.HasData())
	require.Equal(t, int64(42), f3.Pts)

	// Unref resets everything
	f2.Unref()
	require.False(t, f2.HasData())
	require.Equal(t, int64(0), f2.Pts)
	require.Equal(t, int64(0), f2.Duration)
	require.Equal(t, MediaTypeUnknown, f2.MediaType)
	require.True(t, f1.HasData())
}
