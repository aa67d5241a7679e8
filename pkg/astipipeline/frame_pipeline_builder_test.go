package astipipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFramePipelineBuilder(t *testing.T) {
	b := NewFramePipelineBuilder(MediaTypeVideo)
	require.True(t, b.empty())
	require.Equal(t, MediaTypeVideo, b.MediaType())

	b.WithFilter("f1", newTestFrameFilter(MediaTypeVideo)).
		WithFilter("f2", newTestFrameFilter(MediaTypeVideo)).
		WithLinkLabel("0:v")
	require.False(t, b.empty())

	// Filters end up in declaration order
	p := b.build(3, "0:v")
	require.Equal(t, 3, p.StreamIndex())
	require.Equal(t, "0:v", p.LinkLabel())
	require.Equal(t, MediaTypeVideo, p.MediaType())
	requireChainNames(t, p, []string{"f1", "f2"})

	// Media type mismatch
	require.Panics(t, func() { b.WithFilter("f3", newTestFrameFilter(MediaTypeAudio)) })
	require.Panics(t, func() { b.WithFilter("f1", newTestFrameFilter(MediaTypeVideo)) })
}
