package astipipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMediaType(t *testing.T) {
	require.Equal(t, "audio", MediaTypeAudio.String())
	require.Equal(t, "subtitle", MediaTypeSubtitle.String())
	require.Equal(t, "video", MediaTypeVideo.String())
	require.Equal(t, "unknown", MediaTypeUnknown.String())
	require.Equal(t, "a", MediaTypeAudio.symbol())
	require.Equal(t, "s", MediaTypeSubtitle.symbol())
	require.Equal(t, "v", MediaTypeVideo.symbol())
	require.Equal(t, "u", MediaTypeUnknown.symbol())
}

func TestRational(t *testing.T) {
	r := NewRational(1, 25)
	require.Equal(t, "1/25", r.String())
	require.Equal(t, 0.04, r.Float64())
	require.Equal(t, 0.0, Rational{}.Float64())
}

func TestStatus(t *testing.T) {
	require.Equal(t, "created", StatusCreated.String())
	require.Equal(t, "running", StatusRunning.String())
	require.Equal(t, "paused", StatusPaused.String())
	require.Equal(t, "ending", StatusEnding.String())
	require.Equal(t, "done", StatusDone.String())
}

func TestMetadata(t *testing.T) {
	m1 := Metadata{
		Description: "d1",
		Name:        "n1",
		Tags:        []string{"t1"},
	}
	m1.Merge(Metadata{Description: "d2"})
	require.Equal(t, "d2", m1.Description)
	m1.Merge(Metadata{Name: "n2"})
	require.Equal(t, "n2", m1.Name)
	m1.Merge(Metadata{Tags: []string{"t1", "t2"}})
	require.Equal(t, []string{"t1", "t2"}, m1.Tags)
}
