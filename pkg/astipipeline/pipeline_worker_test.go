package astipipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestMatchDecoderStream(t *testing.T) {
	ss := []*DecoderStream{
		newDecoderStream(Stream{Index: 0, LinkLabel: "0:v", MediaType: MediaTypeVideo}, 0),
		newDecoderStream(Stream{Index: 1, LinkLabel: "1:a", MediaType: MediaTypeAudio}, 0),
		newDecoderStream(Stream{Index: 2, LinkLabel: "2:a", MediaType: MediaTypeAudio}, 0),
	}

	// By index
	s, err := matchDecoderStream(ss, &FramePipelineBuilder{streamIndex: intPtr(1), linkLabel: "0:v", mediaType: MediaTypeVideo})
	require.NoError(t, err)
	require.Same(t, ss[1], s)
	_, err = matchDecoderStream(ss, &FramePipelineBuilder{streamIndex: intPtr(3)})
	require.ErrorIs(t, err, ErrStreamIndexNotFound)

	// By link label
	s, err = matchDecoderStream(ss, &FramePipelineBuilder{linkLabel: "2:a", mediaType: MediaTypeVideo})
	require.NoError(t, err)
	require.Same(t, ss[2], s)
	_, err = matchDecoderStream(ss, &FramePipelineBuilder{linkLabel: "3:v"})
	require.ErrorIs(t, err, ErrLinkLabelNotFound)

	// By media type: first matching stream wins
	s, err = matchDecoderStream(ss, &FramePipelineBuilder{mediaType: MediaTypeAudio})
	require.NoError(t, err)
	require.Same(t, ss[1], s)
	_, err = matchDecoderStream(ss, &FramePipelineBuilder{mediaType: MediaTypeSubtitle})
	require.ErrorIs(t, err, ErrMediaTypeNotFound)
}

func TestMatchEncoderStream(t *testing.T) {
	ss := []*EncoderStream{
		newEncoderStream(Stream{Index: 0, LinkLabel: "0:v", MediaType: MediaTypeVideo}),
		newEncoderStream(Stream{Index: 1, LinkLabel: "1:a", MediaType: MediaTypeAudio}),
	}

	s, err := matchEncoderStream(ss, &FramePipelineBuilder{streamIndex: intPtr(0)})
	require.NoError(t, err)
	require.Same(t, ss[0], s)
	s, err = matchEncoderStream(ss, &FramePipelineBuilder{linkLabel: "1:a"})
	require.NoError(t, err)
	require.Same(t, ss[1], s)
	s, err = matchEncoderStream(ss, &FramePipelineBuilder{mediaType: MediaTypeVideo})
	require.NoError(t, err)
	require.Same(t, ss[0], s)
	_, err = matchEncoderStream(ss, &FramePipelineBuilder{mediaType: MediaTypeSubtitle})
	require.ErrorIs(t, err, ErrMediaTypeNotFound)
}

// addPtsFrameFilter adds a fixed offset to every frame's pts
type addPtsFrameFilter struct {
	*testFrameFilter
}

func newAddPtsFrameFilter(t MediaType, offset int64) *addPtsFrameFilter {
	ff := &addPtsFrameFilter{testFrameFilter: newTestFrameFilter(t)}
	ff.onFilterFrame = func(f *Frame, c *FrameFilterContext) (*Frame, error) {
		f.Pts += offset
		return f, nil
	}
	return ff
}

func runPipelineWorker(t *testing.T, b *FramePipelineBuilder, fs []*Frame) (*Scheduler, *frameChannel, chan error) {
	s := NewScheduler(SchedulerOptions{})
	src, dst := newFrameChannel(), newFrameChannel()
	w := newPipelineWorker(s, b, "frame_pipeline_test", 0, "", 0, src, []*frameChannel{dst})
	for _, f := range fs {
		require.True(t, src.send(FrameBox{Frame: f}))
	}
	src.close()
	errs := make(chan error, 1)
	go func() { errs <- w.run(context.Background()) }()
	return s, dst, errs
}

func receiveAll(t *testing.T, dst *frameChannel) (fs []*Frame) {
	for {
		b, ok, finished := dst.receive(receiveTimeout)
		if finished {
			return
		}
		if ok {
			fs = append(fs, b.Frame)
		}
	}
}

func TestPipelineWorkerPush(t *testing.T) {
	b := NewFramePipelineBuilder(MediaTypeVideo).
		WithFilter("add1", newAddPtsFrameFilter(MediaTypeVideo, 1)).
		WithFilter("add10", newAddPtsFrameFilter(MediaTypeVideo, 10))
	_, dst, errs := runPipelineWorker(t, b, []*Frame{{Pts: 0}, {Pts: 100}})

	fs := receiveAll(t, dst)
	require.NoError(t, <-errs)
	require.Len(t, fs, 2)
	require.Equal(t, int64(11), fs[0].Pts)
	require.Equal(t, int64(111), fs[1].Pts)
}

func TestPipelineWorkerRequestFrames(t *testing.T) {
	// First filter buffers everything and only gives frames back when asked
	buffering := newTestFrameFilter(MediaTypeVideo)
	var buffered []*Frame
	buffering.onFilterFrame = func(f *Frame, c *FrameFilterContext) (*Frame, error) {
		buffered = append(buffered, f)
		return nil, nil
	}
	buffering.onRequestFrame = func(c *FrameFilterContext) (*Frame, error) {
		if len(buffered) == 0 {
			return nil, nil
		}
		f := buffered[0]
		buffered = buffered[1:]
		return f, nil
	}

	b := NewFramePipelineBuilder(MediaTypeVideo).
		WithFilter("buffer", buffering).
		WithFilter("add1", newAddPtsFrameFilter(MediaTypeVideo, 1))
	_, dst, errs := runPipelineWorker(t, b, []*Frame{{Pts: 1}, {Pts: 2}})

	fs := receiveAll(t, dst)
	require.NoError(t, <-errs)
	require.Len(t, fs, 2)
	require.Equal(t, int64(2), fs[0].Pts)
	require.Equal(t, int64(3), fs[1].Pts)
}

func TestPipelineWorkerSelfRemoval(t *testing.T) {
	// The second filter removes itself on its first frame: that frame skips
	// the rest of the chain, later frames go through the remaining filters
	removing := newAddPtsFrameFilter(MediaTypeVideo, 0)
	removing.onFilterFrame = func(f *Frame, c *FrameFilterContext) (*Frame, error) {
		f.Pts += 10
		c.Pipeline().Remove(c.Name())
		return f, nil
	}

	b := NewFramePipelineBuilder(MediaTypeVideo).
		WithFilter("add1", newAddPtsFrameFilter(MediaTypeVideo, 1)).
		WithFilter("remove", removing).
		WithFilter("add100", newAddPtsFrameFilter(MediaTypeVideo, 100))
	_, dst, errs := runPipelineWorker(t, b, []*Frame{{Pts: 0}, {Pts: 0}})

	fs := receiveAll(t, dst)
	require.NoError(t, <-errs)
	require.Len(t, fs, 2)
	require.Equal(t, int64(11), fs[0].Pts)
	require.Equal(t, int64(101), fs[1].Pts)
}

func TestPipelineWorkerInitFailure(t *testing.T) {
	var inits, uninits []string
	newRecordingFilter := func(name string, initErr error) *testFrameFilter {
		ff := newTestFrameFilter(MediaTypeVideo)
		ff.onInit = func(c *FrameFilterContext) error {
			inits = append(inits, name)
			return initErr
		}
		ff.onUninit = func(c *FrameFilterContext) { uninits = append(uninits, name) }
		return ff
	}

	b := NewFramePipelineBuilder(MediaTypeVideo).
		WithFilter("f1", newRecordingFilter("f1", nil)).
		WithFilter("f2", newRecordingFilter("f2", errors.New("boom"))).
		WithFilter("f3", newRecordingFilter("f3", nil))
	_, dst, errs := runPipelineWorker(t, b, nil)

	err := <-errs
	var ffe *FrameFilterError
	require.ErrorAs(t, err, &ffe)
	require.Equal(t, "f2", ffe.Name)
	require.Equal(t, FrameFilterPhaseInit, ffe.Phase)

	// Only the filters initialized before the failure are uninited
	require.Equal(t, []string{"f1", "f2"}, inits)
	require.Equal(t, []string{"f1"}, uninits)

	// Destinations are released
	_, _, finished := dst.receive(receiveTimeout)
	require.True(t, finished)
}

func TestPipelineWorkerFilterFailure(t *testing.T) {
	failing := newTestFrameFilter(MediaTypeVideo)
	failing.onFilterFrame = func(f *Frame, c *FrameFilterContext) (*Frame, error) {
		return nil, errors.New("boom")
	}
	var uninits []string
	failing.onUninit = func(c *FrameFilterContext) { uninits = append(uninits, c.Name()) }

	b := NewFramePipelineBuilder(MediaTypeVideo).WithFilter("fail", failing)
	_, dst, errs := runPipelineWorker(t, b, []*Frame{{Pts: 1}})

	err := <-errs
	var ffe *FrameFilterError
	require.ErrorAs(t, err, &ffe)
	require.Equal(t, "fail", ffe.Name)
	require.Equal(t, FrameFilterPhaseFilter, ffe.Phase)

	// Filters are uninited and destinations released even on failure
	require.Equal(t, []string{"fail"}, uninits)
	_, _, finished := dst.receive(receiveTimeout)
	require.True(t, finished)
}

func TestPipelineWorkerDisconnectedDst(t *testing.T) {
	b := NewFramePipelineBuilder(MediaTypeVideo).
		WithFilter("add1", newAddPtsFrameFilter(MediaTypeVideo, 1))
	s := NewScheduler(SchedulerOptions{})
	src, dst := newFrameChannel(), newFrameChannel()
	w := newPipelineWorker(s, b, "frame_pipeline_test", 0, "", 0, src, []*frameChannel{dst})

	// The worker exits once its only destination disconnects
	dst.disconnect()
	errs := make(chan error, 1)
	go func() { errs <- w.run(context.Background()) }()
	require.NoError(t, <-errs)
	require.Empty(t, w.dsts)
}
