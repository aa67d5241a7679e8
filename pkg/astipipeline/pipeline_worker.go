package astipipeline

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/asticode/go-astikit"
)

// pipelineWorker runs one frame pipeline: it pulls boxed frames from its
// inbound channel, pushes them through the filter chain and dispatches the
// survivors to its destinations. The pipeline itself is built inside the
// worker goroutine and owned by it alone.
type pipelineWorker struct {
	b               *FramePipelineBuilder
	cs              *pipelineWorkerCumulativeStats
	dsts            []*frameChannel
	fd              *frameDispatcher
	gn              *GraphNode
	graphInputIndex int
	linkLabel       string
	name            string
	s               *Scheduler
	src             *frameChannel
	streamIndex     int
}

type pipelineWorkerCumulativeStats struct {
	incomingFrames uint64
}

func newPipelineWorker(s *Scheduler, b *FramePipelineBuilder, name string, streamIndex int, linkLabel string, graphInputIndex int, src *frameChannel, dsts []*frameChannel) *pipelineWorker {
	return &pipelineWorker{
		b:               b,
		cs:              &pipelineWorkerCumulativeStats{},
		dsts:            dsts,
		fd:              newFrameDispatcher(s.fp),
		gn:              newGraphNode(GraphNodeRoleFilter, 1),
		graphInputIndex: graphInputIndex,
		linkLabel:       linkLabel,
		name:            name,
		s:               s,
		src:             src,
		streamIndex:     streamIndex,
	}
}

// resolveInputPipeline binds a declared pipeline to one of the demuxer's
// streams and splices it between the stream and its current destinations
func (s *Scheduler) resolveInputPipeline(d *Demuxer, b *FramePipelineBuilder) (*pipelineWorker, error) {
	// Nothing to run
	if b.empty() {
		s.l.WarnC(s.ctx, fmt.Sprintf("astipipeline: %s: skipping empty frame pipeline", d))
		return nil, nil
	}

	// Match stream
	ds, err := matchDecoderStream(d.Streams(), b)
	if err != nil {
		return nil, fmt.Errorf("astipipeline: %s: matching stream failed: %w", d, err)
	}

	// Splice: the pipeline takes over the stream's current destinations and
	// becomes its only destination
	fc := newFrameChannel()
	dsts := ds.replaceDsts(fc)
	ds.connect()

	// Create worker
	name := fmt.Sprintf("input_frame_pipeline_%s_%d_%d", ds.MediaType.symbol(), ds.Index, d.ID())
	return newPipelineWorker(s, b, name, ds.Index, ds.LinkLabel, ds.graphInputIndex, fc, dsts), nil
}

// resolveOutputPipeline binds a declared pipeline to one of the muxer's
// streams and splices it between the stream's current source and the stream
func (s *Scheduler) resolveOutputPipeline(m *Muxer, b *FramePipelineBuilder) (*pipelineWorker, error) {
	// Nothing to run
	if b.empty() {
		s.l.WarnC(s.ctx, fmt.Sprintf("astipipeline: %s: skipping empty frame pipeline", m))
		return nil, nil
	}

	// Match stream
	es, err := matchEncoderStream(m.Streams(), b)
	if err != nil {
		return nil, fmt.Errorf("astipipeline: %s: matching stream failed: %w", m, err)
	}

	// Splice: the pipeline takes over the stream's current source and feeds
	// the stream through a new channel
	fc := newFrameChannel()
	src := es.replaceSrc(fc)

	// Create worker
	name := fmt.Sprintf("output_frame_pipeline_%s_%d_%d", es.MediaType.symbol(), es.Index, m.ID())
	return newPipelineWorker(s, b, name, es.Index, es.LinkLabel, 0, src, []*frameChannel{fc}), nil
}

func matchDecoderStream(ss []*DecoderStream, b *FramePipelineBuilder) (*DecoderStream, error) {
	// Match by index
	if b.streamIndex != nil {
		for _, s := range ss {
			if s.Index == *b.streamIndex {
				return s, nil
			}
		}
		return nil, fmt.Errorf("%w: %d", ErrStreamIndexNotFound, *b.streamIndex)
	}

	// Match by link label
	if b.linkLabel != "" {
		for _, s := range ss {
			if s.LinkLabel == b.linkLabel {
				return s, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrLinkLabelNotFound, b.linkLabel)
	}

	// Match first stream of the pipeline's media type
	for _, s := range ss {
		if s.MediaType == b.mediaType {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrMediaTypeNotFound, b.mediaType)
}

func matchEncoderStream(ss []*EncoderStream, b *FramePipelineBuilder) (*EncoderStream, error) {
	// Match by index
	if b.streamIndex != nil {
		for _, s := range ss {
			if s.Index == *b.streamIndex {
				return s, nil
			}
		}
		return nil, fmt.Errorf("%w: %d", ErrStreamIndexNotFound, *b.streamIndex)
	}

	// Match by link label
	if b.linkLabel != "" {
		for _, s := range ss {
			if s.LinkLabel == b.linkLabel {
				return s, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrLinkLabelNotFound, b.linkLabel)
	}

	// Match first stream of the pipeline's media type
	for _, s := range ss {
		if s.MediaType == b.mediaType {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrMediaTypeNotFound, b.mediaType)
}

func (w *pipelineWorker) stats() []astikit.StatOptions {
	ss := []astikit.StatOptions{
		{
			Metadata: &astikit.StatMetadata{
				Description: "Number of frames coming in per second",
				Label:       "Incoming rate",
				Name:        StatNameIncomingRate,
				Unit:        "fps",
			},
			Valuer: astikit.NewAtomicUint64RateStat(&w.cs.incomingFrames),
		},
	}
	return append(ss, w.fd.stats()...)
}

func (w *pipelineWorker) run(ctx context.Context) error {
	// Build the pipeline. From here on it's only ever touched by this
	// goroutine, which is what makes runtime filter mutation safe.
	p := w.b.build(w.streamIndex, w.linkLabel)

	// Release plumbing on exit so that neighbors never block forever on a
	// gone peer
	defer func() {
		if w.src != nil {
			w.src.disconnect()
		}
		for _, dst := range w.dsts {
			dst.close()
		}
	}()

	// Init filters
	if err := w.init(p); err != nil {
		return err
	}
	defer w.uninit(p, nil)

	srcFinished := w.src == nil
	for {
		// Check status
		if st := w.s.waitUntilNotPaused(); st == StatusEnding {
			return nil
		}

		// Receive and push one frame
		pushed := false
		if !srcFinished {
			b, ok, finished := w.src.receive(receiveTimeout)
			if finished {
				srcFinished = true
				w.s.l.DebugC(w.s.ctx, fmt.Sprintf("astipipeline: %s: source is finished", w.name))
			} else if ok {
				pushed = true
				atomic.AddUint64(&w.cs.incomingFrames, 1)
				if err := w.filterFrame(p, b.Frame, p.First()); err != nil {
					return err
				}
			}
		}

		// Drain filters buffering frames internally
		drained, err := w.requestFrames(p)
		if err != nil {
			return err
		}

		// Drop destinations that disconnected without a send attempt
		w.removeDisconnectedDsts()

		// All destinations are gone
		if len(w.dsts) == 0 {
			return nil
		}

		// Upstream is finished and a full drain pass produced nothing more
		if srcFinished && !pushed && !drained {
			return nil
		}
	}
}

func (w *pipelineWorker) init(p *FramePipeline) error {
	for c := p.First(); c != nil; c = c.next {
		if err := c.filter().Init(c); err != nil {
			// Uninit the filters initialized so far
			w.uninit(p, c)
			return newFrameFilterError(c.Name(), FrameFilterPhaseInit, err)
		}
	}
	return nil
}

// uninit walks the chain in order and uninits every filter before until.
// A nil until uninits the whole chain.
func (w *pipelineWorker) uninit(p *FramePipeline, until *FrameFilterContext) {
	for c := p.First(); c != nil && c != until; c = c.next {
		c.filter().Uninit(c)
	}
}

// filterFrame pushes a frame through the chain starting at c. A filter
// returning a nil frame absorbs it. The next context is read after the
// filter ran so that a filter removing itself stops the walk, like the chain
// now reads.
func (w *pipelineWorker) filterFrame(p *FramePipeline, f *Frame, c *FrameFilterContext) error {
	for c != nil && f != nil {
		var err error
		if f, err = c.filter().FilterFrame(f, c); err != nil {
			return newFrameFilterError(c.Name(), FrameFilterPhaseFilter, err)
		}
		c = c.next
	}

	// Absorbed
	if f == nil {
		return nil
	}

	// Dispatch
	w.dsts = w.fd.dispatch(FrameBox{Frame: f, FrameData: FrameData{GraphInputIndex: w.graphInputIndex}}, w.dsts)
	return nil
}

// requestFrames walks the chain head to tail and pulls every pending frame
// out of each filter, pushing pulled frames through the remainder of the
// chain
func (w *pipelineWorker) requestFrames(p *FramePipeline) (produced bool, err error) {
	for c := p.First(); c != nil; c = c.next {
		for {
			var f *Frame
			if f, err = c.filter().RequestFrame(c); err != nil {
				err = newFrameFilterError(c.Name(), FrameFilterPhaseRequest, err)
				return
			}
			if f == nil {
				break
			}
			produced = true
			if err = w.filterFrame(p, f, c.next); err != nil {
				return
			}
		}
	}
	return
}

func (w *pipelineWorker) removeDisconnectedDsts() {
	remaining := w.dsts[:0]
	for _, dst := range w.dsts {
		if !dst.disconnected() {
			remaining = append(remaining, dst)
		}
	}
	w.dsts = remaining
}
