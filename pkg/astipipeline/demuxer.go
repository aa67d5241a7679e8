package astipipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync/atomic"

	"github.com/asticode/go-astikit"
)

var countDemuxer uint64

// SourceReader is the contract a source endpoint delegates to. ReadFrame
// returns the next frame together with the index of the stream it belongs
// to, and io.EOF once the input is exhausted.
type SourceReader interface {
	ReadFrame(ctx context.Context) (*Frame, int, error)
	Streams() []Stream
}

// Demuxer is the source endpoint: it pulls frames from its reader and routes
// them to the destinations of the matching stream.
type Demuxer struct {
	cs  *demuxerCumulativeStats
	ctx context.Context
	fd  *frameDispatcher
	gn  *GraphNode
	id  uint64
	md  Metadata
	pbs []*FramePipelineBuilder
	r   SourceReader
	s   *Scheduler
	ss  map[int]*DecoderStream
}

type demuxerCumulativeStats struct {
	incomingFrames uint64
}

type DemuxerOptions struct {
	Metadata Metadata
	Reader   SourceReader
}

func (s *Scheduler) NewDemuxer(o DemuxerOptions) (d *Demuxer, err error) {
	// Invalid status
	if st := s.Status(); st != StatusCreated {
		err = fmt.Errorf("astipipeline: invalid status %s", st)
		return
	}

	// No reader
	if o.Reader == nil {
		err = errors.New("astipipeline: no reader provided")
		return
	}

	// Create demuxer
	d = &Demuxer{
		cs:  &demuxerCumulativeStats{},
		ctx: s.ctx,
		fd:  newFrameDispatcher(s.fp),
		gn:  newGraphNode(GraphNodeRoleSource, 0),
		id:  atomic.AddUint64(&countDemuxer, 1),
		r:   o.Reader,
		s:   s,
		ss:  make(map[int]*DecoderStream),
	}

	// Merge metadata
	d.md = Metadata{Name: fmt.Sprintf("demuxer_%d", d.id)}
	d.md.Merge(o.Metadata)

	// Create streams. They all carry the demuxer's graph input index, set
	// from its position among the scheduler's sources, so that boxes routed
	// downstream identify which source produced them.
	graphInputIndex := len(s.ds)
	for _, st := range o.Reader.Streams() {
		if _, ok := d.ss[st.Index]; ok {
			err = fmt.Errorf("astipipeline: duplicate stream index %d", st.Index)
			return
		}
		d.ss[st.Index] = newDecoderStream(st, graphInputIndex)
	}

	// Adapt context
	if s.o.ContextAdapters.Demuxer != nil {
		d.ctx = s.o.ContextAdapters.Demuxer(d.ctx, s, d)
	}

	// Store demuxer
	s.ds = append(s.ds, d)
	return
}

func (d *Demuxer) ID() uint64 {
	return d.id
}

func (d *Demuxer) String() string {
	if d.md.Name != fmt.Sprintf("demuxer_%d", d.id) {
		return fmt.Sprintf("%s (demuxer_%d)", d.md.Name, d.id)
	}
	return d.md.Name
}

func (d *Demuxer) Metadata() Metadata {
	return d.md
}

func (d *Demuxer) GraphNode() *GraphNode {
	return d.gn
}

// Streams returns the demuxer's streams sorted by index
func (d *Demuxer) Streams() (ss []*DecoderStream) {
	for _, s := range d.ss {
		ss = append(ss, s)
	}
	sort.Slice(ss, func(i, j int) bool { return ss[i].Index < ss[j].Index })
	return
}

func (d *Demuxer) Stream(idx int) (*DecoderStream, bool) {
	s, ok := d.ss[idx]
	return s, ok
}

// AddFramePipeline declares a frame pipeline on the demuxer. Its stream
// binding is resolved when the scheduler starts.
func (d *Demuxer) AddFramePipeline(b *FramePipelineBuilder) {
	d.pbs = append(d.pbs, b)
}

func (d *Demuxer) pipelineBuilders() []*FramePipelineBuilder {
	return d.pbs
}

func (d *Demuxer) Stats() []astikit.StatOptions {
	ss := []astikit.StatOptions{
		{
			Metadata: &astikit.StatMetadata{
				Description: "Number of frames coming in per second",
				Label:       "Incoming rate",
				Name:        StatNameIncomingRate,
				Unit:        "fps",
			},
			Valuer: astikit.NewAtomicUint64RateStat(&d.cs.incomingFrames),
		},
	}
	return append(ss, d.fd.stats()...)
}

func (d *Demuxer) run(ctx context.Context) error {
	// Close destinations on exit so that downstream workers see this source
	// as finished
	defer func() {
		for _, ds := range d.ss {
			for _, fc := range ds.dsts {
				fc.close()
			}
		}
	}()

	for {
		// Check status
		if st := d.s.waitUntilNotPaused(); st == StatusEnding {
			return nil
		}

		// All destinations are gone
		if !d.hasDsts() {
			return nil
		}

		// Read frame
		f, idx, err := d.r.ReadFrame(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				d.s.l.DebugC(d.ctx, fmt.Sprintf("astipipeline: %s: source is finished", d))
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("astipipeline: %s: reading frame failed: %w", d, err)
		}
		atomic.AddUint64(&d.cs.incomingFrames, 1)

		// Route by stream index. Frames of streams nothing consumes are
		// recycled.
		ds, ok := d.ss[idx]
		if !ok || !ds.InUse() {
			d.s.fp.put(f)
			continue
		}
		ds.dsts = d.fd.dispatch(FrameBox{Frame: f, FrameData: FrameData{GraphInputIndex: ds.graphInputIndex}}, ds.dsts)
	}
}

func (d *Demuxer) hasDsts() bool {
	for _, ds := range d.ss {
		if len(ds.dsts) > 0 {
			return true
		}
	}
	return false
}
