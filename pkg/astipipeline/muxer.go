package astipipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/asticode/go-astikit"
)

var countMuxer uint64

// SinkWriter is the contract a sink endpoint delegates to
type SinkWriter interface {
	Streams() []Stream
	WriteFrame(f *Frame, streamIndex int) error
}

// Muxer is the sink endpoint: it polls its in-use streams round-robin and
// hands received frames to its writer.
type Muxer struct {
	cs  *muxerCumulativeStats
	ctx context.Context
	gn  *GraphNode
	id  uint64
	md  Metadata
	pbs []*FramePipelineBuilder
	s   *Scheduler
	ss  map[int]*EncoderStream
	w   SinkWriter
}

type muxerCumulativeStats struct {
	incomingFrames  uint64
	processedFrames uint64
}

type MuxerOptions struct {
	Metadata Metadata
	Writer   SinkWriter
}

func (s *Scheduler) NewMuxer(o MuxerOptions) (m *Muxer, err error) {
	// Invalid status
	if st := s.Status(); st != StatusCreated {
		err = fmt.Errorf("astipipeline: invalid status %s", st)
		return
	}

	// No writer
	if o.Writer == nil {
		err = errors.New("astipipeline: no writer provided")
		return
	}

	// Create muxer
	m = &Muxer{
		cs:  &muxerCumulativeStats{},
		ctx: s.ctx,
		gn:  newGraphNode(GraphNodeRoleSink, len(o.Writer.Streams())),
		id:  atomic.AddUint64(&countMuxer, 1),
		s:   s,
		ss:  make(map[int]*EncoderStream),
		w:   o.Writer,
	}

	// Merge metadata
	m.md = Metadata{Name: fmt.Sprintf("muxer_%d", m.id)}
	m.md.Merge(o.Metadata)

	// Create streams
	for _, st := range o.Writer.Streams() {
		if _, ok := m.ss[st.Index]; ok {
			err = fmt.Errorf("astipipeline: duplicate stream index %d", st.Index)
			return
		}
		m.ss[st.Index] = newEncoderStream(st)
	}

	// Adapt context
	if s.o.ContextAdapters.Muxer != nil {
		m.ctx = s.o.ContextAdapters.Muxer(m.ctx, s, m)
	}

	// Store muxer
	s.ms = append(s.ms, m)
	return
}

func (m *Muxer) ID() uint64 {
	return m.id
}

func (m *Muxer) String() string {
	if m.md.Name != fmt.Sprintf("muxer_%d", m.id) {
		return fmt.Sprintf("%s (muxer_%d)", m.md.Name, m.id)
	}
	return m.md.Name
}

func (m *Muxer) Metadata() Metadata {
	return m.md
}

func (m *Muxer) GraphNode() *GraphNode {
	return m.gn
}

// Streams returns the muxer's streams sorted by index
func (m *Muxer) Streams() (ss []*EncoderStream) {
	for _, s := range m.ss {
		ss = append(ss, s)
	}
	sort.Slice(ss, func(i, j int) bool { return ss[i].Index < ss[j].Index })
	return
}

func (m *Muxer) Stream(idx int) (*EncoderStream, bool) {
	s, ok := m.ss[idx]
	return s, ok
}

// AddFramePipeline declares a frame pipeline on the muxer. Its stream
// binding is resolved when the scheduler starts.
func (m *Muxer) AddFramePipeline(b *FramePipelineBuilder) {
	m.pbs = append(m.pbs, b)
}

func (m *Muxer) pipelineBuilders() []*FramePipelineBuilder {
	return m.pbs
}

func (m *Muxer) Stats() []astikit.StatOptions {
	return []astikit.StatOptions{
		{
			Metadata: &astikit.StatMetadata{
				Description: "Number of frames coming in per second",
				Label:       "Incoming rate",
				Name:        StatNameIncomingRate,
				Unit:        "fps",
			},
			Valuer: astikit.NewAtomicUint64RateStat(&m.cs.incomingFrames),
		},
		{
			Metadata: &astikit.StatMetadata{
				Description: "Number of frames processed per second",
				Label:       "Processed rate",
				Name:        StatNameProcessedRate,
				Unit:        "fps",
			},
			Valuer: astikit.NewAtomicUint64RateStat(&m.cs.processedFrames),
		},
	}
}

func (m *Muxer) run(ctx context.Context) error {
	// Disconnect inbound channels on exit so that upstream senders never
	// block forever on a gone receiver
	defer func() {
		for _, es := range m.ss {
			if es.src != nil {
				es.src.disconnect()
			}
		}
	}()

	ss := m.Streams()
	for {
		// Check status
		if st := m.s.waitUntilNotPaused(); st == StatusEnding {
			// Every producer closes its channels on exit, so frames they
			// already delivered are still drained before exiting
			return m.drain(ss)
		}

		// Poll in-use streams round-robin
		active := false
		for _, es := range ss {
			if !es.InUse() || es.finished {
				continue
			}
			active = true

			// Receive frame
			b, ok, finished := es.src.receive(receiveTimeout)
			if finished {
				es.finished = true
				continue
			}
			if !ok {
				continue
			}

			// Write frame
			if err := m.writeFrame(b.Frame, es); err != nil {
				return err
			}
		}

		// All in-use streams are finished
		if !active {
			return nil
		}
	}
}

func (m *Muxer) writeFrame(f *Frame, es *EncoderStream) error {
	atomic.AddUint64(&m.cs.incomingFrames, 1)
	err := m.w.WriteFrame(f, es.Index)
	m.s.fp.put(f)
	if err != nil {
		return fmt.Errorf("astipipeline: %s: writing frame failed: %w", m, err)
	}
	atomic.AddUint64(&m.cs.processedFrames, 1)
	return nil
}

// drain empties the in-use streams until their producers have closed them.
// Streams are polled round-robin: a producer blocked sending on any stream
// keeps being serviced until it observes the ending status and exits, so
// waiting on one stream never starves the others.
func (m *Muxer) drain(ss []*EncoderStream) error {
	for {
		active := false
		for _, es := range ss {
			if !es.InUse() || es.finished {
				continue
			}
			active = true

			// Receive frame
			b, ok, finished := es.src.receive(receiveTimeout)
			if finished {
				es.finished = true
				continue
			}
			if !ok {
				continue
			}

			// Write frame
			if err := m.writeFrame(b.Frame, es); err != nil {
				return err
			}
		}

		// All in-use streams are finished
		if !active {
			return nil
		}
	}
}
