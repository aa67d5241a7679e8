package astipipeline

import "fmt"

// FramePipelineBuilder declares the frame pipeline of one stream. The
// pipeline itself is built by the scheduler's worker goroutine once the
// stream it binds to has been resolved, so that the built pipeline is only
// ever touched by the goroutine owning it.
type FramePipelineBuilder struct {
	filters     []namedFrameFilter
	linkLabel   string
	mediaType   MediaType
	streamIndex *int
}

type namedFrameFilter struct {
	ff   FrameFilter
	name string
}

func NewFramePipelineBuilder(t MediaType) *FramePipelineBuilder {
	return &FramePipelineBuilder{mediaType: t}
}

func (b *FramePipelineBuilder) MediaType() MediaType {
	return b.mediaType
}

// WithStreamIndex binds the pipeline to an explicit stream index
func (b *FramePipelineBuilder) WithStreamIndex(i int) *FramePipelineBuilder {
	b.streamIndex = &i
	return b
}

// WithLinkLabel binds the pipeline to the stream carrying that link label
func (b *FramePipelineBuilder) WithLinkLabel(l string) *FramePipelineBuilder {
	b.linkLabel = l
	return b
}

// WithFilter appends a filter. Filters run in the order they were added and
// their names must be unique within the pipeline.
func (b *FramePipelineBuilder) WithFilter(name string, ff FrameFilter) *FramePipelineBuilder {
	if ff.MediaType() != b.mediaType {
		panic(fmt.Sprintf("astipipeline: invalid filter media type %s, expected %s", ff.MediaType(), b.mediaType))
	}
	for _, f := range b.filters {
		if f.name == name {
			panic(fmt.Sprintf("astipipeline: duplicate filter name %s", name))
		}
	}
	b.filters = append(b.filters, namedFrameFilter{ff: ff, name: name})
	return b
}

func (b *FramePipelineBuilder) empty() bool {
	return len(b.filters) == 0
}

func (b *FramePipelineBuilder) build(streamIndex int, linkLabel string) *FramePipeline {
	p := newFramePipeline(streamIndex, linkLabel, b.mediaType)
	for _, f := range b.filters {
		p.AddLast(f.name, f.ff)
	}
	return p
}
