package astipipeline

// FrameFilter is one transform stage of a frame pipeline. Implementations are
// user-supplied, the package only sequences their hooks.
//
// FilterFrame is the push path: it receives one frame and returns the frame to
// forward, or nil when the filter absorbed it. RequestFrame is the pull path:
// it lets filters buffering internally drain without new input, returning nil
// when there's nothing more to produce. All hooks are invoked from the
// pipeline's owning goroutine only.
type FrameFilter interface {
	Init(ctx *FrameFilterContext) error
	FilterFrame(f *Frame, ctx *FrameFilterContext) (*Frame, error)
	RequestFrame(ctx *FrameFilterContext) (*Frame, error)
	Uninit(ctx *FrameFilterContext)
	MediaType() MediaType
}

// NoopFrameFilter passes frames through untouched. It's also what Remove
// swaps into a vacated context so that the context never holds no filter.
type NoopFrameFilter struct {
	t MediaType
}

var _ FrameFilter = (*NoopFrameFilter)(nil)

func NewNoopFrameFilter(t MediaType) *NoopFrameFilter {
	return &NoopFrameFilter{t: t}
}

func (ff *NoopFrameFilter) Init(ctx *FrameFilterContext) error { return nil }

func (ff *NoopFrameFilter) FilterFrame(f *Frame, ctx *FrameFilterContext) (*Frame, error) {
	return f, nil
}

func (ff *NoopFrameFilter) RequestFrame(ctx *FrameFilterContext) (*Frame, error) {
	return nil, nil
}

func (ff *NoopFrameFilter) Uninit(ctx *FrameFilterContext) {}

func (ff *NoopFrameFilter) MediaType() MediaType { return ff.t }

// FrameFilterContext is the chain node wrapping one filter. It exposes the
// filter's name and its owning pipeline, which filters may use to access
// attributes or modify the chain structurally, e.g. remove themselves.
type FrameFilterContext struct {
	ff         FrameFilter
	name       string
	p          *FramePipeline
	prev, next *FrameFilterContext
}

func newFrameFilterContext(name string, ff FrameFilter, p *FramePipeline) *FrameFilterContext {
	return &FrameFilterContext{
		ff:   ff,
		name: name,
		p:    p,
	}
}

func (c *FrameFilterContext) Name() string {
	return c.name
}

func (c *FrameFilterContext) Pipeline() *FramePipeline {
	return c.p
}

func (c *FrameFilterContext) filter() FrameFilter {
	return c.ff
}

// takeFilter swaps a noop filter in so that the context never ends up without
// a filter
func (c *FrameFilterContext) takeFilter() FrameFilter {
	ff := c.ff
	c.ff = NewNoopFrameFilter(ff.MediaType())
	return ff
}

func (c *FrameFilterContext) replaceFilter(ff FrameFilter) FrameFilter {
	old := c.ff
	c.ff = ff
	return old
}
