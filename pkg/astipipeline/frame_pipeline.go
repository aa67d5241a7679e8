package astipipeline

import "fmt"

// FramePipeline is the ordered, runtime-mutable sequence of filters attached
// to one stream. It's built by its owning worker goroutine right before that
// goroutine starts pumping frames and must only be mutated from it; callers
// needing cross-goroutine edits must hand off through the owning worker.
type FramePipeline struct {
	attributes  map[string]interface{}
	head, tail  *FrameFilterContext
	linkLabel   string
	mediaType   MediaType
	streamIndex int
}

func newFramePipeline(streamIndex int, linkLabel string, t MediaType) *FramePipeline {
	return &FramePipeline{
		attributes:  make(map[string]interface{}),
		linkLabel:   linkLabel,
		mediaType:   t,
		streamIndex: streamIndex,
	}
}

func (p *FramePipeline) StreamIndex() int {
	return p.streamIndex
}

func (p *FramePipeline) LinkLabel() string {
	return p.linkLabel
}

func (p *FramePipeline) MediaType() MediaType {
	return p.mediaType
}

func (p *FramePipeline) String() string {
	if p.linkLabel != "" {
		return fmt.Sprintf("frame_pipeline_%s_%s", p.mediaType.symbol(), p.linkLabel)
	}
	return fmt.Sprintf("frame_pipeline_%s_%d", p.mediaType.symbol(), p.streamIndex)
}

// All filters of one pipeline must share the pipeline's media type
func (p *FramePipeline) assertMediaType(ff FrameFilter) {
	if ff.MediaType() != p.mediaType {
		panic(fmt.Sprintf("astipipeline: invalid filter media type %s, expected %s", ff.MediaType(), p.mediaType))
	}
}

func (p *FramePipeline) First() *FrameFilterContext {
	return p.head
}

func (p *FramePipeline) Last() *FrameFilterContext {
	return p.tail
}

// AddFirst prepends a filter. It returns false when a context already
// carries that name: names are unique within a chain since Find, Remove and
// Replace address contexts by name.
func (p *FramePipeline) AddFirst(name string, ff FrameFilter) bool {
	// Check media type
	p.assertMediaType(ff)

	// Name is taken
	if p.Find(name) != nil {
		return false
	}

	// Create context
	c := newFrameFilterContext(name, ff, p)

	// Link to previous head
	if p.head != nil {
		p.head.prev = c
		c.next = p.head
	}

	// Update head
	p.head = c

	// First context is both head and tail
	if p.tail == nil {
		p.tail = c
	}
	return true
}

// AddLast appends a filter. It returns false when a context already carries
// that name.
func (p *FramePipeline) AddLast(name string, ff FrameFilter) bool {
	// Check media type
	p.assertMediaType(ff)

	// Name is taken
	if p.Find(name) != nil {
		return false
	}

	// Create context
	c := newFrameFilterContext(name, ff, p)

	// Link to previous tail
	if p.tail != nil {
		p.tail.next = c
		c.prev = p.tail
	}

	// Update tail
	p.tail = c

	// First context is both head and tail
	if p.head == nil {
		p.head = c
	}
	return true
}

// AddBefore inserts a filter before the context named base. It returns false
// when no context carries the base name or when name is already taken.
func (p *FramePipeline) AddBefore(base, name string, ff FrameFilter) bool {
	// Check media type
	p.assertMediaType(ff)

	// Name is taken
	if p.Find(name) != nil {
		return false
	}

	// Find base
	b := p.Find(base)
	if b == nil {
		return false
	}

	// Splice in
	c := newFrameFilterContext(name, ff, p)
	c.next = b
	c.prev = b.prev
	if b.prev != nil {
		b.prev.next = c
	} else {
		p.head = c
	}
	b.prev = c
	return true
}

// AddAfter inserts a filter after the context named base. It returns false
// when no context carries the base name or when name is already taken.
func (p *FramePipeline) AddAfter(base, name string, ff FrameFilter) bool {
	// Check media type
	p.assertMediaType(ff)

	// Name is taken
	if p.Find(name) != nil {
		return false
	}

	// Find base
	b := p.Find(base)
	if b == nil {
		return false
	}

	// Splice in
	c := newFrameFilterContext(name, ff, p)
	c.prev = b
	c.next = b.next
	if b.next != nil {
		b.next.prev = c
	} else {
		p.tail = c
	}
	b.next = c
	return true
}

// Remove unlinks the context named name and returns its filter so that
// callers may reuse or inspect it. It returns nil when no context carries
// that name.
func (p *FramePipeline) Remove(name string) FrameFilter {
	// Find context
	c := p.Find(name)
	if c == nil {
		return nil
	}

	// Swap a noop filter in before unlinking
	ff := c.takeFilter()

	// Unlink
	if c.prev != nil {
		c.prev.next = c.next
	} else {
		p.head = c.next
	}
	if c.next != nil {
		c.next.prev = c.prev
	} else {
		p.tail = c.prev
	}
	c.prev = nil
	c.next = nil
	return ff
}

// Replace swaps the filter held by the context named old for ff, renaming
// the context to name. It returns the previous filter, or nil when no
// context carries the old name or when name is already taken by another
// context.
func (p *FramePipeline) Replace(old, name string, ff FrameFilter) FrameFilter {
	// Check media type
	p.assertMediaType(ff)

	// Name is taken by another context
	if name != old && p.Find(name) != nil {
		return nil
	}

	// Find context
	c := p.Find(old)
	if c == nil {
		return nil
	}

	// Swap
	previous := c.replaceFilter(ff)
	c.name = name
	return previous
}

func (p *FramePipeline) Find(name string) *FrameFilterContext {
	for c := p.head; c != nil; c = c.next {
		if c.name == name {
			return c
		}
	}
	return nil
}

// SetAttribute stores auxiliary derived state under key, e.g. geometry
// computed by one filter and consumed by another
func (p *FramePipeline) SetAttribute(key string, value interface{}) {
	p.attributes[key] = value
}

// Attribute returns the value stored under key. Callers type-check the value
// with a checked type assertion.
func (p *FramePipeline) Attribute(key string) (interface{}, bool) {
	v, ok := p.attributes[key]
	return v, ok
}

func (p *FramePipeline) DeleteAttribute(key string) {
	delete(p.attributes, key)
}
