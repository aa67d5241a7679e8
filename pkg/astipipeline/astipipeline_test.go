package astipipeline

import (
	"fmt"
	"testing"
	"time"

	"github.com/asticode/go-astikit"
	"github.com/stretchr/testify/require"
)

func requireStats(t *testing.T, expected map[string]interface{}, ss []astikit.StatOptions) {
	require.Len(t, ss, len(expected))
	for _, s := range ss {
		v, ok := expected[s.Metadata.Name]
		if !ok {
			require.Fail(t, fmt.Sprintf("stat %s shouldn't be here", s.Metadata.Name))
		}
		require.Equal(t, v, s.Valuer.(astikit.StatValuer).Value(time.Second))
	}
}

type testFrameFilter struct {
	onFilterFrame  func(f *Frame, c *FrameFilterContext) (*Frame, error)
	onInit         func(c *FrameFilterContext) error
	onRequestFrame func(c *FrameFilterContext) (*Frame, error)
	onUninit       func(c *FrameFilterContext)
	t              MediaType
}

var _ FrameFilter = (*testFrameFilter)(nil)

func newTestFrameFilter(t MediaType) *testFrameFilter {
	return &testFrameFilter{t: t}
}

func (ff *testFrameFilter) Init(c *FrameFilterContext) error {
	if ff.onInit != nil {
		return ff.onInit(c)
	}
	return nil
}

func (ff *testFrameFilter) FilterFrame(f *Frame, c *FrameFilterContext) (*Frame, error) {
	if ff.onFilterFrame != nil {
		return ff.onFilterFrame(f, c)
	}
	return f, nil
}

func (ff *testFrameFilter) RequestFrame(c *FrameFilterContext) (*Frame, error) {
	if ff.onRequestFrame != nil {
		return ff.onRequestFrame(c)
	}
	return nil, nil
}

func (ff *testFrameFilter) Uninit(c *FrameFilterContext) {
	if ff.onUninit != nil {
		ff.onUninit(c)
	}
}

func (ff *testFrameFilter) MediaType() MediaType {
	return ff.t
}

// requireChainNames walks the chain head to tail then tail to head and
// checks both walks see the same names
func requireChainNames(t *testing.T, p *FramePipeline, names []string) {
	var forward []string
	for c := p.First(); c != nil; c = c.next {
		forward = append(forward, c.Name())
	}
	require.Equal(t, names, forward)

	var backward []string
	for c := p.Last(); c != nil; c = c.prev {
		backward = append([]string{c.Name()}, backward...)
	}
	require.Equal(t, names, backward)
}
