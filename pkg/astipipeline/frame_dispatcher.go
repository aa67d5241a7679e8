package astipipeline

import (
	"sync/atomic"

	"github.com/asticode/go-astikit"
)

// frameDispatcher fans one processed box out to every destination of a stage.
// The first n-1 sends use pool duplicates sharing the original's payload
// storage, only the last send moves the original, so the common
// single-destination path never duplicates. A destination that disconnected
// is removed from the set, never treated as an error.
type frameDispatcher struct {
	cs *frameDispatcherCumulativeStats
	fp *framePool
}

type frameDispatcherCumulativeStats struct {
	outgoingFrames uint64
}

func newFrameDispatcher(fp *framePool) *frameDispatcher {
	return &frameDispatcher{
		cs: &frameDispatcherCumulativeStats{},
		fp: fp,
	}
}

// dispatch sends b to every destination and returns the destinations still
// connected. When no destination remains, the frame is recycled.
func (fd *frameDispatcher) dispatch(b FrameBox, dsts []*frameChannel) []*frameChannel {
	// No destinations
	if len(dsts) == 0 {
		fd.fp.put(b.Frame)
		return dsts
	}

	// Loop through destinations
	remaining := dsts[:0]
	for i, dst := range dsts {
		if i < len(dsts)-1 {
			// Duplicate for all but the last destination
			d := FrameBox{
				Frame:     fd.fp.copy(b.Frame),
				FrameData: b.FrameData,
			}
			if !dst.send(d) {
				fd.fp.put(d.Frame)
				continue
			}
		} else {
			// Move the original to the last destination
			if !dst.send(b) {
				fd.fp.put(b.Frame)
				continue
			}
		}
		atomic.AddUint64(&fd.cs.outgoingFrames, 1)
		remaining = append(remaining, dst)
	}
	return remaining
}

func (fd *frameDispatcher) stats() []astikit.StatOptions {
	return []astikit.StatOptions{
		{
			Metadata: &astikit.StatMetadata{
				Description: "Number of frames going out per second",
				Label:       "Outgoing rate",
				Name:        StatNameOutgoingRate,
				Unit:        "fps",
			},
			Valuer: astikit.NewAtomicUint64RateStat(&fd.cs.outgoingFrames),
		},
	}
}
