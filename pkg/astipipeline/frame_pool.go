package astipipeline

import (
	"sync"
	"sync/atomic"

	"github.com/asticode/go-astikit"
)

// framePool recycles frame envelopes so that the per-frame hot path doesn't
// allocate. Payload storage is shared through Ref and reclaimed by the
// garbage collector once the last reference is dropped.
type framePool struct {
	cs *framePoolCumulativeStats
	fs []*Frame
	mf sync.Mutex // Locks fs
}

type framePoolCumulativeStats struct {
	allocatedFrames uint64
	copiedFrames    uint64
}

func newFramePool() *framePool {
	return &framePool{cs: &framePoolCumulativeStats{}}
}

func (fp *framePool) get() (f *Frame) {
	// Lock
	fp.mf.Lock()
	defer fp.mf.Unlock()

	// Pool is empty
	if len(fp.fs) == 0 {
		// Allocate frame
		f = &Frame{}

		// Increment allocated frames
		atomic.AddUint64(&fp.cs.allocatedFrames, 1)
		return
	}

	// Use first frame in pool
	f = fp.fs[0]
	fp.fs = fp.fs[1:]
	return
}

func (fp *framePool) put(f *Frame) {
	// Lock
	fp.mf.Lock()
	defer fp.mf.Unlock()

	// Unref
	f.Unref()

	// Append
	fp.fs = append(fp.fs, f)
}

// copy returns a duplicate of src sharing its payload storage. When src
// carries properties only, properties only are copied.
func (fp *framePool) copy(src *Frame) (f *Frame) {
	f = fp.get()
	if src.HasData() {
		f.Ref(src)
	} else {
		f.CopyProps(src)
	}
	atomic.AddUint64(&fp.cs.copiedFrames, 1)
	return
}

func (fp *framePool) stats() []astikit.StatOptions {
	return []astikit.StatOptions{
		{
			Metadata: &astikit.StatMetadata{
				Description: "Number of allocated frames",
				Label:       "Allocated frames",
				Name:        StatNameAllocatedFrames,
				Unit:        "f",
			},
			Valuer: newAtomicUint64CumulativeStat(&fp.cs.allocatedFrames),
		},
		{
			Metadata: &astikit.StatMetadata{
				Description: "Number of copied frames",
				Label:       "Copied frames",
				Name:        StatNameCopiedFrames,
				Unit:        "f",
			},
			Valuer: newAtomicUint64CumulativeStat(&fp.cs.copiedFrames),
		},
	}
}
