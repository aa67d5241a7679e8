// Package astipipeline runs a directed graph of media-processing stages: a
// source endpoint demuxing/decoding into per-stream channels, runtime-mutable
// frame pipelines and a sink endpoint encoding/muxing. The run is cooperative,
// with shared pause/resume/cancel status and centralized first-error
// propagation.
//
// Codec and container logic live outside the package: stages are provided
// through the SourceReader, SinkWriter and FrameFilter interfaces and the
// package only moves opaque frames between them.
package astipipeline

import (
	"sync/atomic"
	"time"

	"github.com/asticode/go-astikit"
)

const (
	// Number of boxes a frame channel buffers before senders block
	frameChannelCapacity = 8
	// Bounded wait used by workers when receiving so that pause/cancel stay responsive
	receiveTimeout = time.Millisecond
)

const (
	StatNameAllocatedFrames = "astipipeline.allocated.frames"
	StatNameCopiedFrames    = "astipipeline.copied.frames"
	StatNameHostUsage       = "astipipeline.host.usage"
	StatNameIncomingRate    = "astipipeline.incoming.rate"
	StatNameOutgoingRate    = "astipipeline.outgoing.rate"
	StatNameProcessedRate   = "astipipeline.processed.rate"
)

type StatHostUsageValue struct {
	CPU    StatHostCPUUsageValue    `json:"cpu"`
	Memory StatHostMemoryUsageValue `json:"memory"`
}

type StatHostCPUUsageValue struct {
	Individual []float64 `json:"individual"`
	Process    *float64  `json:"process,omitempty"`
	Total      float64   `json:"total"`
}

type StatHostMemoryUsageValue struct {
	Resident uint64 `json:"resident"`
	Total    uint64 `json:"total"`
	Used     uint64 `json:"used"`
	Virtual  uint64 `json:"virtual"`
}

var _ astikit.StatValuer = (*atomicUint64CumulativeStat)(nil)

// atomicUint64CumulativeStat reports a counter's absolute value, astikit
// only ships per-delta valuers
type atomicUint64CumulativeStat struct {
	v *uint64
}

func newAtomicUint64CumulativeStat(v *uint64) *atomicUint64CumulativeStat {
	return &atomicUint64CumulativeStat{v: v}
}

func (s *atomicUint64CumulativeStat) Value(_ time.Duration) interface{} {
	return atomic.LoadUint64(s.v)
}
