package astipipeline

import "fmt"

// Stream describes one logical media stream of a source or sink endpoint
type Stream struct {
	Duration int64
	// Device or acceleration hint for the external stage implementation, the
	// package carries it without interpreting it
	HardwareDevice string
	FrameRate      Rational
	Index          int
	LinkLabel      string
	MediaType      MediaType
	TimeBase       Rational
}

func (s Stream) String() string {
	if s.LinkLabel != "" {
		return fmt.Sprintf("%s (stream_%d)", s.LinkLabel, s.Index)
	}
	return fmt.Sprintf("stream_%d", s.Index)
}

// DecoderStream is one stream of a source endpoint. It owns the outbound
// channels carrying its decoded frames and is in use once connected: the
// source endpoint's worker only routes frames to in-use streams.
type DecoderStream struct {
	Stream
	connected       bool
	dsts            []*frameChannel
	graphInputIndex int
}

func newDecoderStream(s Stream, graphInputIndex int) *DecoderStream {
	return &DecoderStream{
		Stream:          s,
		graphInputIndex: graphInputIndex,
	}
}

func (ds *DecoderStream) InUse() bool {
	return ds.connected
}

func (ds *DecoderStream) GraphInputIndex() int {
	return ds.graphInputIndex
}

func (ds *DecoderStream) connect() {
	ds.connected = true
}

func (ds *DecoderStream) addDst(fc *frameChannel) {
	ds.dsts = append(ds.dsts, fc)
	ds.connected = true
}

// replaceDsts points the stream at dst only and returns the previous
// destinations. It's how a frame pipeline splices itself between the raw
// stream and its original consumers.
func (ds *DecoderStream) replaceDsts(dst *frameChannel) []*frameChannel {
	old := ds.dsts
	ds.dsts = []*frameChannel{dst}
	return old
}

// EncoderStream is one stream of a sink endpoint. It owns its single inbound
// channel and is in use iff that channel is populated.
type EncoderStream struct {
	Stream
	finished bool
	src      *frameChannel
}

func newEncoderStream(s Stream) *EncoderStream {
	return &EncoderStream{Stream: s}
}

func (es *EncoderStream) InUse() bool {
	return es.src != nil
}

// setSrc populates the inbound channel. Connecting a stream twice is a no-op.
func (es *EncoderStream) setSrc(fc *frameChannel) {
	if es.src != nil {
		return
	}
	es.src = fc
}

// replaceSrc swaps the inbound channel for src and returns the previous one,
// which is how an output frame pipeline splices itself in front of the
// encoder stream
func (es *EncoderStream) replaceSrc(src *frameChannel) *frameChannel {
	old := es.src
	es.src = src
	return old
}
