package astipipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFrameChannelSendReceive(t *testing.T) {
	fc := newFrameChannel()

	// Nothing to receive yet
	_, ok, finished := fc.receive(time.Millisecond)
	require.False(t, ok)
	require.False(t, finished)

	// Send and receive
	f := &Frame{Pts: 1}
	require.True(t, fc.send(FrameBox{Frame: f}))
	b, ok, finished := fc.receive(time.Millisecond)
	require.True(t, ok)
	require.False(t, finished)
	require.Same(t, f, b.Frame)
}

func TestFrameChannelBackpressure(t *testing.T) {
	fc := newFrameChannel()

	// Fill the buffer
	for i := 0; i < frameChannelCapacity; i++ {
		require.True(t, fc.send(FrameBox{Frame: &Frame{Pts: int64(i)}}))
	}

	// Next send blocks until the receiver makes room
	sent := make(chan bool)
	go func() { sent <- fc.send(FrameBox{Frame: &Frame{Pts: int64(frameChannelCapacity)}}) }()
	select {
	case <-sent:
		t.Fatal("send should have blocked")
	case <-time.After(10 * time.Millisecond):
	}
	_, ok, _ := fc.receive(time.Millisecond)
	require.True(t, ok)
	require.True(t, <-sent)
}

func TestFrameChannelClose(t *testing.T) {
	fc := newFrameChannel()
	require.True(t, fc.send(FrameBox{Frame: &Frame{Pts: 1}}))
	fc.close()
	fc.close()

	// Buffered boxes are still delivered after close
	b, ok, finished := fc.receive(time.Millisecond)
	require.True(t, ok)
	require.False(t, finished)
	require.Equal(t, int64(1), b.Frame.Pts)

	// Then the channel reports finished
	_, ok, finished = fc.receive(time.Millisecond)
	require.False(t, ok)
	require.True(t, finished)
}

func TestFrameChannelDisconnect(t *testing.T) {
	fc := newFrameChannel()
	require.False(t, fc.disconnected())
	fc.disconnect()
	fc.disconnect()
	require.True(t, fc.disconnected())

	// Sends to a disconnected channel fail without blocking, even when the
	// buffer is full
	for i := 0; i < frameChannelCapacity+1; i++ {
		require.False(t, fc.send(FrameBox{Frame: &Frame{}}))
	}
}
