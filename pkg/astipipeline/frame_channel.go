package astipipeline

import (
	"sync"
	"time"
)

// frameChannel is the bounded transport connecting two stages. Sending blocks
// when the buffer is full, which backpressures the upstream stage. The sender
// side closes the channel to signal completion, the receiver side disconnects
// to signal it stopped consuming.
type frameChannel struct {
	c         chan FrameBox
	closeOnce sync.Once
	done      chan struct{}
	doneOnce  sync.Once
}

func newFrameChannel() *frameChannel {
	return &frameChannel{
		c:    make(chan FrameBox, frameChannelCapacity),
		done: make(chan struct{}),
	}
}

// send blocks until the box is delivered or the receiver has disconnected, in
// which case it returns false. A failed send is never an error.
func (fc *frameChannel) send(b FrameBox) bool {
	// Buffering a box on an already disconnected channel would silently
	// lose it
	if fc.disconnected() {
		return false
	}
	select {
	case fc.c <- b:
		return true
	case <-fc.done:
		return false
	}
}

// close signals the receiver that no more boxes will come. Buffered boxes can
// still be received.
func (fc *frameChannel) close() {
	fc.closeOnce.Do(func() { close(fc.c) })
}

// disconnect signals senders that boxes will no longer be consumed
func (fc *frameChannel) disconnect() {
	fc.doneOnce.Do(func() { close(fc.done) })
}

func (fc *frameChannel) disconnected() bool {
	select {
	case <-fc.done:
		return true
	default:
		return false
	}
}

// receive waits at most timeout for a box. finished reports that the sender
// side closed the channel and everything buffered has been drained.
func (fc *frameChannel) receive(timeout time.Duration) (b FrameBox, ok, finished bool) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case b, ok = <-fc.c:
		finished = !ok
		return
	case <-t.C:
		return
	}
}
