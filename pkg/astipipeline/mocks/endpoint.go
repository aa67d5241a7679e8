package mocks

import (
	"context"
	"io"
	"sync"

	"github.com/asticode/go-astipipeline/pkg/astipipeline"
)

// MockedSourceReader serves a fixed set of boxed frames in order and returns
// io.EOF afterwards
type MockedSourceReader struct {
	Frames      []MockedSourceFrame
	OnReadFrame func(ctx context.Context) (*astipipeline.Frame, int, error)
	OnStreams   []astipipeline.Stream
	i           int
}

type MockedSourceFrame struct {
	Frame       *astipipeline.Frame
	StreamIndex int
}

var _ astipipeline.SourceReader = (*MockedSourceReader)(nil)

func NewMockedSourceReader(ss ...astipipeline.Stream) *MockedSourceReader {
	return &MockedSourceReader{OnStreams: ss}
}

func (r *MockedSourceReader) Streams() []astipipeline.Stream {
	return r.OnStreams
}

func (r *MockedSourceReader) ReadFrame(ctx context.Context) (*astipipeline.Frame, int, error) {
	if r.OnReadFrame != nil {
		return r.OnReadFrame(ctx)
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if r.i >= len(r.Frames) {
		return nil, 0, io.EOF
	}
	f := r.Frames[r.i]
	r.i++
	return f.Frame, f.StreamIndex, nil
}

// MockedSinkWriter records written frames per stream index
type MockedSinkWriter struct {
	OnStreams    []astipipeline.Stream
	OnWriteFrame func(f *astipipeline.Frame, streamIndex int) error
	m            sync.Mutex
	written      map[int][]astipipeline.Frame
}

var _ astipipeline.SinkWriter = (*MockedSinkWriter)(nil)

func NewMockedSinkWriter(ss ...astipipeline.Stream) *MockedSinkWriter {
	return &MockedSinkWriter{
		OnStreams: ss,
		written:   make(map[int][]astipipeline.Frame),
	}
}

func (w *MockedSinkWriter) Streams() []astipipeline.Stream {
	return w.OnStreams
}

func (w *MockedSinkWriter) WriteFrame(f *astipipeline.Frame, streamIndex int) error {
	if w.OnWriteFrame != nil {
		return w.OnWriteFrame(f, streamIndex)
	}
	w.m.Lock()
	defer w.m.Unlock()
	w.written[streamIndex] = append(w.written[streamIndex], *f)
	return nil
}

// Written returns a copy of the frames written so far on a stream
func (w *MockedSinkWriter) Written(streamIndex int) []astipipeline.Frame {
	w.m.Lock()
	defer w.m.Unlock()
	fs := make([]astipipeline.Frame, len(w.written[streamIndex]))
	copy(fs, w.written[streamIndex])
	return fs
}
