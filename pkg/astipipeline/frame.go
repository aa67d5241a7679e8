package astipipeline

// Frame is one opaque data unit moving through the graph. Its payload storage
// is shared between references: Ref produces a cheap duplicate pointing at
// the same underlying bytes, only properties are copied. A frame may carry
// properties only (no payload), e.g. to signal an EOF timestamp.
type Frame struct {
	data      []byte
	Duration  int64
	MediaType MediaType
	Pts       int64
}

func (f *Frame) Data() []byte {
	return f.data
}

// SetData stores b as the frame's payload. Ownership of b transfers to the
// frame, references made with Ref share it.
func (f *Frame) SetData(b []byte) {
	f.data = b
}

func (f *Frame) HasData() bool {
	return f.data != nil
}

func (f *Frame) CopyProps(src *Frame) {
	f.Duration = src.Duration
	f.MediaType = src.MediaType
	f.Pts = src.Pts
}

// Ref makes f share src's payload storage and copies its properties
func (f *Frame) Ref(src *Frame) {
	f.data = src.data
	f.CopyProps(src)
}

// Unref drops the payload reference and resets properties
func (f *Frame) Unref() {
	f.data = nil
	f.Duration = 0
	f.MediaType = MediaTypeUnknown
	f.Pts = 0
}

// FrameData is the sideband metadata traveling with a frame
type FrameData struct {
	BitsPerRawSample  int
	FrameRate         Rational
	GraphInputIndex   int
	InputStreamHeight int
	InputStreamWidth  int
	SubtitleHeader    []byte
}

// FrameBox is what frame channels transport
type FrameBox struct {
	Frame     *Frame
	FrameData FrameData
}
