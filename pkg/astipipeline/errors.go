package astipipeline

import (
	"errors"
	"fmt"
)

// Binding resolution errors. They're reported before any worker starts and
// abort that pipeline's construction.
var (
	ErrLinkLabelNotFound   = errors.New("astipipeline: link label not found")
	ErrMediaTypeNotFound   = errors.New("astipipeline: no stream with media type")
	ErrStreamIndexNotFound = errors.New("astipipeline: stream index not found")
)

type FrameFilterPhase int

const (
	FrameFilterPhaseInit FrameFilterPhase = iota
	FrameFilterPhaseFilter
	FrameFilterPhaseRequest
	FrameFilterPhaseUninit
)

func (p FrameFilterPhase) String() string {
	switch p {
	case FrameFilterPhaseInit:
		return "init"
	case FrameFilterPhaseFilter:
		return "filter"
	case FrameFilterPhaseRequest:
		return "request"
	default:
		return "uninit"
	}
}

// FrameFilterError wraps a filter hook failure with the originating filter's
// name and the phase it failed in.
type FrameFilterError struct {
	Name  string
	Phase FrameFilterPhase
	err   error
}

func newFrameFilterError(name string, phase FrameFilterPhase, err error) *FrameFilterError {
	return &FrameFilterError{
		Name:  name,
		Phase: phase,
		err:   err,
	}
}

func (e *FrameFilterError) Error() string {
	return fmt.Sprintf("astipipeline: filter %s failed during %s: %s", e.Name, e.Phase, e.err)
}

func (e *FrameFilterError) Unwrap() error {
	return e.err
}
