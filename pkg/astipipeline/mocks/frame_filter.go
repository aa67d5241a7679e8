package mocks

import (
	"github.com/asticode/go-astipipeline/pkg/astipipeline"
)

type MockedFrameFilter struct {
	OnFilterFrame  func(f *astipipeline.Frame, c *astipipeline.FrameFilterContext) (*astipipeline.Frame, error)
	OnInit         func(c *astipipeline.FrameFilterContext) error
	OnRequestFrame func(c *astipipeline.FrameFilterContext) (*astipipeline.Frame, error)
	OnUninit       func(c *astipipeline.FrameFilterContext)
	T              astipipeline.MediaType
}

var _ astipipeline.FrameFilter = (*MockedFrameFilter)(nil)

func NewMockedFrameFilter(t astipipeline.MediaType) *MockedFrameFilter {
	return &MockedFrameFilter{T: t}
}

func (ff *MockedFrameFilter) Init(c *astipipeline.FrameFilterContext) error {
	if ff.OnInit != nil {
		return ff.OnInit(c)
	}
	return nil
}

func (ff *MockedFrameFilter) FilterFrame(f *astipipeline.Frame, c *astipipeline.FrameFilterContext) (*astipipeline.Frame, error) {
	if ff.OnFilterFrame != nil {
		return ff.OnFilterFrame(f, c)
	}
	return f, nil
}

func (ff *MockedFrameFilter) RequestFrame(c *astipipeline.FrameFilterContext) (*astipipeline.Frame, error) {
	if ff.OnRequestFrame != nil {
		return ff.OnRequestFrame(c)
	}
	return nil, nil
}

func (ff *MockedFrameFilter) Uninit(c *astipipeline.FrameFilterContext) {
	if ff.OnUninit != nil {
		ff.OnUninit(c)
	}
}

func (ff *MockedFrameFilter) MediaType() astipipeline.MediaType {
	return ff.T
}
