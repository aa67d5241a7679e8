package main

import (
	"context"
	"fmt"
	"time"

	"github.com/asticode/go-astikit"
	"github.com/asticode/go-astilog"
	"github.com/asticode/go-astipipeline/pkg/astipipeline"
	"github.com/asticode/go-astipipeline/pkg/astipipeline/mocks"
	"github.com/asticode/go-astipipeline/pkg/stats/psutil"
)

var l = astilog.New(astilog.Configuration{})

func main() {
	hs, err := psutil.New()
	if err != nil {
		l.Fatal(err)
	}

	w := astikit.NewWorker(astikit.WorkerOptions{Logger: l})
	w.HandleSignals(astikit.TermSignalHandler(w.Stop))

	s := astipipeline.NewScheduler(astipipeline.SchedulerOptions{
		ContextAdapters: astipipeline.SchedulerContextAdaptersOptions{
			Demuxer: func(ctx context.Context, s *astipipeline.Scheduler, d *astipipeline.Demuxer) context.Context {
				return astilog.ContextWithFields(ctx, map[string]interface{}{
					"demuxer":   d.String(),
					"scheduler": s.String(),
				})
			},
			Muxer: func(ctx context.Context, s *astipipeline.Scheduler, m *astipipeline.Muxer) context.Context {
				return astilog.ContextWithFields(ctx, map[string]interface{}{
					"muxer":     m.String(),
					"scheduler": s.String(),
				})
			},
			Scheduler: func(ctx context.Context, s *astipipeline.Scheduler) context.Context {
				return astilog.ContextWithFields(ctx, map[string]interface{}{
					"scheduler": s.String(),
				})
			},
		},
		Logger: l,
		Metadata: astipipeline.Metadata{
			Description: "Scheduler description",
			Name:        "Scheduler",
		},
		Stats: []astikit.StatOptions{hs},
	})
	defer s.Close() //nolint: errcheck

	// Synthetic source: one video stream and one audio stream
	vs := astipipeline.Stream{
		FrameRate: astipipeline.NewRational(25, 1),
		Index:     0,
		LinkLabel: "0:v",
		MediaType: astipipeline.MediaTypeVideo,
		TimeBase:  astipipeline.NewRational(1, 25),
	}
	as := astipipeline.Stream{
		Index:     1,
		LinkLabel: "1:a",
		MediaType: astipipeline.MediaTypeAudio,
		TimeBase:  astipipeline.NewRational(1, 48000),
	}
	r := mocks.NewMockedSourceReader(vs, as)
	r.OnReadFrame = readFrame

	d, err := s.NewDemuxer(astipipeline.DemuxerOptions{
		Metadata: astipipeline.Metadata{Name: "Synthetic source"},
		Reader:   r,
	})
	if err != nil {
		l.Fatal(err)
	}

	sw := mocks.NewMockedSinkWriter(vs, as)
	sw.OnWriteFrame = func(f *astipipeline.Frame, streamIndex int) error {
		l.Debugf("main: stream %d: pts %d", streamIndex, f.Pts)
		return nil
	}
	m, err := s.NewMuxer(astipipeline.MuxerOptions{
		Metadata: astipipeline.Metadata{Name: "Counting sink"},
		Writer:   sw,
	})
	if err != nil {
		l.Fatal(err)
	}

	// Tag every video frame on its way through
	b := astipipeline.NewFramePipelineBuilder(astipipeline.MediaTypeVideo).
		WithLinkLabel("0:v").
		WithFilter("tag", newTagFrameFilter())
	d.AddFramePipeline(b)

	// Connect both streams
	for _, ds := range d.Streams() {
		es, ok := m.Stream(ds.Index)
		if !ok {
			l.Fatal(fmt.Errorf("main: no sink stream %d", ds.Index))
		}
		s.Connect(ds, es)
	}

	if err = s.Start(w.Context()); err != nil {
		l.Fatal(err)
	}

	// Dump stats periodically
	st := astikit.NewStater(astikit.StaterOptions{
		HandleFunc: func(stats []astikit.StatValue) {
			for _, sv := range stats {
				l.Debugf("main: stat %s: %+v", sv.Name, sv.Value)
			}
		},
		Period: 2 * time.Second,
	})
	st.AddStats(s.Stats()...)
	go st.Start(w.Context())
	defer st.Stop()

	// Exercise pause/resume, then cancel
	go func() {
		astikit.Sleep(w.Context(), 2*time.Second) //nolint: errcheck
		if err := s.Pause(); err != nil {
			l.Error(err)
		}
		astikit.Sleep(w.Context(), 2*time.Second) //nolint: errcheck
		if err := s.Resume(); err != nil {
			l.Error(err)
		}
		astikit.Sleep(w.Context(), 5*time.Second) //nolint: errcheck
		s.Cancel()
	}()

	go func() {
		if err := s.Wait(); err != nil {
			l.Error(err)
		}
		for _, v := range sw.Written(0) {
			l.Debugf("main: written video frame with pts %d", v.Pts)
		}
		w.Stop()
	}()

	w.Wait()
}

var framesCount int64

func readFrame(ctx context.Context) (*astipipeline.Frame, int, error) {
	if err := astikit.Sleep(ctx, 20*time.Millisecond); err != nil {
		return nil, 0, err
	}
	framesCount++
	f := &astipipeline.Frame{Pts: framesCount}
	f.SetData([]byte(fmt.Sprintf("frame %d", framesCount)))
	if framesCount%2 == 0 {
		f.MediaType = astipipeline.MediaTypeAudio
		return f, 1, nil
	}
	f.MediaType = astipipeline.MediaTypeVideo
	return f, 0, nil
}

type tagFrameFilter struct{ count int }

var _ astipipeline.FrameFilter = (*tagFrameFilter)(nil)

func newTagFrameFilter() *tagFrameFilter {
	return &tagFrameFilter{}
}

func (ff *tagFrameFilter) Init(c *astipipeline.FrameFilterContext) error {
	c.Pipeline().SetAttribute("tagged", true)
	return nil
}

func (ff *tagFrameFilter) FilterFrame(f *astipipeline.Frame, c *astipipeline.FrameFilterContext) (*astipipeline.Frame, error) {
	ff.count++
	f.SetData(append(f.Data(), []byte(" [tagged]")...))
	return f, nil
}

func (ff *tagFrameFilter) RequestFrame(c *astipipeline.FrameFilterContext) (*astipipeline.Frame, error) {
	return nil, nil
}

func (ff *tagFrameFilter) Uninit(c *astipipeline.FrameFilterContext) {
	l.Debugf("main: tag filter processed %d frames", ff.count)
}

func (ff *tagFrameFilter) MediaType() astipipeline.MediaType {
	return astipipeline.MediaTypeVideo
}
