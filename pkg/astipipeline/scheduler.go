package astipipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/asticode/go-astikit"
)

var countScheduler uint64

const (
	EventNameSchedulerDone     astikit.EventName = "astipipeline.scheduler.done"
	EventNameSchedulerEnding   astikit.EventName = "astipipeline.scheduler.ending"
	EventNameSchedulerPaused   astikit.EventName = "astipipeline.scheduler.paused"
	EventNameSchedulerResumed  astikit.EventName = "astipipeline.scheduler.resumed"
	EventNameSchedulerRunning  astikit.EventName = "astipipeline.scheduler.running"
	EventNameSchedulerStarting astikit.EventName = "astipipeline.scheduler.starting"
)

// Scheduler owns the stage graph: it spawns one worker goroutine per source
// endpoint, per sink endpoint and per resolved frame pipeline, and shares
// with all of them a single run status and a single error slot. The status
// and the error slot are the only state mutated by more than one goroutine,
// everything else is owned by the goroutine running that stage.
type Scheduler struct {
	c        *astikit.Closer
	cancel   context.CancelFunc
	ctx      context.Context
	doneOnce sync.Once
	ds       []*Demuxer
	e        *astikit.EventManager
	endOnce  sync.Once
	ended    chan struct{}
	err      error
	fp       *framePool
	id       uint64
	l        astikit.CompleteLogger
	m        sync.Mutex // Locks err and status transitions
	ms       []*Muxer
	o        SchedulerOptions
	pws      []*pipelineWorker
	runCtx   context.Context
	sc       *sync.Cond
	status   uint32
	wg       sync.WaitGroup
}

type SchedulerOptions struct {
	ContextAdapters SchedulerContextAdaptersOptions
	Logger          astikit.StdLogger
	Metadata        Metadata
	Stats           []astikit.StatOptions
}

type SchedulerContextAdaptersOptions struct {
	Demuxer   func(context.Context, *Scheduler, *Demuxer) context.Context
	Muxer     func(context.Context, *Scheduler, *Muxer) context.Context
	Scheduler func(context.Context, *Scheduler) context.Context
}

func NewScheduler(o SchedulerOptions) (s *Scheduler) {
	// Create scheduler
	s = &Scheduler{
		c:     astikit.NewCloser(),
		ctx:   context.Background(),
		e:     astikit.NewEventManager(),
		ended: make(chan struct{}),
		fp:    newFramePool(),
		id:    atomic.AddUint64(&countScheduler, 1),
		l:     astikit.AdaptStdLogger(o.Logger),
		o:     o,
	}
	s.sc = sync.NewCond(&s.m)

	// Adapt context
	if s.o.ContextAdapters.Scheduler != nil {
		s.ctx = s.o.ContextAdapters.Scheduler(s.ctx, s)
	}
	return
}

func (s *Scheduler) ID() uint64 {
	return s.id
}

func (s *Scheduler) String() string {
	if s.Metadata().Name != "" {
		return fmt.Sprintf("%s (scheduler_%d)", s.Metadata().Name, s.id)
	}
	return fmt.Sprintf("scheduler_%d", s.id)
}

func (s *Scheduler) Metadata() Metadata {
	return s.o.Metadata
}

func (s *Scheduler) Logger() astikit.CompleteLogger {
	return s.l
}

func (s *Scheduler) Context() context.Context {
	return s.ctx
}

func (s *Scheduler) Close() error {
	return s.c.Close()
}

func (s *Scheduler) Emit(n astikit.EventName, payload interface{}) {
	s.e.Emit(n, payload)
}

// On registers an event handler and returns its id, which Off takes to
// unregister it
func (s *Scheduler) On(n astikit.EventName, h astikit.EventHandler) uint64 {
	return s.e.On(n, h)
}

func (s *Scheduler) Off(id uint64) {
	s.e.Off(id)
}

// Stats aggregates the configured stats, the frame pool stats and the stats
// of every pipeline worker resolved on start
func (s *Scheduler) Stats() []astikit.StatOptions {
	ss := make([]astikit.StatOptions, len(s.o.Stats))
	copy(ss, s.o.Stats)
	ss = append(ss, s.fp.stats()...)
	for _, w := range s.pws {
		ss = append(ss, w.stats()...)
	}
	return ss
}

func (s *Scheduler) Status() Status {
	return Status(atomic.LoadUint32(&s.status))
}

// Mutex must be locked
func (s *Scheduler) setStatusUnsafe(st Status) {
	atomic.StoreUint32(&s.status, uint32(st))
}

// waitUntilNotPaused blocks cooperatively while the scheduler is paused.
// Workers call it at the top of every iteration.
func (s *Scheduler) waitUntilNotPaused() Status {
	// Fast path
	if st := s.Status(); st != StatusPaused {
		return st
	}

	// Wait for resume or ending
	s.m.Lock()
	defer s.m.Unlock()
	for s.Status() == StatusPaused {
		s.sc.Wait()
	}
	return s.Status()
}

// Connect splices the raw plumbing between a source stream and a sink
// stream. Connecting a sink stream twice is a no-op.
func (s *Scheduler) Connect(src *DecoderStream, dst *EncoderStream) {
	// Already connected
	if dst.InUse() {
		return
	}

	// Create channel
	fc := newFrameChannel()

	// Connect
	src.addDst(fc)
	dst.setSrc(fc)
}

// Start resolves every declared frame pipeline and spawns the workers. A
// binding error aborts before any worker starts.
func (s *Scheduler) Start(ctx context.Context) error {
	// Invalid status
	s.m.Lock()
	if st := s.Status(); st != StatusCreated {
		s.m.Unlock()
		return fmt.Errorf("astipipeline: invalid status %s", st)
	}

	// Check context
	if ctx.Err() != nil {
		s.m.Unlock()
		return ctx.Err()
	}
	s.m.Unlock()

	// Log
	s.l.InfoC(s.ctx, "astipipeline: scheduler is starting")

	// Emit
	s.Emit(EventNameSchedulerStarting, nil)

	// Resolve frame pipelines before any worker starts so that binding
	// errors abort construction
	var pws []*pipelineWorker
	for _, d := range s.ds {
		for _, b := range d.pipelineBuilders() {
			w, err := s.resolveInputPipeline(d, b)
			if err != nil {
				return err
			}
			if w != nil {
				pws = append(pws, w)
			}
		}
	}
	for _, m := range s.ms {
		for _, b := range m.pipelineBuilders() {
			w, err := s.resolveOutputPipeline(m, b)
			if err != nil {
				return err
			}
			if w != nil {
				pws = append(pws, w)
			}
		}
	}
	s.pws = pws

	// Create run context
	s.runCtx, s.cancel = context.WithCancel(ctx)
	s.c.Add(func() { s.cancel() })

	// Update status
	s.m.Lock()
	s.setStatusUnsafe(StatusRunning)
	s.m.Unlock()

	// Log
	s.l.InfoC(s.ctx, "astipipeline: scheduler is running")

	// Emit
	s.Emit(EventNameSchedulerRunning, nil)

	// Watch run context
	go func() {
		<-s.runCtx.Done()
		s.end()
	}()

	// Spawn workers
	for _, d := range s.ds {
		s.spawn(d.gn, d.run)
	}
	for _, m := range s.ms {
		s.spawn(m.gn, m.run)
	}
	for _, w := range s.pws {
		s.spawn(w.gn, w.run)
	}

	// End once every sink worker is done so that sources without remaining
	// consumers stop promptly
	if len(s.ms) > 0 {
		ms := make([]*Muxer, len(s.ms))
		copy(ms, s.ms)
		go func() {
			for _, m := range ms {
				<-m.gn.Done()
			}
			s.end()
		}()
	}
	return nil
}

func (s *Scheduler) spawn(gn *GraphNode, fn func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer gn.markDone()
		if err := fn(s.runCtx); err != nil {
			s.setError(err)
		}
	}()
}

// setError escalates a worker error to the shared error slot. The first
// error wins, later ones are logged and discarded. Either way the run status
// flips to ending.
func (s *Scheduler) setError(err error) {
	s.m.Lock()
	if s.err == nil {
		s.err = err
		s.m.Unlock()
		s.l.ErrorC(s.ctx, fmt.Errorf("astipipeline: worker failed: %w", err))
	} else {
		s.m.Unlock()
		s.l.WarnC(s.ctx, fmt.Errorf("astipipeline: discarding error: %w", err))
	}
	s.end()
}

// end flips the run status to ending exactly once and blocks callers until
// the transition is fully visible, so that the ending event is always
// observed before the done event
func (s *Scheduler) end() {
	// Not started or already done
	s.m.Lock()
	if st := s.Status(); st == StatusCreated || st == StatusDone {
		s.m.Unlock()
		return
	}
	s.m.Unlock()

	s.endOnce.Do(func() {
		// Update status
		s.m.Lock()
		if st := s.Status(); st == StatusRunning || st == StatusPaused {
			s.setStatusUnsafe(StatusEnding)
			s.sc.Broadcast()
		}
		s.m.Unlock()

		// Cancel run context
		if s.cancel != nil {
			s.cancel()
		}

		// Log
		s.l.InfoC(s.ctx, "astipipeline: scheduler is ending")

		// Emit
		s.Emit(EventNameSchedulerEnding, nil)
		close(s.ended)
	})
	<-s.ended
}

func (s *Scheduler) Pause() error {
	// Update status
	s.m.Lock()
	if st := s.Status(); st != StatusRunning {
		s.m.Unlock()
		return fmt.Errorf("astipipeline: invalid status %s", st)
	}
	s.setStatusUnsafe(StatusPaused)
	s.m.Unlock()

	// Log
	s.l.InfoC(s.ctx, "astipipeline: scheduler is paused")

	// Emit
	s.Emit(EventNameSchedulerPaused, nil)
	return nil
}

func (s *Scheduler) Resume() error {
	// Update status
	s.m.Lock()
	if st := s.Status(); st != StatusPaused {
		s.m.Unlock()
		return fmt.Errorf("astipipeline: invalid status %s", st)
	}
	s.setStatusUnsafe(StatusRunning)
	s.sc.Broadcast()
	s.m.Unlock()

	// Log
	s.l.InfoC(s.ctx, "astipipeline: scheduler is resumed")

	// Emit
	s.Emit(EventNameSchedulerResumed, nil)
	return nil
}

// Cancel asks every worker to stop. Workers observe it at the top of their
// loop, which bounds the shutdown latency to the receive timeout.
func (s *Scheduler) Cancel() {
	s.end()
}

// Wait blocks until every worker has exited and returns the first error
// escalated to the error slot, if any
func (s *Scheduler) Wait() error {
	// Wait for workers
	s.wg.Wait()

	// Update status
	s.doneOnce.Do(func() {
		// Make sure the ending transition happened and was emitted, even
		// when every worker exited on its own
		if s.Status() != StatusCreated {
			s.end()
		}

		s.m.Lock()
		s.setStatusUnsafe(StatusDone)
		s.m.Unlock()

		// Close
		s.c.Close() //nolint: errcheck

		// Log
		s.l.InfoC(s.ctx, "astipipeline: scheduler is done")

		// Emit
		s.Emit(EventNameSchedulerDone, nil)
	})

	// Return error
	s.m.Lock()
	defer s.m.Unlock()
	return s.err
}
