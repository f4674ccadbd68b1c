package coro

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/sarchlab/tbsync/sim/id"
	"github.com/sarchlab/tbsync/sim/timing"
)

// A Scheduler runs tasks on an engine, one at a time.
type Scheduler struct {
	engine timing.EventScheduler
	logger *slog.Logger

	current *Task

	lock  sync.Mutex
	tasks []*Task
}

// NewScheduler creates a scheduler that uses the engine for its suspension
// points. A nil logger discards all messages.
func NewScheduler(engine timing.EventScheduler, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Scheduler{
		engine: engine,
		logger: logger,
	}
}

// Engine returns the engine the scheduler runs on.
func (s *Scheduler) Engine() timing.EventScheduler {
	return s.engine
}

// Logger returns the logger of the scheduler.
func (s *Scheduler) Logger() *slog.Logger {
	return s.logger
}

// Now returns the current simulation time.
func (s *Scheduler) Now() timing.VTimeInStep {
	return s.engine.Now()
}

// Current returns the task that is running, or nil if control is with the
// engine.
func (s *Scheduler) Current() *Task {
	return s.current
}

// Tasks returns the tasks that have not finished yet.
func (s *Scheduler) Tasks() []*Task {
	s.lock.Lock()
	defer s.lock.Unlock()

	tasks := make([]*Task, len(s.tasks))
	copy(tasks, s.tasks)

	return tasks
}

// StartSoon creates a task that starts in the current instant, after the
// caller gives up control.
func (s *Scheduler) StartSoon(name string, fn TaskFunc) *Task {
	t := &Task{
		id:     id.Generate(),
		name:   name,
		sched:  s,
		fn:     fn,
		resume: make(chan bool),
		yield:  make(chan struct{}),
	}
	t.logger = s.logger.With("task", name)

	s.lock.Lock()
	s.tasks = append(s.tasks, t)
	s.lock.Unlock()

	s.wakeSoon(t, 0)

	return t
}

// Shutdown kills every task that has not finished. It is used when the
// simulation ends.
func (s *Scheduler) Shutdown() {
	for _, t := range s.Tasks() {
		t.Kill()
	}
}

// Handle resumes tasks and fires timers. It implements timing.Handler.
func (s *Scheduler) Handle(e timing.Event) error {
	switch evt := e.(type) {
	case *wakeEvent:
		s.handleWake(evt)
	case *callEvent:
		if !evt.arm.cancelled {
			evt.fn()
		}
	default:
		return fmt.Errorf("coro: cannot handle event %T", e)
	}

	return nil
}

type wakeEvent struct {
	*timing.EventBase
	task *Task
	gen  uint64
}

func (s *Scheduler) wakeSoon(t *Task, gen uint64) {
	s.engine.Schedule(&wakeEvent{
		EventBase: timing.NewEventBase(s.Now(), s),
		task:      t,
		gen:       gen,
	})
}

func (s *Scheduler) handleWake(evt *wakeEvent) {
	t := evt.task
	if t.gen != evt.gen {
		return
	}

	switch t.State() {
	case TaskPending, TaskSuspended:
		s.resume(t, false)
	}
}

func (s *Scheduler) resume(t *Task, kill bool) {
	prev := s.current
	s.current = t

	if !t.started {
		t.started = true
		go t.run()
	}

	t.resume <- kill
	<-t.yield

	s.current = prev
}

func (s *Scheduler) remove(t *Task) {
	s.lock.Lock()
	defer s.lock.Unlock()

	for i, task := range s.tasks {
		if task == t {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return
		}
	}
}
