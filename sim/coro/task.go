package coro

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"

	"github.com/sarchlab/tbsync/sim/timing"
)

// TaskState is the lifecycle state of a task.
type TaskState int32

// The task states.
const (
	TaskPending TaskState = iota
	TaskRunning
	TaskSuspended
	TaskDone
	TaskKilled
)

func (s TaskState) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskRunning:
		return "running"
	case TaskSuspended:
		return "suspended"
	case TaskDone:
		return "done"
	case TaskKilled:
		return "killed"
	default:
		return fmt.Sprintf("TaskState(%d)", int32(s))
	}
}

// TaskFunc is the body of a task.
type TaskFunc func(t *Task) error

// A Task is a resumable computation managed by a Scheduler.
type Task struct {
	id     string
	name   string
	sched  *Scheduler
	fn     TaskFunc
	logger *slog.Logger

	state         atomic.Int32
	started       bool
	killRequested bool
	err           error

	gen     uint64
	cancels []func()
	joiners []*joinWaiter

	resume chan bool
	yield  chan struct{}
}

// ID returns the unique ID of the task.
func (t *Task) ID() string {
	return t.id
}

// Name returns the name given at creation.
func (t *Task) Name() string {
	return t.name
}

// State returns the current lifecycle state.
func (t *Task) State() TaskState {
	return TaskState(t.state.Load())
}

func (t *Task) setState(s TaskState) {
	t.state.Store(int32(s))
}

// Done returns true once the task returned, failed or was killed.
func (t *Task) Done() bool {
	s := t.State()
	return s == TaskDone || s == TaskKilled
}

// Killed returns true if the task ended because it was killed.
func (t *Task) Killed() bool {
	return t.State() == TaskKilled
}

// Err returns the error the task body returned, or the recovered panic.
func (t *Task) Err() error {
	return t.err
}

// Scheduler returns the scheduler that runs the task.
func (t *Task) Scheduler() *Scheduler {
	return t.sched
}

// Logger returns the scheduler logger annotated with the task name.
func (t *Task) Logger() *slog.Logger {
	return t.logger
}

// Await suspends the task until the trigger fires.
func (t *Task) Await(trigger Trigger) {
	t.First(trigger)
}

// Sleep suspends the task for the given number of steps.
func (t *Task) Sleep(d timing.VTimeInStep) {
	t.Await(Timer(d))
}

// First suspends the task until one of the triggers fires and returns the
// index of that trigger. The other triggers are disarmed.
func (t *Task) First(triggers ...Trigger) int {
	t.mustBeCurrent()

	if len(triggers) == 0 {
		panic("coro: First needs at least one trigger")
	}

	t.gen++
	gen := t.gen
	fired := -1

	t.cancels = t.cancels[:0]
	for i, trigger := range triggers {
		index := i
		cancel := trigger.Prime(t.sched, func() {
			if fired >= 0 || t.gen != gen {
				return
			}

			fired = index
			t.sched.wakeSoon(t, gen)
		})
		t.cancels = append(t.cancels, cancel)
	}

	t.suspend()
	t.cancelTriggers()

	return fired
}

// Join suspends the task until the other task finishes and returns the error
// of the other task.
func (t *Task) Join(other *Task) error {
	if !other.Done() {
		t.Await(other.Completion())
	}

	return other.Err()
}

// Kill stops the task. A suspended task unwinds at its suspension point before
// Kill returns; a task that has not started never runs. A task that kills
// itself stops immediately. Killing a finished task does nothing.
func (t *Task) Kill() {
	if t.Done() {
		return
	}

	t.killRequested = true

	if t.sched.current == t {
		runtime.Goexit()
	}

	t.cancelTriggers()

	if !t.started {
		t.finish()
		return
	}

	t.sched.resume(t, true)
}

func (t *Task) mustBeCurrent() {
	if t.sched.current != t {
		panic(fmt.Sprintf("coro: task %s can only suspend itself", t.name))
	}
}

func (t *Task) suspend() {
	if t.killRequested {
		runtime.Goexit()
	}

	t.setState(TaskSuspended)
	t.yield <- struct{}{}

	if kill := <-t.resume; kill {
		runtime.Goexit()
	}

	t.setState(TaskRunning)
}

func (t *Task) cancelTriggers() {
	for _, cancel := range t.cancels {
		cancel()
	}

	t.cancels = t.cancels[:0]
}

func (t *Task) run() {
	defer func() {
		if r := recover(); r != nil {
			t.err = fmt.Errorf("task %s panicked: %v", t.name, r)
		}

		t.finish()
		t.yield <- struct{}{}
	}()

	if kill := <-t.resume; kill {
		return
	}

	t.setState(TaskRunning)
	t.err = t.fn(t)
}

func (t *Task) finish() {
	if t.killRequested {
		t.setState(TaskKilled)
		t.logger.Debug("task killed")
	} else {
		t.setState(TaskDone)
		if t.err != nil {
			t.logger.Error("task failed", "err", t.err)
		}
	}

	t.sched.remove(t)

	for _, w := range t.joiners {
		if w.active {
			w.active = false
			w.fire()
		}
	}

	t.joiners = nil
}
