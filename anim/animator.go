package anim

import (
	"errors"
	"log"
	"sync"

	"github.com/sarchlab/telepanel/timing"
)

// ErrConflict is returned for a request to animate a target that is already
// moving to the same end value, or to start a compound transition while one
// is in flight. Callers treat it as a no-op.
var ErrConflict = errors.New("animation conflict")

// A Task is one numeric transition.
type Task struct {
	// Target identifies the animated property, for example "needle.angle".
	// Tasks with an empty Target are never checked for conflicts.
	Target string

	From, To   float64
	Duration   timing.VTimeInSec
	Easing     Easing
	OnChange   func(v float64)
	OnComplete func()
}

type runningTask struct {
	Task

	id    uint64
	start timing.VTimeInSec
}

// An Animator runs Tasks on a frame clock. Every frame, each task reports
// its value through OnChange. A task that reaches its duration reports To
// and then calls OnComplete exactly once.
//
// The Animator only ticks while it has work.
type Animator struct {
	*timing.TickingHandler

	name   string
	engine timing.Engine

	lock   sync.Mutex
	nextID uint64
	tasks  []*runningTask
	frames uint64
}

// NewAnimator creates an Animator ticking at freq.
func NewAnimator(name string, engine timing.Engine, freq timing.Freq) *Animator {
	a := &Animator{
		name:   name,
		engine: engine,
	}
	a.TickingHandler = timing.NewTickingHandler(engine, freq, a)

	return a
}

// Name returns the name of the animator.
func (a *Animator) Name() string {
	return a.name
}

// Run starts a task and returns its id.
//
// If a task with the same Target is running toward the same To, Run returns
// ErrConflict and nothing changes. A task with the same Target but another To
// is retired without completion and the new task takes over.
func (a *Animator) Run(task Task) (uint64, error) {
	if task.Duration < 0 {
		log.Panicf("animator %s: negative duration", a.name)
	}

	a.lock.Lock()

	if task.Target != "" {
		for i, t := range a.tasks {
			if t.Target != task.Target {
				continue
			}

			if t.To == task.To {
				a.lock.Unlock()
				return 0, ErrConflict
			}

			a.tasks = append(a.tasks[:i], a.tasks[i+1:]...)

			break
		}
	}

	a.nextID++
	rt := &runningTask{
		Task:  task,
		id:    a.nextID,
		start: a.engine.CurrentTime(),
	}
	a.tasks = append(a.tasks, rt)
	a.lock.Unlock()

	a.TickLater()

	return rt.id, nil
}

// Tween adapts Run to the render surface.
func (a *Animator) Tween(
	target string,
	from, to float64,
	duration timing.VTimeInSec,
	easing func(float64) float64,
	onChange func(float64),
	onComplete func(),
) error {
	_, err := a.Run(Task{
		Target:     target,
		From:       from,
		To:         to,
		Duration:   duration,
		Easing:     easing,
		OnChange:   onChange,
		OnComplete: onComplete,
	})

	return err
}

// Cancel retires a task without completing it.
func (a *Animator) Cancel(id uint64) bool {
	a.lock.Lock()
	defer a.lock.Unlock()

	for i, t := range a.tasks {
		if t.id == id {
			a.tasks = append(a.tasks[:i], a.tasks[i+1:]...)
			return true
		}
	}

	return false
}

// CancelTarget retires the task animating target, if any.
func (a *Animator) CancelTarget(target string) bool {
	a.lock.Lock()
	defer a.lock.Unlock()

	for i, t := range a.tasks {
		if t.Target == target {
			a.tasks = append(a.tasks[:i], a.tasks[i+1:]...)
			return true
		}
	}

	return false
}

// Stop retires every task.
func (a *Animator) Stop() {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.tasks = nil
}

// Active returns the number of running tasks.
func (a *Animator) Active() int {
	a.lock.Lock()
	defer a.lock.Unlock()

	return len(a.tasks)
}

// Frames returns the number of frames rendered so far.
func (a *Animator) Frames() uint64 {
	a.lock.Lock()
	defer a.lock.Unlock()

	return a.frames
}

// Tick advances every task to the current time.
func (a *Animator) Tick() bool {
	now := a.engine.CurrentTime()

	a.lock.Lock()
	if len(a.tasks) == 0 {
		a.lock.Unlock()
		return false
	}
	a.frames++
	tasks := make([]*runningTask, len(a.tasks))
	copy(tasks, a.tasks)
	a.lock.Unlock()

	for _, t := range tasks {
		if !a.isRunning(t) {
			continue
		}

		p := 1.0
		if t.Duration > 0 {
			p = float64((now - t.start) / t.Duration)
		}

		if p < 1 {
			if t.OnChange != nil {
				t.OnChange(Lerp(t.From, t.To, t.Easing, p))
			}

			continue
		}

		if !a.retire(t) {
			continue
		}

		if t.OnChange != nil {
			t.OnChange(t.To)
		}

		if t.OnComplete != nil {
			t.OnComplete()
		}
	}

	return a.Active() > 0
}

func (a *Animator) isRunning(t *runningTask) bool {
	a.lock.Lock()
	defer a.lock.Unlock()

	for _, rt := range a.tasks {
		if rt == t {
			return true
		}
	}

	return false
}

func (a *Animator) retire(t *runningTask) bool {
	a.lock.Lock()
	defer a.lock.Unlock()

	for i, rt := range a.tasks {
		if rt == t {
			a.tasks = append(a.tasks[:i], a.tasks[i+1:]...)
			return true
		}
	}

	return false
}
