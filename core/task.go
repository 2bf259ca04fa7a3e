package core

import "sync/atomic"

// Task status values. The processor may only sleep while idle.
const (
	taskIdle      int32 = -1
	taskRequested int32 = 0
	taskRunning   int32 = 1
)

// TaskWake is a one-bit signal from an interrupt-context producer to a
// single main-loop consumer.
type TaskWake struct {
	wake atomic.Uint32
}

// WakeTasks notes that at least one task has work. Callable from any context.
func (s *Scheduler) WakeTasks() {
	s.tasksStatus.Store(taskRequested)
}

// TasksBusy reports whether the main loop has work requested or running
func (s *Scheduler) TasksBusy() bool {
	return s.tasksStatus.Load() >= taskRequested
}

// WakeTask raises w and requests a task cycle. Callable from any context.
func (s *Scheduler) WakeTask(w *TaskWake) {
	s.WakeTasks()
	w.wake.Store(1)
}

// CheckWake consumes w, returning whether it had been raised. Main loop
// only, and only from the task that owns w.
func (s *Scheduler) CheckWake(w *TaskWake) bool {
	if w.wake.Load() == 0 {
		return false
	}
	w.wake.Store(0)
	return true
}
