package core

// Start arms the timer hardware, runs the init callbacks, announces the
// firmware to the host and enables interrupts. Call it once before RunOnce.
func (s *Scheduler) Start() {
	if s.started {
		return
	}
	s.started = true
	s.decl.frozen = true
	s.irq.Disable()
	s.timerReset()
	s.Guard(func() {
		s.decl.runInitFuncs(s)
	})
	s.out.Send("starting")
	s.irq.Enable()
	s.loopStart = s.timer.ReadTime()
}

// RunForever is the firmware's permanent control flow after boot
func (s *Scheduler) RunForever() {
	s.Start()
	for {
		s.RunOnce()
	}
}

// RunOnce performs one main loop iteration: sleep until a task is woken,
// then run every declared task once. A fault raised anywhere below is
// handled here before RunOnce returns.
func (s *Scheduler) RunOnce() {
	defer s.recoverShutdown()
	s.runTasks()
}

func (s *Scheduler) runTasks() {
	s.checkPendingShutdown()

	// Sleep if no task has been requested
	s.irq.Poll()
	if s.tasksStatus.Load() != taskRequested {
		s.loopStart -= s.timer.ReadTime()
		s.irq.Disable()
		if s.tasksStatus.Load() != taskRequested {
			s.tasksStatus.Store(taskIdle)
			for {
				s.irq.Wait()
				if s.tasksStatus.Load() == taskRequested {
					break
				}
			}
		}
		s.irq.Enable()
		s.loopStart += s.timer.ReadTime()
	}
	s.checkPendingShutdown()
	s.tasksStatus.Store(taskRunning)

	s.decl.runTaskFuncs(s)

	cur := s.timer.ReadTime()
	s.statsUpdate(s.loopStart, cur)
	s.loopStart = cur
}
