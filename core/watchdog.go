package core

// WatchdogTimeoutMS is the reset timeout armed at init
const WatchdogTimeoutMS = 350

var ReasonWatchdogConfig = StaticString("Unable to configure watchdog")

// RegisterWatchdog arms wd when the scheduler starts and feeds it on every
// task cycle. A main loop that stops cycling lets the watchdog reset the
// chip; the periodic timer guarantees a cycle at least every 100ms.
func RegisterWatchdog(s *Scheduler, wd Watchdog) {
	s.DeclareInit(func(s *Scheduler) {
		if err := wd.Configure(WatchdogTimeoutMS); err != nil {
			DebugPrintln("[watchdog] " + err.Error())
			s.Shutdown(ReasonWatchdogConfig)
		}
	})
	s.DeclareTask(func(s *Scheduler) {
		wd.Feed()
	})
}
