package core

// InitFunc, TaskFunc and ShutdownFunc are the callbacks collaborators
// declare. Each receives the scheduler that is running it.
type (
	InitFunc     func(s *Scheduler)
	TaskFunc     func(s *Scheduler)
	ShutdownFunc func(s *Scheduler)
)

// Declarations holds the fixed callback lists of a firmware image. They are
// filled while the image is assembled and frozen once the scheduler starts.
type Declarations struct {
	inits     []InitFunc
	tasks     []TaskFunc
	shutdowns []ShutdownFunc
	frozen    bool
}

func (d *Declarations) checkOpen() {
	if d.frozen {
		panic("callbacks declared after scheduler start")
	}
}

// DeclareInit adds a callback run once before the main loop starts
func (s *Scheduler) DeclareInit(fn InitFunc) {
	s.decl.checkOpen()
	s.decl.inits = append(s.decl.inits, fn)
}

// DeclareTask adds a callback run once per task cycle, in declaration order
func (s *Scheduler) DeclareTask(fn TaskFunc) {
	s.decl.checkOpen()
	s.decl.tasks = append(s.decl.tasks, fn)
}

// DeclareShutdown adds a callback that puts a peripheral in its safe state
func (s *Scheduler) DeclareShutdown(fn ShutdownFunc) {
	s.decl.checkOpen()
	s.decl.shutdowns = append(s.decl.shutdowns, fn)
}

func (d *Declarations) runInitFuncs(s *Scheduler) {
	for _, fn := range d.inits {
		fn(s)
	}
}

func (d *Declarations) runTaskFuncs(s *Scheduler) {
	for _, fn := range d.tasks {
		fn(s)
	}
}

func (d *Declarations) runShutdownFuncs(s *Scheduler) {
	for _, fn := range d.shutdowns {
		fn(s)
	}
}
