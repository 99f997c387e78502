package tasks

type Kind string

const (
	KindWalk     Kind = "WALK"
	KindInteract Kind = "INTERACT"
	KindUseWith  Kind = "USE_WITH"
	KindFollow   Kind = "FOLLOW"
)

// Task is a unit of work polled once per tick. Update returns true when the
// task is finished and should leave the scheduler.
type Task interface {
	Update() bool
	Stop()
	Running() bool
}

// Pulse carries the running state shared by repeating tasks. Embed it and
// override Stop to add cleanup.
type Pulse struct {
	stopped bool
}

func (p *Pulse) Stop() { p.stopped = true }

func (p *Pulse) Running() bool { return !p.stopped }

// Scheduler polls tasks in registration order.
type Scheduler struct {
	tasks []Task
}

func NewScheduler() *Scheduler { return &Scheduler{} }

func (s *Scheduler) Submit(t Task) {
	if t == nil {
		return
	}
	s.tasks = append(s.tasks, t)
}

// Tick runs every task once and returns the tasks that finished this tick.
// Tasks submitted during the tick are polled from the next tick on.
func (s *Scheduler) Tick() []Task {
	current := s.tasks
	s.tasks = nil
	var done []Task
	kept := make([]Task, 0, len(current))
	for _, t := range current {
		if t.Update() {
			done = append(done, t)
			continue
		}
		kept = append(kept, t)
	}
	s.tasks = append(kept, s.tasks...)
	return done
}

func (s *Scheduler) Len() int { return len(s.tasks) }

// Contains reports whether t is still scheduled.
func (s *Scheduler) Contains(t Task) bool {
	for _, x := range s.tasks {
		if x == t {
			return true
		}
	}
	return false
}
