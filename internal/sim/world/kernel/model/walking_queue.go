package model

// Point is a single queued step on the owner's plane.
type Point struct {
	X int
	Y int
}

// WalkingQueue buffers the pending tile steps of one mover. The world tick
// consumes it front to back; movement tasks only reset and append.
type WalkingQueue struct {
	// RunToggle is the owner's own run setting, used when a reset does not force running.
	RunToggle bool

	origin  func() Location
	steps   []Point
	last    Point
	hasLast bool
	running bool
}

// NewWalkingQueue creates a queue whose interpolation starts at origin() after each reset.
// A nil origin makes the first appended point a step of its own.
func NewWalkingQueue(origin func() Location) *WalkingQueue {
	return &WalkingQueue{origin: origin}
}

// Reset drops all pending steps and selects the run mode.
func (q *WalkingQueue) Reset(forceRun bool) {
	q.steps = q.steps[:0]
	q.hasLast = false
	q.running = forceRun || q.RunToggle
}

// AddPath appends the steps needed to reach (x, y) from the last queued point,
// one tile at a time, x axis first.
func (q *WalkingQueue) AddPath(x, y int) {
	from, ok := q.tail()
	if !ok {
		q.push(Point{X: x, Y: y})
		return
	}
	for from.X != x || from.Y != y {
		switch {
		case from.X < x:
			from.X++
		case from.X > x:
			from.X--
		case from.Y < y:
			from.Y++
		default:
			from.Y--
		}
		q.push(from)
	}
}

func (q *WalkingQueue) tail() (Point, bool) {
	if q.hasLast {
		return q.last, true
	}
	if q.origin == nil {
		return Point{}, false
	}
	o := q.origin()
	return Point{X: o.X, Y: o.Y}, true
}

func (q *WalkingQueue) push(p Point) {
	q.steps = append(q.steps, p)
	q.last = p
	q.hasLast = true
}

// Next pops the next pending step.
func (q *WalkingQueue) Next() (Point, bool) {
	if len(q.steps) == 0 {
		return Point{}, false
	}
	p := q.steps[0]
	q.steps = q.steps[1:]
	if len(q.steps) == 0 {
		q.hasLast = false
	}
	return p, true
}

func (q *WalkingQueue) IsMoving() bool { return len(q.steps) > 0 }

func (q *WalkingQueue) Running() bool { return q.running }

func (q *WalkingQueue) Len() int { return len(q.steps) }

// Steps returns a copy of the pending steps.
func (q *WalkingQueue) Steps() []Point {
	return append([]Point(nil), q.steps...)
}
