// Package batch — report work queue.
// Locations are normalized on the way in, so the same report is generated
// once even when an index links it twice. Outcomes are recorded per report.
package batch

// Failure is a report that could not be generated.
type Failure struct {
	Location string
	Err      error
}

// Queue holds the report locations of one batch run in discovery order.
type Queue struct {
	pending  []string
	seen     map[string]struct{}
	failures []Failure
	done     int
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{seen: make(map[string]struct{})}
}

// Add enqueues location unless an equivalent location is already queued.
// It reports whether the location was new.
func (q *Queue) Add(location string) bool {
	location = NormalizeLocation(location)
	if _, ok := q.seen[location]; ok {
		return false
	}
	q.seen[location] = struct{}{}
	q.pending = append(q.pending, location)
	return true
}

// Next pops the next location to generate. ok is false once the queue is drained.
func (q *Queue) Next() (location string, ok bool) {
	if len(q.pending) == 0 {
		return "", false
	}
	location, q.pending = q.pending[0], q.pending[1:]
	return location, true
}

// Done records the outcome of a location returned by Next.
func (q *Queue) Done(location string, err error) {
	q.done++
	if err != nil {
		q.failures = append(q.failures, Failure{Location: location, Err: err})
	}
}

// Len returns the number of unique locations ever queued.
func (q *Queue) Len() int {
	return len(q.seen)
}

// Processed returns how many locations have been marked done.
func (q *Queue) Processed() int {
	return q.done
}

// Failures returns the failed reports, in processing order.
func (q *Queue) Failures() []Failure {
	return q.failures
}

// Pending returns a copy of the locations not yet handed out.
func (q *Queue) Pending() []string {
	return append([]string(nil), q.pending...)
}
