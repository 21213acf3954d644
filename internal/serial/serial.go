// Package serial provides per-(session, domain) FIFO task execution.
//
// Each session has two independent domains: membership (join, leave, watch,
// mute, start) and match (chat, actions, concession, rejoin, resync). Within
// one (session, domain) pair tasks run strictly one at a time in submission
// order; across sessions, and across the two domains of one session, tasks
// run concurrently. Membership churn therefore never blocks or reorders live
// gameplay mutations, and two simultaneous actions on one match never
// interleave.
package serial

import "sync"

// Domain selects which of a session's two queues a task joins.
type Domain int

const (
	Membership Domain = iota
	Match
)

// String returns a name for logging.
func (d Domain) String() string {
	if d == Match {
		return "match"
	}
	return "membership"
}

type key struct {
	id     string
	domain Domain
}

type queue struct {
	tasks   []func()
	running bool
}

// Serializer owns the task queues. The zero value is not usable; create one
// with New.
type Serializer struct {
	mu     sync.Mutex
	queues map[key]*queue

	// OnPanic, when set, receives the value recovered from a panicking
	// task. The queue keeps draining either way; one bad task must not
	// wedge its session.
	OnPanic func(recovered any)
}

// New creates a serializer.
func New() *Serializer {
	return &Serializer{queues: make(map[key]*queue)}
}

// Enqueue submits a task to the given session's domain queue and returns
// immediately. The task runs after every previously submitted task of the
// same (session, domain) pair has finished.
func (s *Serializer) Enqueue(sessionID string, d Domain, task func()) {
	k := key{id: sessionID, domain: d}

	s.mu.Lock()
	q, ok := s.queues[k]
	if !ok {
		q = &queue{}
		s.queues[k] = q
	}
	q.tasks = append(q.tasks, task)
	if q.running {
		s.mu.Unlock()
		return
	}
	q.running = true
	s.mu.Unlock()

	go s.drain(k, q)
}

// drain runs queued tasks until the queue is empty, then retires it.
func (s *Serializer) drain(k key, q *queue) {
	for {
		s.mu.Lock()
		if len(q.tasks) == 0 {
			q.running = false
			delete(s.queues, k)
			s.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks = q.tasks[1:]
		s.mu.Unlock()

		s.run(task)
	}
}

func (s *Serializer) run(task func()) {
	defer func() {
		if r := recover(); r != nil && s.OnPanic != nil {
			s.OnPanic(r)
		}
	}()
	task()
}

// Barrier enqueues a marker task and returns a channel that closes once
// every task submitted before it has finished. Used by shutdown and tests.
func (s *Serializer) Barrier(sessionID string, d Domain) <-chan struct{} {
	done := make(chan struct{})
	s.Enqueue(sessionID, d, func() { close(done) })
	return done
}
