package queue

import "sync"

// DefaultMaxConcurrency is QUEUE_MAX_CONCURRENCY's default per spec §4.2.
const DefaultMaxConcurrency = 8

// Task is one unit of scheduled work: claim a message and process it to
// completion (outgoing write or requeue). The scheduler only cares about
// its OrderingKey and its completion signal.
type Task struct {
	Key string
	Run func()
}

// Scheduler bounds global concurrency while preserving strict per-key
// order: claims for the same key run strictly sequentially; claims for
// distinct keys may run in parallel up to a configured limit. Grounded on
// spec §4.2's algorithm; the in_flight-set-plus-per-key-FIFO shape has no
// direct teacher analogue (the teacher's daemon/scheduler is cron-based),
// so this is a fresh, small concurrency primitive in the style of the
// rest of this codebase's mutex-guarded registries (a map protected by
// one mutex, no separate lock-free path).
//
// Two queues cooperate: pending holds, per key, every task not yet
// started; ready holds the FIFO of keys that have pending work and are
// not currently active, i.e. candidates for the next dispatch once global
// capacity frees up. A key enters ready exactly once per "pending work,
// not active" transition; dispatch always pops ready, never guesses.
type Scheduler struct {
	mu       sync.Mutex
	limit    int
	inFlight int
	active   map[string]bool
	pending  map[string][]Task
	ready    []string
	inReady  map[string]bool
	stopped  bool
	idleCond *sync.Cond
}

// NewScheduler returns a Scheduler with the given global concurrency
// limit. A limit <= 0 uses DefaultMaxConcurrency.
func NewScheduler(limit int) *Scheduler {
	if limit <= 0 {
		limit = DefaultMaxConcurrency
	}
	s := &Scheduler{
		limit:   limit,
		active:  make(map[string]bool),
		pending: make(map[string][]Task),
		inReady: make(map[string]bool),
	}
	s.idleCond = sync.NewCond(&s.mu)
	return s
}

// Submit enqueues a task under its OrderingKey and drains as much of the
// ready queue as global capacity allows. Submit never blocks.
func (s *Scheduler) Submit(t Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	s.pending[t.Key] = append(s.pending[t.Key], t)
	s.markReady(t.Key)
	s.drainReady()
}

// markReady pushes key onto the ready FIFO if it has pending work, isn't
// active, and isn't already queued. Must be called with mu held.
func (s *Scheduler) markReady(key string) {
	if s.active[key] || s.inReady[key] {
		return
	}
	if len(s.pending[key]) == 0 {
		return
	}
	s.ready = append(s.ready, key)
	s.inReady[key] = true
}

// drainReady dispatches ready keys until global capacity is exhausted or
// the ready queue empties. Must be called with mu held.
func (s *Scheduler) drainReady() {
	for s.inFlight < s.limit && len(s.ready) > 0 {
		key := s.ready[0]
		s.ready = s.ready[1:]
		s.inReady[key] = false

		queue := s.pending[key]
		if len(queue) == 0 {
			continue // freed concurrently; nothing to dispatch for this key
		}
		next := queue[0]
		s.pending[key] = queue[1:]
		if len(s.pending[key]) == 0 {
			delete(s.pending, key)
		}

		s.active[key] = true
		s.inFlight++
		go s.run(next)
	}
}

func (s *Scheduler) run(t Task) {
	t.Run()
	s.onComplete(t.Key)
}

// onComplete decrements in_flight, frees the key, re-marks it ready if it
// still has pending work, then redrains the ready queue against the
// capacity this completion just freed up.
func (s *Scheduler) onComplete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inFlight--
	delete(s.active, key)

	s.markReady(key)
	s.drainReady()

	if s.inFlight == 0 && len(s.ready) == 0 {
		s.idleCond.Broadcast()
	}
}

// Stop prevents further dispatch of newly submitted tasks. Tasks already
// dispatched or queued before Stop continue to run and drain normally;
// Stop does not cancel them. Call Drain afterward to wait for the queue
// to empty.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

// Drain blocks until in_flight reaches zero and the ready queue is empty,
// i.e. every submitted task has run to completion.
func (s *Scheduler) Drain() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.inFlight > 0 || len(s.ready) > 0 {
		s.idleCond.Wait()
	}
}

// InFlight reports the current global in-flight count, for health
// snapshots and tests.
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}
