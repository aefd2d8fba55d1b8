package metrics

import "sync/atomic"

// Store maintains in-memory counters for one measurement run.
type Store struct {
	targets   atomic.Uint64
	attempts  atomic.Uint64
	successes atomic.Uint64
	failures  atomic.Uint64
}

// NewStore constructs a Store with zeroed counters.
func NewStore() *Store {
	return &Store{}
}

// Snapshot captures the current counter values in a plain struct.
type Snapshot struct {
	Targets   uint64
	Attempts  uint64
	Successes uint64
	Failures  uint64
}

func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		Targets:   s.targets.Load(),
		Attempts:  s.attempts.Load(),
		Successes: s.successes.Load(),
		Failures:  s.failures.Load(),
	}
}

func (s *Store) ObserveTarget() {
	s.targets.Add(1)
}

// AttemptRecorder returns an implementation of AttemptRecorder backed
// by the store.
func (s *Store) AttemptRecorder() AttemptRecorder {
	return attemptRecorder{store: s}
}

type attemptRecorder struct {
	store *Store
}

func (r attemptRecorder) ObserveAttempt(success bool) {
	r.store.attempts.Add(1)
	if success {
		r.store.successes.Add(1)
	} else {
		r.store.failures.Add(1)
	}
}
