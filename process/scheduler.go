// CLAUDE:SUMMARY Cancellable delayed jobs: time.AfterFunc scheduler and a manual clock for deterministic tests.
package process

import (
	"sort"
	"sync"
	"time"
)

// Job is a scheduled unit of work.
type Job interface {
	// Cancel prevents the job from running. It reports whether the job was
	// still pending.
	Cancel() bool
}

// Scheduler runs fn once after delay.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) Job
}

// TimerScheduler schedules on the runtime timer. Jobs run on their own
// goroutine.
type TimerScheduler struct{}

func (TimerScheduler) Schedule(delay time.Duration, fn func()) Job {
	return timerJob{time.AfterFunc(delay, fn)}
}

type timerJob struct{ t *time.Timer }

func (j timerJob) Cancel() bool { return j.t.Stop() }

// ManualScheduler runs jobs only when Advance moves its clock. Jobs run on
// the goroutine calling Advance.
type ManualScheduler struct {
	mu   sync.Mutex
	now  time.Duration
	seq  int
	jobs []*manualJob
}

type manualJob struct {
	s         *ManualScheduler
	at        time.Duration
	seq       int
	fn        func()
	done      bool
	cancelled bool
}

// NewManualScheduler returns a scheduler whose clock starts at zero.
func NewManualScheduler() *ManualScheduler { return &ManualScheduler{} }

func (s *ManualScheduler) Schedule(delay time.Duration, fn func()) Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	j := &manualJob{s: s, at: s.now + delay, seq: s.seq, fn: fn}
	s.jobs = append(s.jobs, j)
	return j
}

func (j *manualJob) Cancel() bool {
	j.s.mu.Lock()
	defer j.s.mu.Unlock()
	if j.done || j.cancelled {
		return false
	}
	j.cancelled = true
	return true
}

// Advance moves the clock by d and runs every job that became due, in due
// order. It returns the number of jobs run.
func (s *ManualScheduler) Advance(d time.Duration) int {
	s.mu.Lock()
	s.now += d
	var due, rest []*manualJob
	for _, j := range s.jobs {
		switch {
		case j.cancelled:
		case j.at <= s.now:
			j.done = true
			due = append(due, j)
		default:
			rest = append(rest, j)
		}
	}
	s.jobs = rest
	s.mu.Unlock()

	sort.Slice(due, func(a, b int) bool {
		if due[a].at != due[b].at {
			return due[a].at < due[b].at
		}
		return due[a].seq < due[b].seq
	})
	for _, j := range due {
		j.fn()
	}
	return len(due)
}

// Pending returns the number of jobs neither run nor cancelled.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, j := range s.jobs {
		if !j.cancelled {
			n++
		}
	}
	return n
}
