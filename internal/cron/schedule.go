package cron

import (
	"context"
	"fmt"
	"time"
)

// Job is a scheduled task. Run reports how many rows or items it touched.
type Job interface {
	Name() string
	Run(ctx context.Context) (int, error)
}

// Entry pairs a job with its cadence. A zero Every uses the service default.
type Entry struct {
	Job   Job
	Every time.Duration
}

// schedule tracks when each job is next due. Jobs are due immediately after
// start so a restarted worker catches up.
type schedule struct {
	entries []Entry
	next    []time.Time
}

func newSchedule(entries []Entry, fallback time.Duration, now time.Time) (*schedule, error) {
	s := &schedule{}
	seen := map[string]bool{}
	for _, e := range entries {
		if e.Job == nil {
			continue
		}
		name := e.Job.Name()
		if name == "" {
			return nil, fmt.Errorf("job name required")
		}
		if seen[name] {
			return nil, fmt.Errorf("job %q registered twice", name)
		}
		seen[name] = true
		if e.Every <= 0 {
			e.Every = fallback
		}
		s.entries = append(s.entries, e)
		s.next = append(s.next, now)
	}
	return s, nil
}

// due returns the jobs whose time has come, in registration order, and
// moves each one interval past now.
func (s *schedule) due(now time.Time) []Job {
	var jobs []Job
	for i, e := range s.entries {
		if now.Before(s.next[i]) {
			continue
		}
		jobs = append(jobs, e.Job)
		s.next[i] = now.Add(e.Every)
	}
	return jobs
}

// wait is the time until the earliest job is due, never negative.
func (s *schedule) wait(now time.Time) time.Duration {
	if len(s.next) == 0 {
		return 0
	}
	earliest := s.next[0]
	for _, t := range s.next[1:] {
		if t.Before(earliest) {
			earliest = t
		}
	}
	return max(earliest.Sub(now), 0)
}

func (s *schedule) jobs() []Job {
	jobs := make([]Job, len(s.entries))
	for i, e := range s.entries {
		jobs[i] = e.Job
	}
	return jobs
}
