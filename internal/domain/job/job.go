// Package job defines the bulk import job aggregate and its state machine.
package job

import (
	"fmt"
	"time"
)

// State is a job lifecycle state.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// Finished reports whether the state is terminal.
func (s State) Finished() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// ItemError records one failed import row.
type ItemError struct {
	Row     int    `json:"row"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// ItemSkip records one skipped import row (duplicate).
type ItemSkip struct {
	Row    int    `json:"row"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Job tracks one CSV bulk import run.
type Job struct {
	id         string
	state      State
	total      int
	processed  int
	succeeded  int
	results    []string
	errors     []ItemError
	skipped    []ItemSkip
	failure    string
	createdAt  time.Time
	startedAt  time.Time
	finishedAt time.Time
}

// New creates a pending job.
func New(id string, total int) *Job {
	return &Job{id: id, state: StatePending, total: total, createdAt: time.Now().UTC()}
}

// ID returns the job identifier.
func (j *Job) ID() string { return j.id }

// State returns the current lifecycle state.
func (j *Job) State() State { return j.state }

// Total returns the number of rows to process.
func (j *Job) Total() int { return j.total }

// Processed returns the number of rows handled so far.
func (j *Job) Processed() int { return j.processed }

// Succeeded returns the number of rows imported successfully.
func (j *Job) Succeeded() int { return j.succeeded }

// Results returns the vector IDs of imported images.
func (j *Job) Results() []string { return j.results }

// Errors returns the per-row failures.
func (j *Job) Errors() []ItemError { return j.errors }

// Skipped returns the per-row duplicate skips.
func (j *Job) Skipped() []ItemSkip { return j.skipped }

// Failure returns the whole-job failure message, if any.
func (j *Job) Failure() string { return j.failure }

// CreatedAt returns the creation time.
func (j *Job) CreatedAt() time.Time { return j.createdAt }

// FinishedAt returns the terminal transition time (zero while active).
func (j *Job) FinishedAt() time.Time { return j.finishedAt }

// Start transitions pending → running.
func (j *Job) Start() error {
	if j.state != StatePending {
		return fmt.Errorf("cannot start job in state %s", j.state)
	}
	j.state = StateRunning
	j.startedAt = time.Now().UTC()
	return nil
}

// RecordSuccess counts one imported row.
func (j *Job) RecordSuccess(vectorID string) {
	j.processed++
	j.succeeded++
	j.results = append(j.results, vectorID)
}

// RecordError counts one failed row.
func (j *Job) RecordError(row int, name, message string) {
	j.processed++
	j.errors = append(j.errors, ItemError{Row: row, Name: name, Message: message})
}

// RecordSkip counts one duplicate row.
func (j *Job) RecordSkip(row int, name, reason string) {
	j.processed++
	j.skipped = append(j.skipped, ItemSkip{Row: row, Name: name, Reason: reason})
}

// Complete transitions running → completed.
func (j *Job) Complete() error { return j.finish(StateCompleted, "") }

// Cancel transitions pending/running → cancelled.
func (j *Job) Cancel() error {
	if j.state == StatePending {
		j.state = StateCancelled
		j.finishedAt = time.Now().UTC()
		return nil
	}
	return j.finish(StateCancelled, "")
}

// Fail transitions running → failed with a message.
func (j *Job) Fail(message string) error { return j.finish(StateFailed, message) }

func (j *Job) finish(to State, message string) error {
	if j.state.Finished() {
		return fmt.Errorf("job already finished in state %s", j.state)
	}
	if j.state != StateRunning {
		return fmt.Errorf("cannot transition job from %s to %s", j.state, to)
	}
	j.state = to
	j.failure = message
	j.finishedAt = time.Now().UTC()
	return nil
}

// Snapshot is an immutable status view for API responses.
type Snapshot struct {
	ID         string      `json:"id"`
	State      State       `json:"state"`
	Total      int         `json:"total"`
	Processed  int         `json:"processed"`
	Succeeded  int         `json:"succeeded"`
	Results    []string    `json:"results,omitempty"`
	Errors     []ItemError `json:"errors,omitempty"`
	Skipped    []ItemSkip  `json:"skipped,omitempty"`
	Failure    string      `json:"failure,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
	FinishedAt *time.Time  `json:"finishedAt,omitempty"`
}

// Snapshot copies the current job status.
func (j *Job) Snapshot() Snapshot {
	s := Snapshot{
		ID: j.id, State: j.state, Total: j.total,
		Processed: j.processed, Succeeded: j.succeeded,
		Results: append([]string(nil), j.results...),
		Errors:  append([]ItemError(nil), j.errors...),
		Skipped: append([]ItemSkip(nil), j.skipped...),
		Failure: j.failure, CreatedAt: j.createdAt,
	}
	if !j.finishedAt.IsZero() {
		t := j.finishedAt
		s.FinishedAt = &t
	}
	return s
}
