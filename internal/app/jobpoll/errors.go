package jobpoll

import (
	"fmt"
	"time"
)

// JobSubmissionError is returned when the payload upload or the job start fails
type JobSubmissionError struct {
	Job   string
	Stage string
	Cause error
}

func (e *JobSubmissionError) Error() string {
	return fmt.Sprintf("failed to submit job %s (%s): %v", e.Job, e.Stage, e.Cause)
}

func (e *JobSubmissionError) Unwrap() error { return e.Cause }

// JobFailedError is returned when the job reached FAILED or its result could not be read
type JobFailedError struct {
	Job    string
	Reason string
	Cause  error
}

func (e *JobFailedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("job %s failed: %s: %v", e.Job, e.Reason, e.Cause)
	}
	return fmt.Sprintf("job %s failed: %s", e.Job, e.Reason)
}

func (e *JobFailedError) Unwrap() error { return e.Cause }

// JobTimeoutError is returned when the deadline elapsed before a terminal status.
// The job is left in place for the external retention policy.
type JobTimeoutError struct {
	Job        string
	Deadline   time.Duration
	LastStatus Status
}

func (e *JobTimeoutError) Error() string {
	return fmt.Sprintf("job %s did not finish within %s (last status %s)", e.Job, e.Deadline, e.LastStatus)
}

// JobStatusError is returned when the job status could not be queried several times in a row.
// The job and payload are deleted since nothing will poll them again.
type JobStatusError struct {
	Job        string
	Attempts   int
	LastStatus Status
	Cause      error
}

func (e *JobStatusError) Error() string {
	return fmt.Sprintf("failed to query status of job %s after %d attempts: %v", e.Job, e.Attempts, e.Cause)
}

func (e *JobStatusError) Unwrap() error { return e.Cause }
