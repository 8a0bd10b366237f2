package jobpoll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Status is the lifecycle state of a polled job
type Status string

const (
	StatusSubmitted  Status = "SUBMITTED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusTimedOut   Status = "TIMED_OUT"
)

// Terminal reports whether the external job will not change state again
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// StatusReport is one observation of the external job
type StatusReport struct {
	Status        Status
	FailureReason string
	ResultURI     string
}

// Backend drives the external job service
type Backend interface {
	StartJob(ctx context.Context, name, mediaURI string) error
	JobStatus(ctx context.Context, name string) (StatusReport, error)
	FetchResult(ctx context.Context, report StatusReport) ([]byte, error)
	DeleteJob(ctx context.Context, name string) error
}

// ObjectStore holds uploaded payloads until the job has consumed them
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	URI(key string) string
}

// ResultParser turns the fetched result document into text
type ResultParser func(data []byte) (string, error)

// Job is the handle returned by Submit. It is owned by the call that created it.
type Job struct {
	Name        string
	Key         string
	MediaURI    string
	SubmittedAt time.Time
	Status      Status
}

// PollOptions tunes AwaitCompletion. Zero values take the defaults below.
type PollOptions struct {
	Interval    time.Duration
	MaxInterval time.Duration
	Multiplier  float64
	Deadline    time.Duration
}

const (
	DefaultInterval  = 5 * time.Second
	DefaultDeadline  = 300 * time.Second
	maxStatusErrors  = 3
	cleanupTimeout   = 10 * time.Second
	defaultJobPrefix = "clipscout"
)

func (o PollOptions) withDefaults() PollOptions {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.MaxInterval < o.Interval {
		o.MaxInterval = o.Interval
	}
	if o.Multiplier < 1 {
		o.Multiplier = 1
	}
	if o.Deadline <= 0 {
		o.Deadline = DefaultDeadline
	}
	return o
}

// next grows the interval by the multiplier, capped at MaxInterval
func (o PollOptions) next(current time.Duration) time.Duration {
	grown := time.Duration(float64(current) * o.Multiplier)
	if grown > o.MaxInterval {
		return o.MaxInterval
	}
	return grown
}

// Poller submits payloads to an external job service and waits for the result
type Poller struct {
	backend   Backend
	store     ObjectStore
	parse     ResultParser
	keyPrefix string
	newName   func() string
	metrics   *Metrics
	logger    *zap.Logger
}

// Option customizes a Poller
type Option func(*Poller)

// WithResultParser sets how fetched results become text. The default returns the bytes as-is.
func WithResultParser(parse ResultParser) Option {
	return func(p *Poller) { p.parse = parse }
}

// WithKeyPrefix places uploaded payloads under prefix
func WithKeyPrefix(prefix string) Option {
	return func(p *Poller) { p.keyPrefix = prefix }
}

// WithJobNamer overrides job name generation
func WithJobNamer(newName func() string) Option {
	return func(p *Poller) { p.newName = newName }
}

// WithMetrics records job outcomes on m
func WithMetrics(m *Metrics) Option {
	return func(p *Poller) { p.metrics = m }
}

// NewPoller creates a poller over backend and store
func NewPoller(backend Backend, store ObjectStore, logger *zap.Logger, opts ...Option) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Poller{
		backend: backend,
		store:   store,
		parse:   func(data []byte) (string, error) { return string(data), nil },
		newName: func() string { return fmt.Sprintf("%s-%s", defaultJobPrefix, uuid.NewString()) },
		logger:  logger.Named("jobpoll"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit uploads payload and starts a uniquely named job.
// A started job's payload is removed again when the start call fails.
func (p *Poller) Submit(ctx context.Context, payload []byte, contentType string) (*Job, error) {
	name := p.newName()
	key := p.keyPrefix + name + extensionFor(contentType)

	if err := p.store.Put(ctx, key, payload, contentType); err != nil {
		return nil, &JobSubmissionError{Job: name, Stage: "upload", Cause: err}
	}

	job := &Job{Name: name, Key: key, MediaURI: p.store.URI(key), SubmittedAt: time.Now(), Status: StatusSubmitted}
	if err := p.backend.StartJob(ctx, name, job.MediaURI); err != nil {
		cleanupCtx, cancel := detached(ctx)
		defer cancel()
		p.deletePayload(cleanupCtx, job)
		return nil, &JobSubmissionError{Job: name, Stage: "start", Cause: err}
	}

	p.logger.Info("job submitted", zap.String("job", name), zap.String("media_uri", job.MediaURI), zap.Int("bytes", len(payload)))
	return job, nil
}

// AwaitCompletion polls until the job is terminal, the deadline elapses or ctx is done.
// COMPLETED, FAILED and repeated status query failures clean up the job and payload.
// A deadline leaves both in place.
// Caller cancellation cleans up on a detached context and returns ctx.Err().
func (p *Poller) AwaitCompletion(ctx context.Context, job *Job, opts PollOptions) (string, error) {
	opts = opts.withDefaults()
	log := p.logger.With(zap.String("job", job.Name))

	pollCtx, cancel := context.WithTimeout(ctx, opts.Deadline)
	defer cancel()

	interval := opts.Interval
	statusErrors := 0
	for {
		report, err := p.backend.JobStatus(pollCtx, job.Name)
		switch {
		case pollCtx.Err() != nil:
			return "", p.stopped(ctx, job, opts)
		case err != nil:
			statusErrors++
			log.Warn("job status query failed", zap.Int("consecutive", statusErrors), zap.Error(err))
			if statusErrors >= maxStatusErrors {
				// Abandoned: nothing polls this job again.
				p.cleanup(ctx, job)
				p.metrics.recordOutcome(OutcomeStatusError, time.Since(job.SubmittedAt))
				return "", &JobStatusError{Job: job.Name, Attempts: statusErrors, LastStatus: job.Status, Cause: err}
			}
		default:
			statusErrors = 0
			if report.Status != job.Status {
				log.Debug("job status changed", zap.String("from", string(job.Status)), zap.String("to", string(report.Status)))
				job.Status = report.Status
			}

			switch report.Status {
			case StatusCompleted:
				return p.complete(ctx, pollCtx, job, report)
			case StatusFailed:
				reason := report.FailureReason
				if reason == "" {
					reason = "no failure reason reported"
				}
				p.cleanup(ctx, job)
				p.metrics.recordOutcome(OutcomeFailed, time.Since(job.SubmittedAt))
				log.Warn("job failed", zap.String("reason", reason))
				return "", &JobFailedError{Job: job.Name, Reason: reason}
			}
		}

		timer := time.NewTimer(interval)
		select {
		case <-pollCtx.Done():
			timer.Stop()
			return "", p.stopped(ctx, job, opts)
		case <-timer.C:
		}
		interval = opts.next(interval)
	}
}

// Run submits payload and waits for its result
func (p *Poller) Run(ctx context.Context, payload []byte, contentType string, opts PollOptions) (string, *Job, error) {
	job, err := p.Submit(ctx, payload, contentType)
	if err != nil {
		return "", nil, err
	}
	text, err := p.AwaitCompletion(ctx, job, opts)
	return text, job, err
}

func (p *Poller) complete(ctx, pollCtx context.Context, job *Job, report StatusReport) (string, error) {
	defer p.cleanup(ctx, job)

	data, err := p.backend.FetchResult(pollCtx, report)
	if err != nil {
		p.metrics.recordOutcome(OutcomeFailed, time.Since(job.SubmittedAt))
		return "", &JobFailedError{Job: job.Name, Reason: "failed to fetch result", Cause: err}
	}
	text, err := p.parse(data)
	if err != nil {
		p.metrics.recordOutcome(OutcomeFailed, time.Since(job.SubmittedAt))
		return "", &JobFailedError{Job: job.Name, Reason: "failed to parse result", Cause: err}
	}

	p.metrics.recordOutcome(OutcomeCompleted, time.Since(job.SubmittedAt))
	p.logger.Info("job completed", zap.String("job", job.Name), zap.Duration("elapsed", time.Since(job.SubmittedAt)))
	return text, nil
}

// stopped distinguishes the poll deadline from caller cancellation
func (p *Poller) stopped(ctx context.Context, job *Job, opts PollOptions) error {
	if err := ctx.Err(); err != nil {
		p.logger.Warn("job wait cancelled", zap.String("job", job.Name), zap.Error(err))
		p.cleanup(ctx, job)
		p.metrics.recordOutcome(OutcomeCancelled, time.Since(job.SubmittedAt))
		return err
	}

	last := job.Status
	job.Status = StatusTimedOut
	p.metrics.recordOutcome(OutcomeTimedOut, time.Since(job.SubmittedAt))
	p.logger.Warn("job timed out", zap.String("job", job.Name), zap.Duration("deadline", opts.Deadline), zap.String("last_status", string(last)))
	return &JobTimeoutError{Job: job.Name, Deadline: opts.Deadline, LastStatus: last}
}

// cleanup deletes the job and its payload. Failures are logged, never returned.
func (p *Poller) cleanup(ctx context.Context, job *Job) {
	cleanupCtx, cancel := detached(ctx)
	defer cancel()

	err := p.backend.DeleteJob(cleanupCtx, job.Name)
	p.metrics.recordCleanup("job", err)
	if err != nil {
		p.logger.Warn("failed to delete job", zap.String("job", job.Name), zap.Error(err))
	}
	p.deletePayload(cleanupCtx, job)
}

func (p *Poller) deletePayload(ctx context.Context, job *Job) {
	err := p.store.Delete(ctx, job.Key)
	p.metrics.recordCleanup("payload", err)
	if err != nil {
		p.logger.Warn("failed to delete payload", zap.String("job", job.Name), zap.String("key", job.Key), zap.Error(err))
	}
}

func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
}

func extensionFor(contentType string) string {
	switch contentType {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/flac":
		return ".flac"
	case "audio/mp4", "audio/m4a":
		return ".m4a"
	case "audio/ogg":
		return ".ogg"
	}
	return ""
}

// IsTimeout reports whether err is a JobTimeoutError
func IsTimeout(err error) bool {
	var timeout *JobTimeoutError
	return errors.As(err, &timeout)
}
