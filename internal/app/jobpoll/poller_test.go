package jobpoll

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBackend struct {
	mu        sync.Mutex
	reports   []StatusReport
	statusErr []error
	calls     int
	onStatus  func(call int)
	started   []string
	startErr  error
	result    []byte
	fetchErr  error
	deleted   []string
}

func (f *fakeBackend) StartJob(ctx context.Context, name, mediaURI string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, name+"@"+mediaURI)
	return f.startErr
}

func (f *fakeBackend) JobStatus(ctx context.Context, name string) (StatusReport, error) {
	f.mu.Lock()
	call := f.calls
	f.calls++
	var err error
	if call < len(f.statusErr) {
		err = f.statusErr[call]
	}
	idx := call
	if idx >= len(f.reports) {
		idx = len(f.reports) - 1
	}
	report := f.reports[idx]
	hook := f.onStatus
	f.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if err != nil {
		return StatusReport{}, err
	}
	return report, nil
}

func (f *fakeBackend) FetchResult(ctx context.Context, report StatusReport) ([]byte, error) {
	return f.result, f.fetchErr
}

func (f *fakeBackend) DeleteJob(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, name)
	return nil
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	deleted []string
}

func newFakeStore() *fakeStore { return &fakeStore{objects: map[string][]byte{}} }

func (s *fakeStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func (s *fakeStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, key)
	delete(s.objects, key)
	return nil
}

func (s *fakeStore) URI(key string) string { return "s3://bucket/" + key }

func fastOptions() PollOptions {
	return PollOptions{Interval: time.Millisecond, Deadline: time.Second}
}

func fixedName(name string) Option {
	return WithJobNamer(func() string { return name })
}

func TestRunCompletedCleansUp(t *testing.T) {
	backend := &fakeBackend{
		reports: []StatusReport{
			{Status: StatusSubmitted},
			{Status: StatusInProgress},
			{Status: StatusCompleted, ResultURI: "https://results/job-1.json"},
		},
		result: []byte(`hello world`),
	}
	store := newFakeStore()
	p := NewPoller(backend, store, zap.NewNop(), fixedName("job-1"), WithKeyPrefix("temp-audio/"),
		WithResultParser(func(data []byte) (string, error) { return strings.ToUpper(string(data)), nil }))

	text, job, err := p.Run(context.Background(), []byte("mp3"), "audio/mpeg", fastOptions())
	require.NoError(t, err)
	assert.Equal(t, "HELLO WORLD", text)
	assert.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, "temp-audio/job-1.mp3", job.Key)
	assert.Equal(t, []string{"job-1@s3://bucket/temp-audio/job-1.mp3"}, backend.started)
	assert.Equal(t, []string{"job-1"}, backend.deleted)
	assert.Equal(t, []string{"temp-audio/job-1.mp3"}, store.deleted)
	assert.Equal(t, 3, backend.calls)
}

func TestAwaitCompletionTimeoutLeavesJob(t *testing.T) {
	backend := &fakeBackend{reports: []StatusReport{{Status: StatusInProgress}}}
	store := newFakeStore()
	p := NewPoller(backend, store, zap.NewNop(), fixedName("slow"))

	job, err := p.Submit(context.Background(), []byte("mp3"), "audio/mpeg")
	require.NoError(t, err)

	_, err = p.AwaitCompletion(context.Background(), job, PollOptions{Interval: 2 * time.Millisecond, Deadline: 30 * time.Millisecond})
	var timeout *JobTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "slow", timeout.Job)
	assert.Equal(t, StatusInProgress, timeout.LastStatus)
	assert.True(t, IsTimeout(err))
	assert.Equal(t, StatusTimedOut, job.Status)
	assert.Empty(t, backend.deleted)
	assert.Empty(t, store.deleted)
}

func TestAwaitCompletionFailedCleansUp(t *testing.T) {
	backend := &fakeBackend{reports: []StatusReport{
		{Status: StatusInProgress},
		{Status: StatusFailed, FailureReason: "unsupported media format"},
	}}
	store := newFakeStore()
	p := NewPoller(backend, store, zap.NewNop(), fixedName("bad"))

	_, _, err := p.Run(context.Background(), []byte("wav"), "audio/wav", fastOptions())
	var failed *JobFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "unsupported media format", failed.Reason)
	assert.Contains(t, err.Error(), "bad")
	assert.Equal(t, []string{"bad"}, backend.deleted)
	assert.Equal(t, []string{"bad.wav"}, store.deleted)
}

func TestAwaitCompletionFetchFailure(t *testing.T) {
	backend := &fakeBackend{
		reports:  []StatusReport{{Status: StatusCompleted}},
		fetchErr: errors.New("403 forbidden"),
	}
	store := newFakeStore()
	p := NewPoller(backend, store, zap.NewNop(), fixedName("fetch"))

	_, _, err := p.Run(context.Background(), []byte("x"), "audio/mpeg", fastOptions())
	var failed *JobFailedError
	require.ErrorAs(t, err, &failed)
	assert.EqualError(t, failed.Cause, "403 forbidden")
	assert.Equal(t, []string{"fetch"}, backend.deleted)
}

func TestAwaitCompletionCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := &fakeBackend{
		reports: []StatusReport{{Status: StatusInProgress}},
		onStatus: func(call int) {
			if call == 1 {
				cancel()
			}
		},
	}
	store := newFakeStore()
	p := NewPoller(backend, store, zap.NewNop(), fixedName("cancelled"))

	job, err := p.Submit(ctx, []byte("x"), "audio/mpeg")
	require.NoError(t, err)

	_, err = p.AwaitCompletion(ctx, job, fastOptions())
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsTimeout(err))
	assert.Equal(t, []string{"cancelled"}, backend.deleted)
	assert.Equal(t, []string{"cancelled.mp3"}, store.deleted)
}

func TestAwaitCompletionStatusErrors(t *testing.T) {
	t.Run("transient errors are retried", func(t *testing.T) {
		backend := &fakeBackend{
			reports:   []StatusReport{{Status: StatusCompleted}},
			statusErr: []error{errors.New("throttled"), errors.New("throttled")},
			result:    []byte("ok"),
		}
		p := NewPoller(backend, newFakeStore(), zap.NewNop())

		text, _, err := p.Run(context.Background(), []byte("x"), "audio/mpeg", fastOptions())
		require.NoError(t, err)
		assert.Equal(t, "ok", text)
	})

	t.Run("persistent errors surface", func(t *testing.T) {
		gone := errors.New("gone")
		backend := &fakeBackend{
			reports:   []StatusReport{{Status: StatusInProgress}},
			statusErr: []error{gone, gone, gone},
		}
		store := newFakeStore()
		m := NewMetrics(prometheus.NewRegistry())
		p := NewPoller(backend, store, zap.NewNop(), fixedName("lost"), WithMetrics(m))

		_, job, err := p.Run(context.Background(), []byte("x"), "audio/mpeg", fastOptions())
		var statusErr *JobStatusError
		require.ErrorAs(t, err, &statusErr)
		assert.ErrorIs(t, err, gone)
		assert.Equal(t, "lost", statusErr.Job)
		assert.Equal(t, maxStatusErrors, statusErr.Attempts)
		assert.Equal(t, maxStatusErrors, backend.calls)

		assert.Equal(t, []string{"lost"}, backend.deleted)
		assert.Equal(t, []string{job.Key}, store.deleted)
		assert.Empty(t, store.objects)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.jobs.WithLabelValues(OutcomeStatusError)))
	})
}

func TestSubmitErrors(t *testing.T) {
	t.Run("upload", func(t *testing.T) {
		store := newFakeStore()
		store.putErr = errors.New("bucket missing")
		backend := &fakeBackend{}
		p := NewPoller(backend, store, zap.NewNop(), fixedName("up"))

		_, err := p.Submit(context.Background(), []byte("x"), "audio/mpeg")
		var subErr *JobSubmissionError
		require.ErrorAs(t, err, &subErr)
		assert.Equal(t, "upload", subErr.Stage)
		assert.Empty(t, backend.started)
	})

	t.Run("start removes payload", func(t *testing.T) {
		store := newFakeStore()
		backend := &fakeBackend{startErr: errors.New("limit exceeded")}
		p := NewPoller(backend, store, zap.NewNop(), fixedName("start"))

		_, err := p.Submit(context.Background(), []byte("x"), "audio/mpeg")
		var subErr *JobSubmissionError
		require.ErrorAs(t, err, &subErr)
		assert.Equal(t, "start", subErr.Stage)
		assert.Equal(t, "start", subErr.Job)
		assert.Equal(t, []string{"start.mp3"}, store.deleted)
		assert.Empty(t, store.objects)
	})
}

func TestDefaultJobNamesAreUnique(t *testing.T) {
	backend := &fakeBackend{}
	p := NewPoller(backend, newFakeStore(), zap.NewNop())

	first, err := p.Submit(context.Background(), []byte("a"), "")
	require.NoError(t, err)
	second, err := p.Submit(context.Background(), []byte("b"), "")
	require.NoError(t, err)

	assert.NotEqual(t, first.Name, second.Name)
	assert.True(t, strings.HasPrefix(first.Name, defaultJobPrefix+"-"))
}

func TestPollOptionsBackoff(t *testing.T) {
	opts := PollOptions{Interval: time.Second, MaxInterval: 5 * time.Second, Multiplier: 2}.withDefaults()

	var got []time.Duration
	interval := opts.Interval
	for i := 0; i < 4; i++ {
		interval = opts.next(interval)
		got = append(got, interval)
	}
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}, got)

	defaults := PollOptions{}.withDefaults()
	assert.Equal(t, DefaultInterval, defaults.Interval)
	assert.Equal(t, DefaultInterval, defaults.MaxInterval)
	assert.Equal(t, DefaultDeadline, defaults.Deadline)
	assert.Equal(t, DefaultInterval, defaults.next(defaults.Interval))
}

func TestMetricsRecordOutcomes(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	backend := &fakeBackend{reports: []StatusReport{{Status: StatusCompleted}}, result: []byte("ok")}
	p := NewPoller(backend, newFakeStore(), zap.NewNop(), WithMetrics(m))

	_, _, err := p.Run(context.Background(), []byte("x"), "audio/mpeg", fastOptions())
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobs.WithLabelValues(OutcomeCompleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cleanups.WithLabelValues("job", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cleanups.WithLabelValues("payload", "ok")))
}
