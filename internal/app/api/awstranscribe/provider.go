// Package awstranscribe transcribes audio through Amazon Transcribe batch jobs.
// Audio is staged in S3 under a prefix with a lifecycle expiration rule so
// payloads of abandoned jobs are removed even when cleanup never runs.
package awstranscribe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"clipscout/internal/app/api/awsutil"
	"clipscout/internal/app/api/provider"
	"clipscout/internal/app/jobpoll"
	"clipscout/internal/app/storage/object"
	"clipscout/internal/config"
)

// ProviderName is the variant name
const ProviderName = config.ProviderAWSTranscribe

const backoffMultiplier = 1.5

// Option customizes the provider
type Option func(*TranscriptionProvider)

// WithTranscribeAPI injects a Transcribe client and skips AWS config loading
func WithTranscribeAPI(api TranscribeAPI) Option {
	return func(p *TranscriptionProvider) { p.client = api }
}

// WithStore injects the staging store
func WithStore(store object.ExpiringStore) Option {
	return func(p *TranscriptionProvider) { p.store = store }
}

// WithHTTPClient sets the client used to download transcripts
func WithHTTPClient(client *http.Client) Option {
	return func(p *TranscriptionProvider) { p.httpClient = client }
}

// WithJobMetrics records poller outcomes on m
func WithJobMetrics(m *jobpoll.Metrics) Option {
	return func(p *TranscriptionProvider) { p.jobMetrics = m }
}

// TranscriptionProvider implements provider.TranscriptionProvider over the job poller
type TranscriptionProvider struct {
	provider.Readiness
	settings   *config.Settings
	logger     *zap.Logger
	client     TranscribeAPI
	store      object.ExpiringStore
	httpClient *http.Client
	jobMetrics *jobpoll.Metrics
	poller     *jobpoll.Poller
}

// NewTranscriptionProvider creates an uninitialized provider
func NewTranscriptionProvider(s *config.Settings, logger *zap.Logger, opts ...Option) *TranscriptionProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &TranscriptionProvider{settings: s, logger: logger.With(zap.String("provider", ProviderName))}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the variant name
func (p *TranscriptionProvider) Name() string { return ProviderName }

// Initialize creates the clients, ensures the staging bucket exists and
// installs the expiration rule on the staging prefix
func (p *TranscriptionProvider) Initialize(ctx context.Context) error {
	if p.client == nil || p.store == nil {
		cfg, creds, err := awsutil.LoadVerifiedConfig(ctx, p.settings)
		if err != nil {
			return err
		}
		if p.client == nil {
			p.client = transcribe.NewFromConfig(cfg)
		}
		if p.store == nil {
			store, err := object.NewMinioStore(object.MinioConfig{
				Endpoint:     p.settings.S3Endpoint,
				Region:       p.settings.AWSRegion,
				Bucket:       BucketName(p.settings),
				AccessKey:    creds.AccessKeyID,
				SecretKey:    creds.SecretAccessKey,
				SessionToken: creds.SessionToken,
				Secure:       !p.settings.S3Insecure,
			}, p.logger)
			if err != nil {
				return err
			}
			p.store = store
		}
	}

	if err := p.store.EnsureBucket(ctx); err != nil {
		return err
	}
	if err := p.store.SetExpiration(ctx, p.settings.TranscribeKeyPrefix, p.settings.TranscribeRetentionDays); err != nil {
		return err
	}

	p.poller = jobpoll.NewPoller(
		NewBackend(p.client, p.httpClient, p.settings.TranscribeLanguage),
		p.store,
		p.logger,
		jobpoll.WithKeyPrefix(p.settings.TranscribeKeyPrefix),
		jobpoll.WithResultParser(ParseTranscript),
		jobpoll.WithMetrics(p.jobMetrics),
	)
	p.MarkReady()
	return nil
}

// derivedBuckets holds one generated bucket name per region for the life of the process
var derivedBuckets sync.Map

// BucketName returns the configured staging bucket, otherwise a name derived once per region
func BucketName(s *config.Settings) string {
	if s.TranscribeBucket != "" {
		return s.TranscribeBucket
	}
	region := strings.ToLower(s.AWSRegion)
	if name, ok := derivedBuckets.Load(region); ok {
		return name.(string)
	}
	name, _ := derivedBuckets.LoadOrStore(region, fmt.Sprintf("clipscout-transcribe-%s-%s", region, uuid.NewString()[:8]))
	return name.(string)
}

// TranscribeAudio stages MP3 audio, runs a job and waits for its transcript.
// The model argument is ignored; Transcribe selects its own model per language.
func (p *TranscriptionProvider) TranscribeAudio(ctx context.Context, audio []byte, model string) (*provider.TranscriptionResponse, error) {
	if !p.IsAvailable() {
		return nil, &provider.ProviderUnavailableError{Provider: ProviderName, Reason: "not initialized"}
	}

	text, job, err := p.poller.Run(ctx, audio, "audio/mpeg", jobpoll.PollOptions{
		Interval:    p.settings.TranscribePollInterval,
		MaxInterval: p.settings.TranscribeMaxInterval,
		Multiplier:  backoffMultiplier,
		Deadline:    p.settings.TranscribeTimeout,
	})
	if err != nil {
		return nil, operationError(err)
	}

	return &provider.TranscriptionResponse{
		Text:     text,
		Provider: ProviderName,
		JobName:  job.Name,
	}, nil
}

// operationError keeps the poller error reachable through errors.As.
// Only submission failures and timeouts are worth retrying.
func operationError(err error) error {
	opErr := provider.NewOperationError(ProviderName, "transcription", err)
	var submitErr *jobpoll.JobSubmissionError
	var timeoutErr *jobpoll.JobTimeoutError
	opErr.Retryable = errors.As(err, &submitErr) || errors.As(err, &timeoutErr)
	return opErr
}

var _ provider.TranscriptionProvider = (*TranscriptionProvider)(nil)
