package awstranscribe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"

	"clipscout/internal/app/jobpoll"
)

// TranscribeAPI is the subset of the Transcribe client used here
type TranscribeAPI interface {
	StartTranscriptionJob(ctx context.Context, params *transcribe.StartTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.StartTranscriptionJobOutput, error)
	GetTranscriptionJob(ctx context.Context, params *transcribe.GetTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.GetTranscriptionJobOutput, error)
	DeleteTranscriptionJob(ctx context.Context, params *transcribe.DeleteTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.DeleteTranscriptionJobOutput, error)
}

// Backend adapts Amazon Transcribe batch jobs to the poller
type Backend struct {
	client     TranscribeAPI
	httpClient *http.Client
	language   string
}

// NewBackend creates a backend submitting jobs in language
func NewBackend(client TranscribeAPI, httpClient *http.Client, language string) *Backend {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Backend{client: client, httpClient: httpClient, language: language}
}

func (b *Backend) StartJob(ctx context.Context, name, mediaURI string) error {
	_, err := b.client.StartTranscriptionJob(ctx, &transcribe.StartTranscriptionJobInput{
		TranscriptionJobName: aws.String(name),
		Media:                &types.Media{MediaFileUri: aws.String(mediaURI)},
		MediaFormat:          mediaFormat(mediaURI),
		LanguageCode:         types.LanguageCode(b.language),
	})
	return err
}

func (b *Backend) JobStatus(ctx context.Context, name string) (jobpoll.StatusReport, error) {
	out, err := b.client.GetTranscriptionJob(ctx, &transcribe.GetTranscriptionJobInput{
		TranscriptionJobName: aws.String(name),
	})
	if err != nil {
		return jobpoll.StatusReport{}, err
	}
	job := out.TranscriptionJob
	if job == nil {
		return jobpoll.StatusReport{}, fmt.Errorf("transcription job %s missing from response", name)
	}

	report := jobpoll.StatusReport{
		Status:        convertStatus(job.TranscriptionJobStatus),
		FailureReason: aws.ToString(job.FailureReason),
	}
	if job.Transcript != nil {
		report.ResultURI = aws.ToString(job.Transcript.TranscriptFileUri)
	}
	return report, nil
}

// FetchResult downloads the transcript document from its presigned URI
func (b *Backend) FetchResult(ctx context.Context, report jobpoll.StatusReport) ([]byte, error) {
	if report.ResultURI == "" {
		return nil, fmt.Errorf("completed job has no transcript URI")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, report.ResultURI, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transcript download returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (b *Backend) DeleteJob(ctx context.Context, name string) error {
	_, err := b.client.DeleteTranscriptionJob(ctx, &transcribe.DeleteTranscriptionJobInput{
		TranscriptionJobName: aws.String(name),
	})
	return err
}

func convertStatus(status types.TranscriptionJobStatus) jobpoll.Status {
	switch status {
	case types.TranscriptionJobStatusCompleted:
		return jobpoll.StatusCompleted
	case types.TranscriptionJobStatusFailed:
		return jobpoll.StatusFailed
	case types.TranscriptionJobStatusInProgress:
		return jobpoll.StatusInProgress
	default:
		return jobpoll.StatusSubmitted
	}
}

func mediaFormat(uri string) types.MediaFormat {
	switch strings.ToLower(path.Ext(uri)) {
	case ".wav":
		return types.MediaFormatWav
	case ".flac":
		return types.MediaFormatFlac
	case ".m4a":
		return types.MediaFormatM4a
	case ".ogg":
		return types.MediaFormatOgg
	case ".mp4":
		return types.MediaFormatMp4
	default:
		return types.MediaFormatMp3
	}
}

type transcriptDocument struct {
	Results struct {
		Transcripts []struct {
			Transcript string `json:"transcript"`
		} `json:"transcripts"`
	} `json:"results"`
}

// ParseTranscript extracts the text of a Transcribe result document
func ParseTranscript(data []byte) (string, error) {
	var doc transcriptDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("failed to decode transcript: %w", err)
	}
	parts := make([]string, 0, len(doc.Results.Transcripts))
	for _, t := range doc.Results.Transcripts {
		if text := strings.TrimSpace(t.Transcript); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}
