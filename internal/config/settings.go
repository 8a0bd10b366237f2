package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	apperrors "clipscout/internal/app/errors"
)

// DefaultConfigFile is read when no explicit path is given and the file exists
const DefaultConfigFile = "clipscout.yaml"

// Settings is the flat key-value configuration read once at startup
type Settings struct {
	VisionProvider        string `yaml:"vision_provider" validate:"oneof=openai bedrock"`
	TranscriptionProvider string `yaml:"transcription_provider" validate:"oneof=openai aws_transcribe whisper_server"`
	EmbeddingsProvider    string `yaml:"embeddings_provider" validate:"oneof=openai bedrock gemini"`
	ChatProvider          string `yaml:"chat_provider" validate:"oneof=groq bedrock anthropic openai"`

	FallbackVisionProvider        string `yaml:"fallback_vision_provider" validate:"omitempty,oneof=openai bedrock"`
	FallbackTranscriptionProvider string `yaml:"fallback_transcription_provider" validate:"omitempty,oneof=openai aws_transcribe whisper_server"`
	FallbackEmbeddingsProvider    string `yaml:"fallback_embeddings_provider" validate:"omitempty,oneof=openai bedrock gemini"`
	FallbackChatProvider          string `yaml:"fallback_chat_provider" validate:"omitempty,oneof=groq bedrock anthropic openai"`

	OpenAIAPIKey       string `yaml:"openai_api_key"`
	OpenAIBaseURL      string `yaml:"openai_base_url"`
	GroqAPIKey         string `yaml:"groq_api_key"`
	GroqBaseURL        string `yaml:"groq_base_url"`
	AnthropicAPIKey    string `yaml:"anthropic_api_key"`
	AnthropicBaseURL   string `yaml:"anthropic_base_url"`
	GeminiAPIKey       string `yaml:"gemini_api_key"`
	GeminiBaseURL      string `yaml:"gemini_base_url"`
	AWSRegion          string `yaml:"aws_region" validate:"required"`
	AWSAccessKeyID     string `yaml:"aws_access_key_id"`
	AWSSecretAccessKey string `yaml:"aws_secret_access_key"`
	AWSSessionToken    string `yaml:"aws_session_token"`

	ImageCaptionModel        string `yaml:"image_caption_model" validate:"required"`
	AudioTranscriptModel     string `yaml:"audio_transcript_model" validate:"required"`
	TranscriptEmbeddingModel string `yaml:"transcript_similarity_embd_model" validate:"required"`
	BedrockClaudeModel       string `yaml:"bedrock_claude_model" validate:"required"`
	BedrockEmbeddingsModel   string `yaml:"bedrock_embeddings_model" validate:"required"`
	BedrockImageModel        string `yaml:"bedrock_image_embeddings_model" validate:"required"`
	GroqModel                string `yaml:"groq_tool_use_model" validate:"required"`
	AnthropicModel           string `yaml:"anthropic_model" validate:"required"`
	GeminiEmbeddingsModel    string `yaml:"gemini_embeddings_model" validate:"required"`
	CaptionPrompt            string `yaml:"caption_model_prompt" validate:"required"`

	TranscribeBucket        string        `yaml:"transcribe_bucket"`
	TranscribeKeyPrefix     string        `yaml:"transcribe_key_prefix" validate:"required"`
	TranscribeRetentionDays int           `yaml:"transcribe_retention_days" validate:"gte=1"`
	TranscribePollInterval  time.Duration `yaml:"transcribe_poll_interval" validate:"gt=0"`
	TranscribeMaxInterval   time.Duration `yaml:"transcribe_max_poll_interval" validate:"gtefield=TranscribePollInterval"`
	TranscribeTimeout       time.Duration `yaml:"transcribe_timeout" validate:"gt=0"`
	TranscribeLanguage      string        `yaml:"transcribe_language" validate:"required"`
	S3Endpoint              string        `yaml:"s3_endpoint"`
	S3Insecure              bool          `yaml:"s3_insecure"`

	WhisperServerURL           string        `yaml:"whisper_server_url" validate:"omitempty,url"`
	WhisperServerInferencePath string        `yaml:"whisper_server_inference_path" validate:"required"`
	WhisperServerLanguage      string        `yaml:"whisper_server_language"`
	WhisperServerFormat        string        `yaml:"whisper_server_response_format" validate:"oneof=json verbose_json text srt vtt"`
	WhisperServerTimeout       time.Duration `yaml:"whisper_server_timeout" validate:"gt=0"`

	AudioChunkLength      int `yaml:"audio_chunk_length" validate:"gt=0"`
	AudioOverlapSeconds   int `yaml:"audio_overlap_seconds" validate:"gte=0,ltfield=AudioChunkLength"`
	AudioMinChunkDuration int `yaml:"audio_min_chunk_duration_seconds" validate:"gte=0"`
	SplitFramesCount      int `yaml:"split_frames_count" validate:"gt=0"`
	ImageResizeWidth      int `yaml:"image_resize_width" validate:"gt=0"`
	ImageResizeHeight     int `yaml:"image_resize_height" validate:"gt=0"`

	FFmpegPath    string `yaml:"ffmpeg_path" validate:"required"`
	FFprobePath   string `yaml:"ffprobe_path" validate:"required"`
	ClipOutputDir string `yaml:"clip_output_dir" validate:"required"`

	SpeechTopK        int           `yaml:"video_clip_speech_search_top_k" validate:"gt=0"`
	CaptionTopK       int           `yaml:"video_clip_caption_search_top_k" validate:"gt=0"`
	ImageTopK         int           `yaml:"video_clip_image_search_top_k" validate:"gt=0"`
	QuestionTopK      int           `yaml:"question_answer_top_k" validate:"gt=0"`
	DeltaSecondsFrame float64       `yaml:"delta_seconds_frame_interval" validate:"gte=0"`
	ChannelPriority   []string      `yaml:"channel_priority" validate:"min=1,unique,dive,oneof=speech caption image"`
	ImageSearch       bool          `yaml:"image_search_enabled"`
	DatabaseURL       string        `yaml:"database_url"`
	RedisURL          string        `yaml:"redis_url"`
	EmbeddingCacheTTL time.Duration `yaml:"embedding_cache_ttl" validate:"gte=0"`

	LogLevel              string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogDevelopment        bool   `yaml:"log_development"`
	MetricsAddr           string `yaml:"metrics_addr"`
	VerifyProvidersOnInit bool   `yaml:"verify_providers_on_init"`
}

// Load builds settings from defaults, an optional YAML file and the environment.
// An empty path falls back to DefaultConfigFile when present.
func Load(path string) (*Settings, error) {
	if err := LoadEnv(); err != nil {
		return nil, err
	}

	settings := Defaults()

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}
	if path != "" {
		if err := settings.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := settings.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	settings.normalize()

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *Settings) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), s); err != nil {
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return nil
}

// Validate checks selector values and numeric tunables
func (s *Settings) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		if validationErrs, ok := err.(validator.ValidationErrors); ok && len(validationErrs) > 0 {
			first := validationErrs[0]
			return apperrors.InvalidField(first.Field(), fmt.Sprintf("failed %q check (value %v)", first.Tag(), first.Value()))
		}
		return apperrors.Wrap(apperrors.ErrInvalidConfig, err.Error())
	}
	return nil
}

// normalize lowercases provider selectors so selection is case-insensitive
func (s *Settings) normalize() {
	for _, field := range []*string{
		&s.VisionProvider, &s.TranscriptionProvider, &s.EmbeddingsProvider, &s.ChatProvider,
		&s.FallbackVisionProvider, &s.FallbackTranscriptionProvider, &s.FallbackEmbeddingsProvider, &s.FallbackChatProvider,
		&s.LogLevel,
	} {
		*field = strings.ToLower(strings.TrimSpace(*field))
	}
	for i, ch := range s.ChannelPriority {
		s.ChannelPriority[i] = strings.ToLower(strings.TrimSpace(ch))
	}
}

type lookupFunc func(string) (string, bool)

// applyEnv overrides fields from environment variables
func (s *Settings) applyEnv(lookup lookupFunc) error {
	e := envReader{lookup: lookup}

	e.str(&s.VisionProvider, "VISION_PROVIDER")
	e.str(&s.TranscriptionProvider, "TRANSCRIPTION_PROVIDER")
	e.str(&s.EmbeddingsProvider, "EMBEDDINGS_PROVIDER")
	e.str(&s.ChatProvider, "CHAT_PROVIDER", "AGENT_PROVIDER")
	e.str(&s.FallbackVisionProvider, "FALLBACK_VISION_PROVIDER")
	e.str(&s.FallbackTranscriptionProvider, "FALLBACK_TRANSCRIPTION_PROVIDER")
	e.str(&s.FallbackEmbeddingsProvider, "FALLBACK_EMBEDDINGS_PROVIDER")
	e.str(&s.FallbackChatProvider, "FALLBACK_CHAT_PROVIDER")

	e.str(&s.OpenAIAPIKey, "OPENAI_API_KEY")
	e.str(&s.OpenAIBaseURL, "OPENAI_BASE_URL")
	e.str(&s.GroqAPIKey, "GROQ_API_KEY")
	e.str(&s.GroqBaseURL, "GROQ_BASE_URL")
	e.str(&s.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	e.str(&s.AnthropicBaseURL, "ANTHROPIC_BASE_URL")
	e.str(&s.GeminiAPIKey, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	e.str(&s.GeminiBaseURL, "GEMINI_BASE_URL")
	e.str(&s.AWSRegion, "AWS_REGION", "AWS_DEFAULT_REGION")
	e.str(&s.AWSAccessKeyID, "AWS_ACCESS_KEY_ID")
	e.str(&s.AWSSecretAccessKey, "AWS_SECRET_ACCESS_KEY")
	e.str(&s.AWSSessionToken, "AWS_SESSION_TOKEN")

	e.str(&s.ImageCaptionModel, "IMAGE_CAPTION_MODEL")
	e.str(&s.AudioTranscriptModel, "AUDIO_TRANSCRIPT_MODEL")
	e.str(&s.TranscriptEmbeddingModel, "TRANSCRIPT_SIMILARITY_EMBD_MODEL")
	e.str(&s.BedrockClaudeModel, "BEDROCK_CLAUDE_MODEL")
	e.str(&s.BedrockEmbeddingsModel, "BEDROCK_EMBEDDINGS_MODEL")
	e.str(&s.BedrockImageModel, "BEDROCK_IMAGE_EMBEDDINGS_MODEL")
	e.str(&s.GroqModel, "GROQ_TOOL_USE_MODEL")
	e.str(&s.AnthropicModel, "ANTHROPIC_MODEL")
	e.str(&s.GeminiEmbeddingsModel, "GEMINI_EMBEDDINGS_MODEL")
	e.str(&s.CaptionPrompt, "CAPTION_MODEL_PROMPT")

	e.str(&s.TranscribeBucket, "TRANSCRIBE_BUCKET")
	e.str(&s.TranscribeKeyPrefix, "TRANSCRIBE_KEY_PREFIX")
	e.integer(&s.TranscribeRetentionDays, "TRANSCRIBE_RETENTION_DAYS")
	e.duration(&s.TranscribePollInterval, "TRANSCRIBE_POLL_INTERVAL")
	e.duration(&s.TranscribeMaxInterval, "TRANSCRIBE_MAX_POLL_INTERVAL")
	e.duration(&s.TranscribeTimeout, "TRANSCRIBE_TIMEOUT")
	e.str(&s.TranscribeLanguage, "TRANSCRIBE_LANGUAGE")
	e.str(&s.S3Endpoint, "S3_ENDPOINT")
	e.boolean(&s.S3Insecure, "S3_INSECURE")
	e.str(&s.WhisperServerURL, "WHISPER_SERVER_URL")
	e.str(&s.WhisperServerInferencePath, "WHISPER_SERVER_INFERENCE_PATH")
	e.str(&s.WhisperServerLanguage, "WHISPER_SERVER_LANGUAGE")
	e.str(&s.WhisperServerFormat, "WHISPER_SERVER_RESPONSE_FORMAT")
	e.duration(&s.WhisperServerTimeout, "WHISPER_SERVER_TIMEOUT")

	e.integer(&s.AudioChunkLength, "AUDIO_CHUNK_LENGTH")
	e.integer(&s.AudioOverlapSeconds, "AUDIO_OVERLAP_SECONDS")
	e.integer(&s.AudioMinChunkDuration, "AUDIO_MIN_CHUNK_DURATION_SECONDS")
	e.integer(&s.SplitFramesCount, "SPLIT_FRAMES_COUNT")
	e.integer(&s.ImageResizeWidth, "IMAGE_RESIZE_WIDTH")
	e.integer(&s.ImageResizeHeight, "IMAGE_RESIZE_HEIGHT")
	e.str(&s.FFmpegPath, "FFMPEG_PATH")
	e.str(&s.FFprobePath, "FFPROBE_PATH")
	e.str(&s.ClipOutputDir, "CLIP_OUTPUT_DIR")

	e.integer(&s.SpeechTopK, "VIDEO_CLIP_SPEECH_SEARCH_TOP_K")
	e.integer(&s.CaptionTopK, "VIDEO_CLIP_CAPTION_SEARCH_TOP_K")
	e.integer(&s.ImageTopK, "VIDEO_CLIP_IMAGE_SEARCH_TOP_K")
	e.integer(&s.QuestionTopK, "QUESTION_ANSWER_TOP_K")
	e.float(&s.DeltaSecondsFrame, "DELTA_SECONDS_FRAME_INTERVAL")
	e.list(&s.ChannelPriority, "CHANNEL_PRIORITY")
	e.boolean(&s.ImageSearch, "IMAGE_SEARCH_ENABLED")
	e.str(&s.DatabaseURL, "DATABASE_URL")
	e.str(&s.RedisURL, "REDIS_URL")
	e.duration(&s.EmbeddingCacheTTL, "EMBEDDING_CACHE_TTL")

	e.str(&s.LogLevel, "LOG_LEVEL")
	e.boolean(&s.LogDevelopment, "LOG_DEVELOPMENT")
	e.str(&s.MetricsAddr, "METRICS_ADDR")
	e.boolean(&s.VerifyProvidersOnInit, "VERIFY_PROVIDERS_ON_INIT")

	return e.err
}

// envReader collects the first parse failure so callers check once
type envReader struct {
	lookup lookupFunc
	err    error
}

func (e *envReader) value(names ...string) (string, string, bool) {
	for _, name := range names {
		if v, ok := e.lookup(name); ok && strings.TrimSpace(v) != "" {
			return name, strings.TrimSpace(v), true
		}
	}
	return "", "", false
}

func (e *envReader) fail(name, value string, err error) {
	if e.err == nil {
		e.err = apperrors.InvalidField(name, fmt.Sprintf("cannot parse %q: %v", value, err))
	}
}

func (e *envReader) str(dst *string, names ...string) {
	if _, v, ok := e.value(names...); ok {
		*dst = v
	}
}

func (e *envReader) integer(dst *int, names ...string) {
	name, v, ok := e.value(names...)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(name, v, err)
		return
	}
	*dst = n
}

func (e *envReader) float(dst *float64, names ...string) {
	name, v, ok := e.value(names...)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(name, v, err)
		return
	}
	*dst = f
}

func (e *envReader) boolean(dst *bool, names ...string) {
	name, v, ok := e.value(names...)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(name, v, err)
		return
	}
	*dst = b
}

// duration accepts Go durations ("5s") or bare seconds ("300")
func (e *envReader) duration(dst *time.Duration, names ...string) {
	name, v, ok := e.value(names...)
	if !ok {
		return
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = time.Duration(secs * float64(time.Second))
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(name, v, err)
		return
	}
	*dst = d
}

func (e *envReader) list(dst *[]string, names ...string) {
	if _, v, ok := e.value(names...); ok {
		var items []string
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		*dst = items
	}
}

// HasOpenAI reports whether an OpenAI credential is configured
func (s *Settings) HasOpenAI() bool { return s.OpenAIAPIKey != "" }

// HasGroq reports whether a Groq credential is configured
func (s *Settings) HasGroq() bool { return s.GroqAPIKey != "" }

// HasAnthropic reports whether an Anthropic credential is configured
func (s *Settings) HasAnthropic() bool { return s.AnthropicAPIKey != "" }

// HasGemini reports whether a Gemini credential is configured
func (s *Settings) HasGemini() bool { return s.GeminiAPIKey != "" }

// HasWhisperServer reports whether a self-hosted whisper server is configured
func (s *Settings) HasWhisperServer() bool { return s.WhisperServerURL != "" }
