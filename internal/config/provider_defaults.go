package config

import "time"

// Provider selector values
const (
	ProviderOpenAI        = "openai"
	ProviderBedrock       = "bedrock"
	ProviderGroq          = "groq"
	ProviderAnthropic     = "anthropic"
	ProviderGemini        = "gemini"
	ProviderAWSTranscribe = "aws_transcribe"
	ProviderWhisperServer = "whisper_server"
)

// Default configuration constants
const (
	DefaultAWSRegion = "us-east-1"

	// Model defaults
	DefaultImageCaptionModel        = "gpt-4o-mini"
	DefaultAudioTranscriptModel     = "gpt-4o-mini-transcribe"
	DefaultTranscriptEmbeddingModel = "text-embedding-3-small"
	DefaultBedrockClaudeModel       = "us.anthropic.claude-3-5-sonnet-20241022-v2:0"
	DefaultBedrockEmbeddingsModel   = "amazon.titan-embed-text-v1"
	DefaultBedrockImageModel        = "amazon.titan-embed-image-v1"
	DefaultGroqModel                = "meta-llama/llama-4-maverick-17b-128e-instruct"
	DefaultAnthropicModel           = "claude-3-5-sonnet-latest"
	DefaultGeminiEmbeddingsModel    = "text-embedding-004"
	DefaultCaptionPrompt            = "Describe what is happening in the image"

	// Groq speaks the OpenAI wire protocol
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"

	// Transcription job defaults
	DefaultTranscribeKeyPrefix     = "temp-audio/"
	DefaultTranscribeRetentionDays = 1
	DefaultTranscribePollInterval  = 5 * time.Second
	DefaultTranscribeMaxInterval   = 15 * time.Second
	DefaultTranscribeTimeout       = 300 * time.Second
	DefaultTranscribeLanguage      = "en-US"

	// Self-hosted whisper.cpp server defaults
	DefaultWhisperServerInferencePath = "/inference"
	DefaultWhisperServerFormat        = "json"
	DefaultWhisperServerTimeout       = 120 * time.Second

	// Ingestion defaults
	DefaultAudioChunkLength      = 10
	DefaultAudioOverlapSeconds   = 1
	DefaultAudioMinChunkDuration = 1
	DefaultSplitFramesCount      = 45
	DefaultImageResizeWidth      = 1024
	DefaultImageResizeHeight     = 768

	// Search defaults
	DefaultSpeechTopK        = 1
	DefaultCaptionTopK       = 1
	DefaultImageTopK         = 1
	DefaultQuestionTopK      = 3

	// Media tooling
	DefaultFFmpegPath        = "ffmpeg"
	DefaultFFprobePath       = "ffprobe"
	DefaultClipOutputDir     = "./shared_media"
	DefaultDeltaSecondsFrame = 5.0
	DefaultEmbeddingCacheTTL = 24 * time.Hour

	// Chat defaults
	DefaultChatMaxTokens   = 4096
	DefaultChatTemperature = 0.7
	DefaultChatTopP        = 0.9
	DefaultVisionMaxTokens = 1000

	DefaultOpenAITimeout = 60 * time.Second
)

// DefaultChannelPriority orders retrieval channels for tie-breaks
var DefaultChannelPriority = []string{"speech", "caption", "image"}

// Fallback variants per capability
var defaultFallbacks = map[string]string{
	"vision":        ProviderOpenAI,
	"transcription": ProviderAWSTranscribe,
	"embeddings":    ProviderOpenAI,
	"chat":          ProviderGroq,
}

// Defaults returns settings populated with built-in defaults
func Defaults() *Settings {
	return &Settings{
		VisionProvider:        ProviderOpenAI,
		TranscriptionProvider: ProviderOpenAI,
		EmbeddingsProvider:    ProviderOpenAI,
		ChatProvider:          ProviderGroq,

		FallbackVisionProvider:        defaultFallbacks["vision"],
		FallbackTranscriptionProvider: defaultFallbacks["transcription"],
		FallbackEmbeddingsProvider:    defaultFallbacks["embeddings"],
		FallbackChatProvider:          defaultFallbacks["chat"],

		AWSRegion:   DefaultAWSRegion,
		GroqBaseURL: DefaultGroqBaseURL,

		ImageCaptionModel:        DefaultImageCaptionModel,
		AudioTranscriptModel:     DefaultAudioTranscriptModel,
		TranscriptEmbeddingModel: DefaultTranscriptEmbeddingModel,
		BedrockClaudeModel:       DefaultBedrockClaudeModel,
		BedrockEmbeddingsModel:   DefaultBedrockEmbeddingsModel,
		BedrockImageModel:        DefaultBedrockImageModel,
		GroqModel:                DefaultGroqModel,
		AnthropicModel:           DefaultAnthropicModel,
		GeminiEmbeddingsModel:    DefaultGeminiEmbeddingsModel,
		CaptionPrompt:            DefaultCaptionPrompt,

		TranscribeKeyPrefix:     DefaultTranscribeKeyPrefix,
		TranscribeRetentionDays: DefaultTranscribeRetentionDays,
		TranscribePollInterval:  DefaultTranscribePollInterval,
		TranscribeMaxInterval:   DefaultTranscribeMaxInterval,
		TranscribeTimeout:       DefaultTranscribeTimeout,
		TranscribeLanguage:      DefaultTranscribeLanguage,

		WhisperServerInferencePath: DefaultWhisperServerInferencePath,
		WhisperServerFormat:        DefaultWhisperServerFormat,
		WhisperServerTimeout:       DefaultWhisperServerTimeout,

		AudioChunkLength:      DefaultAudioChunkLength,
		AudioOverlapSeconds:   DefaultAudioOverlapSeconds,
		AudioMinChunkDuration: DefaultAudioMinChunkDuration,
		SplitFramesCount:      DefaultSplitFramesCount,
		ImageResizeWidth:      DefaultImageResizeWidth,
		ImageResizeHeight:     DefaultImageResizeHeight,
		FFmpegPath:            DefaultFFmpegPath,
		FFprobePath:           DefaultFFprobePath,
		ClipOutputDir:         DefaultClipOutputDir,

		SpeechTopK:        DefaultSpeechTopK,
		CaptionTopK:       DefaultCaptionTopK,
		ImageTopK:         DefaultImageTopK,
		QuestionTopK:      DefaultQuestionTopK,
		DeltaSecondsFrame: DefaultDeltaSecondsFrame,
		ChannelPriority:   append([]string(nil), DefaultChannelPriority...),
		EmbeddingCacheTTL: DefaultEmbeddingCacheTTL,

		LogLevel: "info",
	}
}
