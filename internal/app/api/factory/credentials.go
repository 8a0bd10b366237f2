package factory

import (
	apperrors "clipscout/internal/app/errors"
	"clipscout/internal/config"
)

// checkCredential reports a missing credential for variants that need an API key or endpoint.
// AWS variants resolve credentials through the SDK default chain and always pass.
func checkCredential(settings *config.Settings, variant string) error {
	switch variant {
	case config.ProviderOpenAI:
		if !settings.HasOpenAI() {
			return apperrors.MissingKey("OPENAI_API_KEY")
		}
	case config.ProviderGroq:
		if !settings.HasGroq() {
			return apperrors.MissingKey("GROQ_API_KEY")
		}
	case config.ProviderAnthropic:
		if !settings.HasAnthropic() {
			return apperrors.MissingKey("ANTHROPIC_API_KEY")
		}
	case config.ProviderGemini:
		if !settings.HasGemini() {
			return apperrors.MissingKey("GEMINI_API_KEY")
		}
	case config.ProviderWhisperServer:
		if !settings.HasWhisperServer() {
			return apperrors.MissingKey("WHISPER_SERVER_URL")
		}
	}
	return nil
}
