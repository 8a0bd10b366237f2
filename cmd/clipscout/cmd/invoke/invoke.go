// Package invoke exposes one-shot calls against each capability
package invoke

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"clipscout/cmd/clipscout/cmd/shared"
	"clipscout/internal/app/api/provider"
)

var (
	captionPrompt string
	chatSystem    string
	chatModel     string
	embedModel    string
	embedJSON     bool
)

// CaptionCmd captions an image file
var CaptionCmd = &cobra.Command{
	Use:   "caption <image>",
	Short: "Caption an image with the vision provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		image, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		a, cleanup, err := shared.Open(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		p, err := a.Factory.VisionProviderWithFallback(cmd.Context())
		if err != nil {
			return err
		}
		prompt := captionPrompt
		if prompt == "" {
			prompt = a.Settings.CaptionPrompt
		}
		resp, err := p.GenerateCaption(cmd.Context(), image, prompt)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), resp.Caption)
		return nil
	},
}

// TranscribeCmd transcribes an audio file
var TranscribeCmd = &cobra.Command{
	Use:   "transcribe <audio>",
	Short: "Transcribe an audio file with the transcription provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		audio, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		a, cleanup, err := shared.Open(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		p, err := a.Factory.TranscriptionProviderWithFallback(cmd.Context())
		if err != nil {
			return err
		}
		resp, err := p.TranscribeAudio(cmd.Context(), audio, "")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), resp.Text)
		return nil
	},
}

// EmbedCmd embeds a piece of text
var EmbedCmd = &cobra.Command{
	Use:   "embed <text>",
	Short: "Embed text with the embeddings provider",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := shared.Open(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		p, err := a.Factory.EmbeddingsProviderWithFallback(cmd.Context())
		if err != nil {
			return err
		}
		resp, err := p.GenerateEmbeddings(cmd.Context(), strings.Join(args, " "), embedModel)
		if err != nil {
			return err
		}
		if embedJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s dimensions=%d\n", resp.Provider, resp.Model, len(resp.Embedding))
		return nil
	},
}

// ChatCmd sends a single user message
var ChatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Send a message to the chat provider",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := shared.Open(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		p, err := a.Factory.ChatProviderWithFallback(cmd.Context())
		if err != nil {
			return err
		}
		resp, err := p.ChatCompletion(cmd.Context(), conversation(chatSystem, strings.Join(args, " ")),
			provider.ChatOptions{Model: chatModel})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), resp.Content)
		return nil
	},
}

func conversation(system, message string) []provider.Message {
	var msgs []provider.Message
	if system != "" {
		msgs = append(msgs, provider.TextMessage(provider.RoleSystem, system))
	}
	return append(msgs, provider.TextMessage(provider.RoleUser, message))
}

func init() {
	CaptionCmd.Flags().StringVar(&captionPrompt, "prompt", "", "caption prompt (default from settings)")
	EmbedCmd.Flags().StringVar(&embedModel, "model", "", "embedding model (default from provider)")
	EmbedCmd.Flags().BoolVar(&embedJSON, "json", false, "print the full response as JSON")
	ChatCmd.Flags().StringVar(&chatSystem, "system", "", "system prompt")
	ChatCmd.Flags().StringVar(&chatModel, "model", "", "chat model (default from provider)")
}
