package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"clipscout/cmd/clipscout/cmd/ask"
	"clipscout/cmd/clipscout/cmd/clip"
	"clipscout/cmd/clipscout/cmd/ingest"
	"clipscout/cmd/clipscout/cmd/invoke"
	"clipscout/cmd/clipscout/cmd/providers"
	"clipscout/cmd/clipscout/cmd/shared"
	"clipscout/cmd/clipscout/cmd/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "clipscout",
	Short: "Index videos and retrieve clips by speech, caption or image similarity",
	Long: `clipscout ingests a video into a vector index and answers clip requests.
- ingest transcribes audio chunks and captions sampled frames
- clip finds the best matching time range and extracts it with ffmpeg
- ask returns the captions most relevant to a question
AI capabilities are served by configurable providers with automatic fallback.`,
	SilenceUsage:     true,
	TraverseChildren: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// Interrupts cancel the command context so in-flight jobs get cleaned up.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(providers.Cmd)
	rootCmd.AddCommand(ingest.Cmd)
	rootCmd.AddCommand(clip.Cmd)
	rootCmd.AddCommand(ask.Cmd)
	rootCmd.AddCommand(invoke.CaptionCmd)
	rootCmd.AddCommand(invoke.TranscribeCmd)
	rootCmd.AddCommand(invoke.EmbedCmd)
	rootCmd.AddCommand(invoke.ChatCmd)
	rootCmd.AddCommand(version.Cmd)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&shared.Options.ConfigPath, "config", "c", "", "settings file (default ./clipscout.yaml when present)")
	flags.BoolVarP(&shared.Options.Verbose, "verbose", "V", false, "verbose output")
	flags.StringVar(&shared.Options.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
}
