package ingest

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipscout/cmd/clipscout/cmd/shared"
	"clipscout/internal/app/util/files"
)

var reindex bool

// Cmd indexes one or more videos
var Cmd = &cobra.Command{
	Use:   "ingest <video|dir>...",
	Short: "Transcribe, caption and index videos for search",
	Long:  "Index each video given. A directory expands to the videos directly inside it, oldest first.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		videos, err := files.Collect(args)
		if err != nil {
			return err
		}
		if len(videos) == 0 {
			return fmt.Errorf("no videos found")
		}

		a, cleanup, err := shared.Open(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		out := cmd.OutOrStdout()
		for _, video := range videos {
			run := a.Ingestor.Ingest
			if reindex {
				run = a.Ingestor.Reingest
			}
			report, err := run(cmd.Context(), video)
			if err != nil {
				return fmt.Errorf("ingest %s: %w", video, err)
			}
			if report.Skipped {
				fmt.Fprintf(out, "%s: already indexed, use --reindex to rebuild\n", video)
				continue
			}
			fmt.Fprintf(out, "%s: %d speech, %d caption, %d image entries (%d silent chunks)\n",
				video, report.SpeechEntries, report.CaptionEntries, report.ImageEntries, report.EmptyChunks)
		}
		return nil
	},
}

func init() {
	Cmd.Flags().BoolVar(&reindex, "reindex", false, "drop existing entries and ingest again")
}
