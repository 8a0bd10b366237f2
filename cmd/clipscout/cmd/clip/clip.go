package clip

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"clipscout/cmd/clipscout/cmd/shared"
	"clipscout/internal/app/search"
)

var imagePath string

// Cmd extracts the clip best matching a text query or an image
var Cmd = &cobra.Command{
	Use:   "clip <video> [query]",
	Short: "Extract the clip that best matches a query or an image",
	Example: `  clipscout clip talk.mp4 "the part about vector indexes"
  clipscout clip talk.mp4 --image frame.jpg`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		video := args[0]
		if imagePath == "" && len(args) < 2 {
			return fmt.Errorf("a query or --image is required")
		}

		a, cleanup, err := shared.Open(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		var clip *search.Clip
		if imagePath != "" {
			image, err := os.ReadFile(imagePath)
			if err != nil {
				return err
			}
			clip, err = a.Search.ClipFromImage(cmd.Context(), video, image)
			if err != nil {
				return err
			}
		} else {
			clip, err = a.Search.ClipFromQuery(cmd.Context(), video, args[1])
			if err != nil {
				return err
			}
		}

		c := clip.Candidate
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s %.2f-%.2fs similarity=%.3f\n",
			clip.Path, c.Channel, c.StartTime, c.EndTime, c.Similarity)
		return nil
	},
}

func init() {
	Cmd.Flags().StringVar(&imagePath, "image", "", "search by this image instead of a text query")
}
