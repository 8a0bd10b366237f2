package ask

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipscout/cmd/clipscout/cmd/shared"
)

// Cmd prints the captions most relevant to a question about a video
var Cmd = &cobra.Command{
	Use:   "ask <video> <question>",
	Short: "Answer a question with the most relevant frame captions",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := shared.Open(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		answer, err := a.Search.AskQuestion(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), answer)
		return nil
	},
}
