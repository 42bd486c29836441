// label.go implements the "ddt label" command.
package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ddtlab/ddt/internal/experiment"
)

var labelCmd = &cobra.Command{
	Use:   "label <weeks>...",
	Short: "Show the participant label for delays",
	Long: `Print the label participants see for each delay, given in weeks.
The nearest entry of the label table wins; ties go to the shorter delay.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLabel,
}

func runLabel(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	for _, a := range args {
		weeks, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return fmt.Errorf("invalid delay %q: %w", a, err)
		}
		fmt.Fprintf(out, "%s\t%s\n", a, experiment.LabelDelay(weeks))
	}
	return nil
}
