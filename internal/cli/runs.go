// runs.go implements the "ddt runs" command listing recorded runs.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ddtlab/ddt/internal/record"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs",
	Long: `List the runs in the local trial record, newest first, with their
status and how many trials were accepted by the design service.`,
	Args: cobra.NoArgs,
	RunE: runRuns,
}

func runRuns(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	summaries, err := store.ListRuns()
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	if len(summaries) == 0 {
		return fmt.Errorf("no runs found; start one with: ddt run")
	}

	printRuns(os.Stdout, summaries)
	return nil
}

func printRuns(w io.Writer, summaries []record.Summary) {
	fmt.Fprintf(w, "%-36s  %-12s  %-10s  %-8s  %5s  %5s  %s\n",
		"RUN", "PARTICIPANT", "STATUS", "SESSIONS", "MAIN", "TRAIN", "UPDATED")
	for _, s := range summaries {
		fmt.Fprintf(w, "%-36s  %-12s  %-10s  %-8d  %5d  %5d  %s\n",
			s.ID, s.Participant, s.Status, s.SessionCount,
			s.MainTrials, s.TrainTrials, s.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
}

// openStore opens the trial record in the configured data directory.
func openStore(cmd *cobra.Command) (*record.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	store, err := record.Open(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening trial record: %w", err)
	}
	return store, nil
}
