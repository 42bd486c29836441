// export.go implements the "ddt export" command writing a run as TSV.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ddtlab/ddt/internal/record"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a run's main trials as TSV",
	Long: `Write the main trials of a run as tab-separated values with the
columns subject, block, block_type, trial, t_ss, t_ll, r_ss, r_ll,
resp_ss and rt. Without --run the most recent run is exported.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var (
	exportRunFlag string
	exportOutFlag string
)

func init() {
	exportCmd.Flags().StringVar(&exportRunFlag, "run", "", "Run id (default: most recent run)")
	exportCmd.Flags().StringVarP(&exportOutFlag, "out", "o", "", "Output file (default: stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run, err := findRun(store, exportRunFlag)
	if err != nil {
		return err
	}

	trials, err := store.Trials(run.ID)
	if err != nil {
		return fmt.Errorf("loading trials: %w", err)
	}

	var w io.Writer = os.Stdout
	if exportOutFlag != "" {
		f, err := os.Create(exportOutFlag)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	if err := record.WriteTSV(w, run, trials); err != nil {
		return fmt.Errorf("writing TSV: %w", err)
	}
	if exportOutFlag != "" {
		fmt.Fprintf(os.Stderr, "Wrote %s\n", exportOutFlag)
	}
	return nil
}

// findRun returns the run with id, or the most recently updated run when
// id is empty.
func findRun(store *record.Store, id string) (*record.Run, error) {
	if id != "" {
		run, err := store.GetRun(id)
		if err != nil {
			return nil, fmt.Errorf("loading run: %w", err)
		}
		if run == nil {
			return nil, fmt.Errorf("run %s not found", id)
		}
		return run, nil
	}

	summaries, err := store.ListRuns()
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	if len(summaries) == 0 {
		return nil, fmt.Errorf("no runs found; start one with: ddt run")
	}
	run := summaries[0].Run
	return &run, nil
}
