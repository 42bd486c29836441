// serve.go implements the "ddt serve" command, a local rehearsal design
// service for pilots.
package cli

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/ddtlab/ddt/internal/devserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local rehearsal design service",
	Long: `Serve the design service protocol from memory with random designs.
Sessions roll over after --trials optimal answers and finish after
--sessions sessions. New participants start in session --current, so
pair it with the same "ddt run --current". Use it to pilot instructions
and timing; it does not estimate anything.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	addrFlag          string
	serveTrialsFlag   int
	serveSessionsFlag int
	serveCurrentFlag  int
	seedFlag          int64
)

func init() {
	serveCmd.Flags().StringVar(&addrFlag, "addr", "127.0.0.1:5050", "Listen address")
	serveCmd.Flags().IntVar(&serveTrialsFlag, "trials", 0, "Optimal trials per session (default: config trials.num_main_trials)")
	serveCmd.Flags().IntVar(&serveSessionsFlag, "sessions", 0, "Sessions per participant (default: config session.count)")
	serveCmd.Flags().IntVar(&serveCurrentFlag, "current", 0, "Session new participants start in (default: config session.current)")
	serveCmd.Flags().Int64Var(&seedFlag, "seed", 0, "Random seed (default: time based)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := devserver.Options{
		NumMainTrials: cfg.Trials.NumMain,
		SessionCount:  cfg.Session.Count,
		FirstSession:  cfg.Session.Current,
		Seed:          seedFlag,
		Logf: func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, time.Now().Format("15:04:05 ")+format+"\n", args...)
		},
	}
	if cmd.Flags().Changed("trials") {
		opts.NumMainTrials = serveTrialsFlag
	}
	if cmd.Flags().Changed("sessions") {
		opts.SessionCount = serveSessionsFlag
	}
	if cmd.Flags().Changed("current") {
		opts.FirstSession = serveCurrentFlag
	}

	srv := devserver.NewServer(opts)
	if err := srv.Listen(addrFlag); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	fmt.Printf("Rehearsal design service on http://%s (%d trials x %d sessions)\n",
		srv.Addr(), opts.NumMainTrials, opts.SessionCount)
	fmt.Println("Press Ctrl+C to stop.")

	select {
	case <-ctx.Done():
		fmt.Println("\nStopping.")
		return srv.Stop()
	case err := <-errCh:
		return err
	}
}
