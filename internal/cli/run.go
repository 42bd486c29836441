// run.go implements the "ddt run" command which drives one participant
// through the tutorial and all sessions.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ddtlab/ddt/internal/config"
	"github.com/ddtlab/ddt/internal/design"
	"github.com/ddtlab/ddt/internal/experiment"
	"github.com/ddtlab/ddt/internal/log"
	"github.com/ddtlab/ddt/internal/record"
	"github.com/ddtlab/ddt/internal/tui"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the task for one participant",
	Long: `Run the delay-discounting task: optional tutorial, then the main
trials of every session, with designs from the design service. Settings
come from the config file; flags override them.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var (
	urlFlag          string
	sessionIDFlag    string
	participantFlag  string
	sessionsFlag     int
	currentFlag      int
	trialsFlag       int
	trainTrialsFlag  int
	noTutorialFlag   bool
	fixationFlag     int
	instructionsFlag string
	dataDirFlag      string
	plainFlag        bool
)

func init() {
	runCmd.Flags().StringVar(&urlFlag, "url", "", "Design service base URL")
	runCmd.Flags().StringVar(&sessionIDFlag, "session-id", "", "Session id issued by the design service (default: a new UUID)")
	runCmd.Flags().StringVar(&participantFlag, "participant", "", "Participant label for the local record")
	runCmd.Flags().IntVar(&sessionsFlag, "sessions", 0, "Number of sessions")
	runCmd.Flags().IntVar(&currentFlag, "current", 0, "Session to start in (1-based)")
	runCmd.Flags().IntVar(&trialsFlag, "trials", 0, "Main trials per session")
	runCmd.Flags().IntVar(&trainTrialsFlag, "train-trials", 0, "Tutorial trials")
	runCmd.Flags().BoolVar(&noTutorialFlag, "no-tutorial", false, "Skip the tutorial")
	runCmd.Flags().IntVar(&fixationFlag, "fixation-ms", 0, "Fixation duration in milliseconds")
	runCmd.Flags().StringVar(&instructionsFlag, "instructions", "", "Instructions YAML file (default: built-in text)")
	runCmd.Flags().StringVar(&dataDirFlag, "data-dir", "", "Directory for the event log and trial record")
	runCmd.Flags().BoolVar(&plainFlag, "plain", false, "Use the line-based terminal even on a TTY")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyRunFlags(cmd, cfg)

	if cfg.Session.ID == "" {
		cfg.Session.ID = uuid.NewString()
		fmt.Fprintf(os.Stderr, "No session id given; using %s\n", cfg.Session.ID)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	text, err := config.LoadInstructions(cfg.InstructionsFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	fe := newFrontEnd()
	run, err := executeRun(ctx, cfg, text, fe)
	if run != nil {
		fmt.Fprintf(os.Stderr, "Run %s: %s\n", run.ID, run.Status)
	}
	return err
}

// applyRunFlags copies explicitly set flags over cfg.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("url") {
		cfg.Server.URL = urlFlag
	}
	if f.Changed("session-id") {
		cfg.Session.ID = sessionIDFlag
	}
	if f.Changed("participant") {
		cfg.Participant = participantFlag
	}
	if f.Changed("sessions") {
		cfg.Session.Count = sessionsFlag
	}
	if f.Changed("current") {
		cfg.Session.Current = currentFlag
	}
	if f.Changed("trials") {
		cfg.Trials.NumMain = trialsFlag
	}
	if f.Changed("train-trials") {
		cfg.Trials.NumTrain = trainTrialsFlag
	}
	if noTutorialFlag {
		cfg.Trials.ShowTutorial = false
	}
	if f.Changed("fixation-ms") {
		cfg.Trials.FixationMs = fixationFlag
	}
	if f.Changed("instructions") {
		cfg.InstructionsFile = instructionsFlag
	}
	if f.Changed("data-dir") {
		cfg.DataDir = dataDirFlag
	}
}

// frontEnd is the participant-facing terminal. drive runs fn while the
// terminal is up.
type frontEnd struct {
	display experiment.Display
	input   experiment.Input
	drive   func(ctx context.Context, fn func(context.Context) error) error
}

func newFrontEnd() frontEnd {
	if tui.IsTTY() && !plainFlag {
		t := tui.NewTerminal()
		return frontEnd{display: t, input: t.Input(), drive: t.Run}
	}
	return lineFrontEnd(os.Stdin, os.Stdout)
}

func lineFrontEnd(in io.Reader, out io.Writer) frontEnd {
	lt := tui.NewLineTerminal(in, out)
	return frontEnd{display: lt, input: lt}
}

// executeRun records a run, drives it to the end and stores the final
// status. The returned run is nil only if it could not be created.
func executeRun(ctx context.Context, cfg *config.Config, text *config.Instructions, fe frontEnd) (*record.Run, error) {
	logger, err := log.NewLogger(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	store, err := record.Open(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening trial record: %w", err)
	}
	defer func() { _ = store.Close() }()

	run, err := store.CreateRun(cfg.Participant, cfg.Session.ID, cfg.Session.Count)
	if err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}

	state := &experiment.SessionState{
		CurrentSession: cfg.Session.Current,
		SessionCount:   cfg.Session.Count,
		SessionID:      cfg.Session.ID,
	}
	runner := experiment.NewRunner(cfg, text, state, experiment.Deps{
		Service:  design.NewClient(cfg.Server.URL, cfg.RequestTimeoutDuration()),
		Display:  fe.display,
		Input:    fe.input,
		Events:   logger,
		Recorder: store,
		RunID:    run.ID,
	})

	if fe.drive != nil {
		err = fe.drive(ctx, runner.Run)
	} else {
		err = runner.Run(ctx)
	}

	run.Status = runStatus(err)
	if statusErr := store.SetRunStatus(run.ID, run.Status); statusErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to save run status: %v\n", statusErr)
	}
	return run, err
}

// runStatus maps the outcome of Runner.Run to a stored status. Quitting
// and input failures count as aborted.
func runStatus(err error) string {
	switch {
	case err == nil:
		return record.StatusCompleted
	case design.IsSessionError(err):
		return record.StatusFailed
	default:
		return record.StatusAborted
	}
}
