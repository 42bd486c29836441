// init.go implements the "ddt init" command with optional --guided flag.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ddtlab/ddt/instructions"
	"github.com/ddtlab/ddt/internal/config"
)

// InstructionsFileName is where --instructions writes the editable text.
const InstructionsFileName = "instructions.yml"

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file for a study",
	Long: `Write ddt.yaml with default settings in the current directory.
--instructions also writes the built-in participant instructions to
instructions.yml so they can be edited, and points the config at it.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var (
	guidedFlag         bool
	forceFlag          bool
	writeInstructsFlag bool
)

func init() {
	initCmd.Flags().BoolVar(&guidedFlag, "guided", false, "Interactive prompts for configuration overrides")
	initCmd.Flags().BoolVar(&forceFlag, "force", false, "Overwrite an existing config without asking")
	initCmd.Flags().BoolVar(&writeInstructsFlag, "instructions", false, "Also write editable instructions to "+InstructionsFileName)
}

func runInit(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)

	// Check for an existing config.
	if _, statErr := os.Stat(configPath); statErr == nil && !forceFlag {
		fmt.Printf("Warning: %s already exists.\n", configPath)
		fmt.Print("Overwrite? [y/N]: ")
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	cfg := config.DefaultConfig()

	if guidedFlag {
		guidedOverrides(reader, os.Stdout, cfg)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("guided setup: %w", err)
		}
	}

	dir := filepath.Dir(configPath)
	if writeInstructsFlag {
		path := filepath.Join(dir, InstructionsFileName)
		if err := os.WriteFile(path, []byte(instructions.Default), 0644); err != nil {
			return fmt.Errorf("writing instructions: %w", err)
		}
		cfg.InstructionsFile = InstructionsFileName
		fmt.Printf("Instructions written to %s\n", path)
	}

	if err := config.WriteConfig(configPath, cfg); err != nil {
		return err
	}

	// Participant data must not end up in version control.
	if err := ensureGitignore(dir, cfg.DataDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to set up .gitignore: %v\n", err)
	}

	fmt.Printf("Configuration written to %s\n", configPath)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Printf("  1. Edit %s to point server.url at the design service\n", configPath)
	fmt.Println("  2. Try it locally: ddt serve, then in another terminal ddt run")
	return nil
}

// guidedOverrides prompts for the settings a study usually changes.
// Empty or unparsable answers keep the default.
func guidedOverrides(r *bufio.Reader, w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "--- Guided Configuration ---")

	cfg.Server.URL = promptString(r, w, "Design service URL", cfg.Server.URL)
	cfg.Participant = promptString(r, w, "Participant label", cfg.Participant)
	cfg.Session.Count = promptInt(r, w, "Sessions", cfg.Session.Count)
	cfg.Trials.NumMain = promptInt(r, w, "Main trials per session", cfg.Trials.NumMain)

	tutorial := "y"
	if !cfg.Trials.ShowTutorial {
		tutorial = "n"
	}
	answer := strings.ToLower(promptString(r, w, "Show tutorial (y/n)", tutorial))
	cfg.Trials.ShowTutorial = answer == "y" || answer == "yes"
	if cfg.Trials.ShowTutorial {
		cfg.Trials.NumTrain = promptInt(r, w, "Tutorial trials", cfg.Trials.NumTrain)
	}

	fmt.Fprintln(w, "--- End Guided Configuration ---")
	fmt.Fprintln(w)
}

func promptString(r *bufio.Reader, w io.Writer, label, def string) string {
	fmt.Fprintf(w, "%s [%s]: ", label, def)
	line, err := r.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" || (err != nil && err != io.EOF) {
		return def
	}
	return line
}

func promptInt(r *bufio.Reader, w io.Writer, label string, def int) int {
	s := promptString(r, w, label, strconv.Itoa(def))
	n, err := strconv.Atoi(s)
	if err != nil {
		fmt.Fprintf(w, "  not a number, keeping %d\n", def)
		return def
	}
	return n
}

// ensureGitignore creates or appends to .gitignore in dir so the data
// directory is never committed. It only adds entries that aren't
// already present.
func ensureGitignore(dir, dataDir string) error {
	gitignorePath := filepath.Join(dir, ".gitignore")

	requiredEntries := []string{
		strings.TrimSuffix(dataDir, "/") + "/",
		"*.tsv",
	}

	// Read existing content.
	existing := ""
	if data, err := os.ReadFile(gitignorePath); err == nil {
		existing = string(data)
	}

	var missing []string
	for _, entry := range requiredEntries {
		if !strings.Contains(existing, entry) {
			missing = append(missing, entry)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	var toAppend strings.Builder
	if existing != "" && !strings.HasSuffix(existing, "\n") {
		toAppend.WriteString("\n")
	}
	if existing != "" {
		toAppend.WriteString("\n# Added by ddt init\n")
	}
	for _, entry := range missing {
		toAppend.WriteString(entry + "\n")
	}

	f, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening .gitignore: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(toAppend.String()); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	return nil
}
