// Package cli wires podstrom's command line onto the extract action.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fmfi-svt/podstrom/internal/actions"
	"github.com/fmfi-svt/podstrom/internal/config"
	"github.com/fmfi-svt/podstrom/internal/output"
	"github.com/fmfi-svt/podstrom/internal/runtime"
)

// rootFlags holds the values of the root command's flags
type rootFlags struct {
	path            string
	update          string
	backend         string
	dir             string
	stripSignatures bool
	skipAbsent      bool
	logFile         string
	verbose         bool
	noColor         bool
}

// NewRootCmd creates the root cobra command
func NewRootCmd(version, commit, date string) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "podstrom --path <subdir> [--update <branch>] <rev>...",
		Short: "Extract the history of a subdirectory into its own commits",
		Long: `Podstrom rewrites the history of each <rev> so that every commit holds only
the contents of one subdirectory, keeping authorship, messages and merges.

Each rewritten commit records the commit it came from, so running podstrom
again on a longer history only rewrites the new commits and produces the
same ids as a full run would.

Without --update the rewritten ids are printed, one per line, in the order
the revisions were given. With --update the named branch is moved to the
single result instead.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, flags, args)
		},
	}

	rootCmd.Flags().StringVarP(&flags.path, "path", "p", "", "Subdirectory to extract (required unless set in podstrom.yaml)")
	rootCmd.Flags().StringVarP(&flags.update, "update", "u", "", "Move refs/heads/<branch> to the result instead of printing it")
	rootCmd.Flags().StringVar(&flags.backend, "backend", config.BackendGit, "Object store backend: git or go-git")
	rootCmd.Flags().StringVarP(&flags.dir, "directory", "C", "", "Run as if podstrom was started in this directory")
	rootCmd.Flags().BoolVar(&flags.stripSignatures, "strip-signatures", false, "Drop commit signatures, which cannot verify after rewriting")
	rootCmd.Flags().BoolVar(&flags.skipAbsent, "skip-absent", false, "Leave out commits that do not contain the subdirectory")
	rootCmd.Flags().StringVar(&flags.logFile, "log-file", "", "Write a rotated debug log to this file")
	rootCmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "Show debug output")
	rootCmd.Flags().BoolVar(&flags.noColor, "no-color", false, "Disable colored output")

	return rootCmd
}

func runExtract(cmd *cobra.Command, flags *rootFlags, args []string) error {
	ctx := cmd.Context()

	dir := flags.dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}

	gitDir, err := runtime.FindGitDir(ctx, dir)
	if err != nil {
		return err
	}
	cfg, err := config.Load(gitDir)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, flags, cfg); err != nil {
		return err
	}

	opts := actions.ExtractOptions{
		Path:            cfg.GetPath(),
		Revisions:       args,
		Update:          flags.update,
		StripSignatures: cfg.GetStripSignatures(),
		SkipAbsent:      cfg.GetSkipAbsent(),
	}
	if opts.Path == "" {
		return fmt.Errorf("--path is required (use / to extract the whole tree)")
	}

	splog, err := output.NewSplogWithOptions(output.Options{
		Writer:  cmd.ErrOrStderr(),
		Verbose: flags.verbose,
		NoColor: flags.noColor,
		LogFile: cfg.GetLogFile(),
	})
	if err != nil {
		return err
	}

	store, err := runtime.OpenStore(ctx, cfg.GetBackend(), dir)
	if err != nil {
		_ = splog.Close()
		return err
	}

	rt := runtime.NewContext(ctx, store, splog)
	rt.Stdout = cmd.OutOrStdout()
	rt.WorkDir = dir
	rt.GitDir = gitDir

	runErr := actions.ExtractAction(rt, opts)
	if closeErr := rt.Close(); closeErr != nil && runErr == nil {
		return closeErr
	}
	return runErr
}

// applyFlags overrides config values with flags given on the command line
func applyFlags(cmd *cobra.Command, flags *rootFlags, cfg *config.RepoConfig) error {
	changed := cmd.Flags().Changed
	if changed("path") {
		cfg.Path = &flags.path
	}
	if changed("backend") {
		if err := config.ValidateBackend(flags.backend); err != nil {
			return err
		}
		cfg.Backend = &flags.backend
	}
	if changed("log-file") {
		cfg.LogFile = &flags.logFile
	}
	if changed("strip-signatures") {
		cfg.StripSignatures = &flags.stripSignatures
	}
	if changed("skip-absent") {
		cfg.SkipAbsent = &flags.skipAbsent
	}
	return nil
}
