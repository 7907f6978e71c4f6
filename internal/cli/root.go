package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quantmind-br/spclone-go/internal/app"
	"github.com/quantmind-br/spclone-go/internal/config"
	"github.com/quantmind-br/spclone-go/internal/domain"
	"github.com/quantmind-br/spclone-go/internal/utils"
	"github.com/quantmind-br/spclone-go/pkg/version"
)

var (
	cfgFile string
	verbose bool
)

// NewCloneCommand builds the spclone root command
func NewCloneCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spclone <owner/name[@ref]> [destination]",
		Short: "Clone a GitHub repository without git",
		Long: `spclone downloads a GitHub repository snapshot as an archive and extracts
it locally, skipping the full version-control clone.

Accepted reference forms:
  owner/name
  owner/name@ref
  github.com/owner/name
  https://github.com/owner/name
  https://github.com/owner/name/tree/<ref>[/<subpath>]`,
		Version:       version.Short(),
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runClone,
	}

	addCommonFlags(cmd)
	cmd.Flags().StringP("directory", "d", "", "Destination directory (default: ./owner-name)")
	cmd.Flags().Bool("keep-root", false, "Keep the archive's generated root folder")

	cmd.AddCommand(newVersionCommand())
	cmd.AddCommand(newDoctorCommand(false))
	cmd.AddCommand(newConfigCommand())

	return cmd
}

// NewInstallCommand builds the spinstall root command
func NewInstallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spinstall <owner/name[@ref]>",
		Short: "Install a Python package straight from GitHub",
		Long: `spinstall downloads a GitHub repository snapshot, extracts it to a
temporary directory and installs it with pip.`,
		Version:       version.Short(),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runInstall,
	}

	addCommonFlags(cmd)
	cmd.Flags().String("python", "", "Python interpreter to install with (default: python3 from PATH)")
	cmd.Flags().Duration("install-timeout", 30*time.Minute, "Timeout for the pip subprocess")
	_ = viper.BindPFlag("install.python", cmd.Flags().Lookup("python"))
	_ = viper.BindPFlag("install.timeout", cmd.Flags().Lookup("install-timeout"))

	cmd.AddCommand(newVersionCommand())
	cmd.AddCommand(newDoctorCommand(true))
	cmd.AddCommand(newConfigCommand())

	return cmd
}

func addCommonFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.spclone/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	cmd.Flags().StringP("branch", "b", "", "Branch, tag or commit to fetch (alternative to @ref)")
	cmd.Flags().Bool("force", false, "Overwrite an existing destination")
	cmd.Flags().Bool("dry-run", false, "Resolve the reference without downloading")
	cmd.Flags().Duration("timeout", 60*time.Second, "HTTP request timeout")
	cmd.Flags().Bool("no-cache", false, "Disable the resolved-ref cache")
	cmd.Flags().Bool("refresh-cache", false, "Re-resolve and overwrite cached refs")
	cmd.Flags().Bool("no-fallback", false, "Disable the shallow-clone fallback")
	cmd.Flags().Bool("no-progress", false, "Disable the download progress bar")

	cobra.OnInitialize(func() {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		}
	})

	_ = viper.BindPFlag("network.timeout", cmd.Flags().Lookup("timeout"))
}

func newLogger() *utils.Logger {
	level := "info"
	if verbose {
		level = "debug"
	}
	return utils.NewLogger(utils.LoggerOptions{
		Level:   level,
		Format:  "pretty",
		Verbose: verbose,
	})
}

func newOrchestrator(cmd *cobra.Command, log *utils.Logger) (*app.Orchestrator, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	noCache, _ := cmd.Flags().GetBool("no-cache")
	refreshCache, _ := cmd.Flags().GetBool("refresh-cache")
	noFallback, _ := cmd.Flags().GetBool("no-fallback")
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	return app.NewOrchestrator(app.Options{
		Config:       cfg,
		Logger:       log,
		NoCache:      noCache,
		RefreshCache: refreshCache,
		NoFallback:   noFallback,
		ShowProgress: !noProgress && !verbose,
	})
}

func runClone(cmd *cobra.Command, args []string) error {
	log := newLogger()

	orch, err := newOrchestrator(cmd, log)
	if err != nil {
		return err
	}
	defer orch.Close()

	branch, _ := cmd.Flags().GetString("branch")
	directory, _ := cmd.Flags().GetString("directory")
	keepRoot, _ := cmd.Flags().GetBool("keep-root")
	force, _ := cmd.Flags().GetBool("force")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	destination := directory
	if len(args) > 1 {
		destination = args[1]
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := orch.Clone(ctx, args[0], app.CloneOptions{
		Destination: destination,
		Branch:      branch,
		KeepRoot:    keepRoot,
		Force:       force,
		DryRun:      dryRun,
	})
	if err != nil {
		return err
	}

	if !dryRun {
		color.Green("Cloned %s (%s) to %s", args[0], result.Ref, result.LocalPath)
	}
	return nil
}

func runInstall(cmd *cobra.Command, args []string) error {
	log := newLogger()

	orch, err := newOrchestrator(cmd, log)
	if err != nil {
		return err
	}
	defer orch.Close()

	branch, _ := cmd.Flags().GetString("branch")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := orch.Install(ctx, args[0], app.InstallOptions{Branch: branch}); err != nil {
		return err
	}

	color.Green("Installed %s", args[0])
	return nil
}

// Execute runs cmd and exits with the error's category code
func Execute(cmd *cobra.Command) {
	if err := cmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "%s: %v\n", cmd.Name(), err)

		var installErr *domain.InstallError
		if errors.As(err, &installErr) && installErr.Output != "" {
			fmt.Fprintln(os.Stderr, installErr.Output)
		}

		os.Exit(domain.ExitCodeFor(err))
	}
}
