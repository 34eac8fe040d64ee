package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/joescharf/hcm/internal/campaign"
	"github.com/joescharf/hcm/internal/git"
	"github.com/joescharf/hcm/internal/opener"
	"github.com/joescharf/hcm/internal/output"
	"github.com/joescharf/hcm/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	logger    *zap.Logger
	dataStore store.Store

	verbose bool
	dryRun  bool
)

// errNoCommand is returned after printing help for a bare or unknown invocation.
var errNoCommand = errors.New("no command given")

var rootCmd = &cobra.Command{
	Use:   "hcm",
	Short: "Campaign manager - start and complete config repository campaigns",
	Long: `hcm manages the lifecycle of a campaign: a per-job branch of a client's
config repository, cloned into its own working directory.

  hcm start      clone the config repo, switch to campaign/<jobid>, open the job directory
  hcm complete   verify the checkout in the current directory and open the PR compare page`,
	Args:              cobra.ArbitraryArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = cmd.Help()
		return errNoCommand
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	os.Exit(handleError(os.Stderr, err))
}

// failedError marks an error raised by a campaign workflow.
type failedError struct {
	action string
	err    error
}

func (e *failedError) Error() string {
	return fmt.Sprintf("failed to %s campaign: %v", e.action, e.err)
}

func (e *failedError) Unwrap() error { return e.err }

// workflowErr wraps a non-nil workflow error for reporting at the CLI boundary.
func workflowErr(action string, err error) error {
	if err == nil {
		return nil
	}
	return &failedError{action: action, err: err}
}

// handleError prints err (unless it was already reported) and returns the exit code.
func handleError(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, campaign.ErrAborted) || errors.Is(err, errNoCommand) {
		return 1
	}
	var fe *failedError
	if errors.As(err, &fe) {
		fmt.Fprintf(w, "Failed to %s campaign: %v\n", fe.action, fe.err)
		return 1
	}
	fmt.Fprintf(w, "Error: %v\n", err)
	return 1
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output and debug logging")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/hcm/config.yaml)")
}

func initConfig() {
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		viper.AddConfigPath(filepath.Join(home, ".config", "hcm"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	bindEnv()

	home, _ := os.UserHomeDir()
	setDefaults(filepath.Join(home, ".config", "hcm"))

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

// bindEnv maps HCM_<KEY> environment variables onto config keys, e.g. HCM_GITHUB_ORG.
func bindEnv() {
	viper.SetEnvPrefix("HCM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// setDefaults registers every config key with its default value.
func setDefaults(stateDir string) {
	defaults := campaign.DefaultSettings()

	viper.SetDefault("state_dir", stateDir)
	viper.SetDefault("db_path", filepath.Join(stateDir, "hcm.db"))
	viper.SetDefault("history.enabled", true)
	viper.SetDefault("opener", "")
	viper.SetDefault("github.host", defaults.Host)
	viper.SetDefault("github.org", defaults.Org)
	viper.SetDefault("github.pr_org", defaults.PROrg)
	viper.SetDefault("campaign.repo_prefix", defaults.RepoPrefix)
	viper.SetDefault("campaign.pr_repo_prefix", defaults.PRRepoPrefix)
	viper.SetDefault("campaign.branch_prefix", defaults.BranchPrefix)
	viper.SetDefault("campaign.workspace_dir", defaults.WorkspaceDir)
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	l, err := newLogger(verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logger: %v\n", err)
		l = zap.NewNop()
	}
	logger = l
}

// newLogger builds a console logger on stderr at INFO, or DEBUG when verbose.
func newLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = true
	config.Sampling = nil
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

// settingsFromConfig maps viper keys onto campaign naming settings.
func settingsFromConfig() campaign.Settings {
	return campaign.Settings{
		Host:         viper.GetString("github.host"),
		Org:          viper.GetString("github.org"),
		PROrg:        viper.GetString("github.pr_org"),
		RepoPrefix:   viper.GetString("campaign.repo_prefix"),
		PRRepoPrefix: viper.GetString("campaign.pr_repo_prefix"),
		BranchPrefix: viper.GetString("campaign.branch_prefix"),
		WorkspaceDir: expandHome(viper.GetString("campaign.workspace_dir")),
	}
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// managerFunc builds the campaign manager, replaceable in tests.
var managerFunc = newManager

func newManager() (*campaign.Manager, error) {
	op, err := opener.New(viper.GetString("opener"))
	if err != nil {
		return nil, err
	}

	m := campaign.NewManager(settingsFromConfig(), git.NewClient(), op, ui, logger)

	if viper.GetBool("history.enabled") {
		s, err := getStore()
		if err != nil {
			ui.Warning("Campaign history unavailable: %v", err)
		} else {
			m.History = s
		}
	}
	return m, nil
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := expandHome(viper.GetString("db_path"))
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	ctx := rootCmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}
