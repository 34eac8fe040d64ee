package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "hcm"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage hcm configuration.

Running bare 'hcm config' is the same as 'hcm config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# hcm configuration
# See: hcm config show (for effective values and sources)

# State/data directory (default: ~/.config/hcm)
# state_dir: {{ .StateDir }}

# SQLite database for campaign history (default: ~/.config/hcm/hcm.db)
# db_path: {{ .DBPath }}

# Command used to open job directories and pull request pages.
# Empty uses the platform default (open, xdg-open or start).
opener: "{{ .Opener }}"

github:
  # Host serving the config and pull request repositories
  host: "{{ .GitHubHost }}"

  # Organization owning the per-client config repositories
  org: "{{ .GitHubOrg }}"

  # Organization owning the repositories pull requests are opened against
  pr_org: "{{ .GitHubPROrg }}"

campaign:
  # Config repositories are named <repo_prefix>-<client>
  repo_prefix: "{{ .RepoPrefix }}"

  # Pull request repositories are named <pr_repo_prefix>-<client>
  pr_repo_prefix: "{{ .PRRepoPrefix }}"

  # Campaign branches are named <branch_prefix>/<jobid>
  branch_prefix: "{{ .BranchPrefix }}"

  # Directory new campaign checkouts are cloned into
  workspace_dir: "{{ .WorkspaceDir }}"

history:
  # Record started and completed campaigns in the database
  enabled: {{ .HistoryEnabled }}
`

type configTemplateData struct {
	StateDir       string
	DBPath         string
	Opener         string
	GitHubHost     string
	GitHubOrg      string
	GitHubPROrg    string
	RepoPrefix     string
	PRRepoPrefix   string
	BranchPrefix   string
	WorkspaceDir   string
	HistoryEnabled bool
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		StateDir:       viper.GetString("state_dir"),
		DBPath:         viper.GetString("db_path"),
		Opener:         viper.GetString("opener"),
		GitHubHost:     viper.GetString("github.host"),
		GitHubOrg:      viper.GetString("github.org"),
		GitHubPROrg:    viper.GetString("github.pr_org"),
		RepoPrefix:     viper.GetString("campaign.repo_prefix"),
		PRRepoPrefix:   viper.GetString("campaign.pr_repo_prefix"),
		BranchPrefix:   viper.GetString("campaign.branch_prefix"),
		WorkspaceDir:   viper.GetString("campaign.workspace_dir"),
		HistoryEnabled: viper.GetBool("history.enabled"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeys lists every key shown by config show, in display order.
var configKeys = []string{
	"github.host",
	"github.org",
	"github.pr_org",
	"campaign.repo_prefix",
	"campaign.pr_repo_prefix",
	"campaign.branch_prefix",
	"campaign.workspace_dir",
	"opener",
	"history.enabled",
	"state_dir",
	"db_path",
}

// envVarFor returns the environment variable bound to key by bindEnv.
func envVarFor(key string) string {
	return "HCM_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	fileValues := map[string]bool{}
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
		fileValues = readConfigFileValues(cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	table := ui.Table([]string{"KEY", "VALUE", "SOURCE"})
	for _, key := range configKeys {
		_ = table.Append([]string{
			key,
			fmt.Sprint(viper.Get(key)),
			detectSource(key, envVarFor(key), fileValues),
		})
	}
	_ = table.Render()
	return nil
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set; set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'hcm config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	args, err := shellwords.Parse(editor)
	if err != nil || len(args) == 0 {
		return fmt.Errorf("cannot parse $EDITOR %q: %v", editor, err)
	}

	editCmd := exec.Command(args[0], append(args[1:], cfgPath)...)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
