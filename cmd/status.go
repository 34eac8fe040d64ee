package cmd

import (
	"github.com/spf13/cobra"

	"github.com/joescharf/hcm/internal/output"
)

var statusDir string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the campaign in the current directory is ready to complete",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return statusRun(statusDir)
	},
}

func init() {
	statusCmd.Flags().StringVarP(&statusDir, "dir", "C", "", "Campaign checkout (default current directory)")
	rootCmd.AddCommand(statusCmd)
}

func statusRun(dir string) error {
	dir, err := resolveDir(dir)
	if err != nil {
		return err
	}

	m, err := managerFunc()
	if err != nil {
		return err
	}

	checks := m.Checks(dir)

	table := ui.Table([]string{"", "CHECK", "DETAIL"})
	failed := 0
	for _, c := range checks {
		if !c.Passed && c.Blocking() {
			failed++
		}
		_ = table.Append([]string{output.CheckMark(c.Passed), c.Name, c.Detail})
	}
	_ = table.Render()

	if failed > 0 {
		ui.Warning("Not ready to complete: %d blocking check(s) failed", failed)
		return nil
	}
	ui.Success("Ready to complete")
	return nil
}
