package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var openDir string

var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Open the job directory of the campaign in the current directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return openRun(cmd.Context(), openDir)
	},
}

func init() {
	openCmd.Flags().StringVarP(&openDir, "dir", "C", "", "Campaign checkout (default current directory)")
	rootCmd.AddCommand(openCmd)
}

func openRun(ctx context.Context, dir string) error {
	dir, err := resolveDir(dir)
	if err != nil {
		return err
	}

	m, err := managerFunc()
	if err != nil {
		return err
	}
	return m.OpenJobDir(ctx, dir)
}
