package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var completeDir string

var completeCmd = &cobra.Command{
	Use:   "complete",
	Short: "Complete the campaign in the current directory",
	Long: `Complete the campaign checked out in the current directory.

Reads projectspec.json, verifies the checkout is a git repository with no
uncommitted changes to tracked files and is on the campaign branch, then
opens the pull request compare page.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return workflowErr("complete", completeRun(cmd.Context(), completeDir))
	},
}

func init() {
	completeCmd.Flags().StringVarP(&completeDir, "dir", "C", "", "Campaign checkout (default current directory)")
	rootCmd.AddCommand(completeCmd)
}

func completeRun(ctx context.Context, dir string) error {
	dir, err := resolveDir(dir)
	if err != nil {
		return err
	}

	m, err := managerFunc()
	if err != nil {
		return err
	}
	return m.Complete(ctx, dir)
}

// resolveDir returns dir, or the working directory when dir is empty.
func resolveDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}
