package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/hcm/internal/campaign"
)

var (
	startClient string
	startJob    string
	startYes    bool
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new campaign",
	Long: `Start a new campaign for a client and job number.

Clones the client's config repository into a fresh directory, checks out
or creates the campaign/<jobid> branch, writes projectspec.json, creates
the job directory and opens it.

Client name and job ID are prompted for unless given as flags.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return workflowErr("start", startRun(cmd.Context()))
	},
}

func init() {
	startCmd.Flags().StringVar(&startClient, "client", "", "Client name (prompted if empty)")
	startCmd.Flags().StringVar(&startJob, "job", "", "Job ID (prompted if empty)")
	startCmd.Flags().BoolVarP(&startYes, "yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(startCmd)
}

func startRun(ctx context.Context) error {
	client, err := promptValue("Please enter the client name:", startClient)
	if err != nil {
		return err
	}
	jobid, err := promptValue("Please enter the job ID:", startJob)
	if err != nil {
		return err
	}

	if err := campaign.ValidateIdentifier("client", client); err != nil {
		return err
	}
	if err := campaign.ValidateIdentifier("job ID", jobid); err != nil {
		return err
	}

	ui.Info("Client: %s", client)
	ui.Info("Job ID: %s", jobid)

	if !startYes {
		answer, err := ui.Ask("Please confirm the above is correct by entering 'yes':")
		if err != nil {
			return err
		}
		if strings.TrimSpace(answer) != "yes" {
			ui.Info("Exiting.")
			return campaign.ErrAborted
		}
	}

	m, err := managerFunc()
	if err != nil {
		return err
	}
	_, err = m.Start(ctx, client, jobid)
	return err
}

// promptValue returns preset when given, otherwise asks. Values are trimmed and lowercased.
func promptValue(prompt, preset string) (string, error) {
	value := preset
	if value == "" {
		var err error
		value, err = ui.Ask(prompt)
		if err != nil {
			return "", err
		}
	}
	return strings.ToLower(strings.TrimSpace(value)), nil
}
