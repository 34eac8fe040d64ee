package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joescharf/hcm/internal/models"
	"github.com/joescharf/hcm/internal/output"
	"github.com/joescharf/hcm/internal/store"
)

var (
	listClient string
	listStatus string
	listLimit  int
	listPrune  bool
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List started campaigns from history",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listRun(cmd.Context())
	},
}

func init() {
	listCmd.Flags().StringVar(&listClient, "client", "", "Filter by client")
	listCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status (started, completed)")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum number of campaigns (0 = all)")
	listCmd.Flags().BoolVar(&listPrune, "prune", false, "Remove history rows whose directory no longer exists")
	rootCmd.AddCommand(listCmd)
}

func listRun(ctx context.Context) error {
	filter := store.CampaignListFilter{
		Client: listClient,
		Limit:  listLimit,
	}
	if listStatus != "" {
		status := models.CampaignStatus(listStatus)
		if status != models.CampaignStatusStarted && status != models.CampaignStatusCompleted {
			return fmt.Errorf("invalid status %q (want started or completed)", listStatus)
		}
		filter.Status = status
	}

	s, err := getStore()
	if err != nil {
		return err
	}

	campaigns, err := s.ListCampaigns(ctx, filter)
	if err != nil {
		return fmt.Errorf("list campaigns: %w", err)
	}

	if listPrune {
		campaigns, err = pruneMissing(ctx, s, campaigns)
		if err != nil {
			return err
		}
	}

	if len(campaigns) == 0 {
		ui.Info("No campaigns recorded. Start one with: hcm start")
		return nil
	}

	table := ui.Table([]string{"ID", "CLIENT", "JOB", "STATUS", "STARTED", "DIRECTORY"})
	for _, c := range campaigns {
		_ = table.Append([]string{
			shortID(c.ID),
			c.Client,
			c.JobID,
			output.StatusColor(string(c.Status)),
			timeAgo(c.StartedAt),
			c.Directory,
		})
	}
	_ = table.Render()
	return nil
}

// pruneMissing deletes campaigns whose directory is gone and returns the rest.
// In dry-run mode nothing is deleted.
func pruneMissing(ctx context.Context, s store.Store, campaigns []*models.Campaign) ([]*models.Campaign, error) {
	var kept []*models.Campaign
	pruned := 0
	for _, c := range campaigns {
		if _, err := os.Stat(c.Directory); !errors.Is(err, fs.ErrNotExist) {
			kept = append(kept, c)
			continue
		}
		if dryRun {
			ui.DryRunMsg("Would prune %s (%s/%s): %s is gone", shortID(c.ID), c.Client, c.JobID, c.Directory)
			kept = append(kept, c)
			continue
		}
		if err := s.DeleteCampaign(ctx, c.ID); err != nil {
			return nil, fmt.Errorf("prune campaign %s: %w", c.ID, err)
		}
		logger.Debug("pruned campaign", zap.String("id", c.ID), zap.String("directory", c.Directory))
		pruned++
	}
	if pruned > 0 {
		ui.Info("Pruned %d campaign(s) whose directory no longer exists", pruned)
	}
	return kept, nil
}

// shortID returns the first 8 characters of a ULID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	}
}
