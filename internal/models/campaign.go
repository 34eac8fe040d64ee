package models

import "time"

// CampaignStatus represents the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignStatusStarted   CampaignStatus = "started"
	CampaignStatusCompleted CampaignStatus = "completed"
)

// Campaign is a history entry for one started campaign checkout.
type Campaign struct {
	ID          string
	Client      string
	JobID       string
	Branch      string
	Directory   string
	RepoURL     string
	Status      CampaignStatus
	StartedAt   time.Time
	CompletedAt *time.Time
}
