package store

import (
	"context"

	"github.com/joescharf/hcm/internal/models"
)

// CampaignListFilter specifies filters for listing campaigns.
type CampaignListFilter struct {
	Client string
	Status models.CampaignStatus
	Limit  int
}

// Store defines the persistence interface for campaign history.
type Store interface {
	CreateCampaign(ctx context.Context, c *models.Campaign) error
	GetCampaign(ctx context.Context, id string) (*models.Campaign, error)
	GetCampaignByDirectory(ctx context.Context, dir string) (*models.Campaign, error)
	ListCampaigns(ctx context.Context, filter CampaignListFilter) ([]*models.Campaign, error)
	CompleteCampaign(ctx context.Context, id string) error
	DeleteCampaign(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
