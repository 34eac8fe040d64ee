// Package campaign implements the start/complete lifecycle of a campaign: a
// per-job branch of a client's config repository, cloned into its own
// working directory and tagged with a projectspec.json manifest.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/joescharf/hcm/internal/git"
	"github.com/joescharf/hcm/internal/models"
	"github.com/joescharf/hcm/internal/opener"
	"github.com/joescharf/hcm/internal/output"
)

// Recorder keeps a history of started and completed campaigns.
type Recorder interface {
	CreateCampaign(ctx context.Context, c *models.Campaign) error
	GetCampaignByDirectory(ctx context.Context, dir string) (*models.Campaign, error)
	CompleteCampaign(ctx context.Context, id string) error
}

// Manager runs the campaign workflows.
type Manager struct {
	Settings Settings
	Git      git.Client
	Opener   opener.Opener
	History  Recorder // optional
	UI       *output.UI
	Log      *zap.Logger
}

// NewManager creates a Manager. A nil logger is replaced with a no-op one.
func NewManager(s Settings, gc git.Client, op opener.Opener, ui *output.UI, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		Settings: s,
		Git:      gc,
		Opener:   op,
		UI:       ui,
		Log:      log,
	}
}

// Start clones the client's config repository, switches to the campaign
// branch, writes the manifest, creates the campaign working directory and
// opens it. A clone that succeeds is left in place if a later step fails.
func (m *Manager) Start(ctx context.Context, client, jobid string) (*Config, error) {
	cfg := NewConfig(m.Settings, client, jobid)
	m.Log.Debug("campaign config",
		zap.String("client", cfg.Client),
		zap.String("jobid", cfg.JobID),
		zap.String("url", cfg.URL),
		zap.String("branch", cfg.Branch),
		zap.String("directory", cfg.Directory),
	)

	if m.UI.DryRun {
		m.UI.DryRunMsg("Would clone %s into %s", cfg.URL, cfg.Directory)
		m.UI.DryRunMsg("Would check out or create branch %s", cfg.Branch)
		m.UI.DryRunMsg("Would write %s", cfg.ManifestPath)
		m.UI.DryRunMsg("Would create and open %s", cfg.JobDir)
		return &cfg, nil
	}

	m.UI.Info("Cloning %s into %s", output.Cyan(cfg.URL), cfg.Directory)
	if err := m.Git.Clone(cfg.URL, cfg.Directory); err != nil {
		return nil, &GitOperationError{Op: "clone", Err: err}
	}

	if err := m.checkoutBranch(cfg); err != nil {
		return nil, err
	}

	m.UI.Info("Creating project spec")
	if err := WriteManifest(cfg.ManifestPath, Manifest{Client: cfg.Client, JobID: cfg.JobID}); err != nil {
		return nil, err
	}

	created, err := CreateCampaignDirectory(cfg.JobDir)
	if err != nil {
		return nil, err
	}
	if !created {
		m.UI.Error("Campaign already exists, please check job number")
		return nil, ErrAborted
	}

	m.record(ctx, cfg)

	jobDir, err := filepath.Abs(cfg.JobDir)
	if err != nil {
		return nil, fmt.Errorf("resolve campaign directory: %w", err)
	}
	m.UI.VerboseLog("Opening %s with %s", jobDir, m.Opener)
	if err := m.Opener.Open(ctx, jobDir); err != nil {
		return nil, err
	}

	m.UI.Success("Campaign %s started in %s", output.Cyan(cfg.Branch), jobDir)
	return &cfg, nil
}

// checkoutBranch switches to the campaign branch when it already exists
// locally or on origin, and creates it from HEAD otherwise.
func (m *Manager) checkoutBranch(cfg Config) error {
	exists, err := m.Git.BranchExists(cfg.Directory, cfg.Branch)
	if err != nil {
		return &GitOperationError{Op: "branch lookup", Err: err}
	}

	if exists {
		if err := m.Git.Checkout(cfg.Directory, cfg.Branch); err != nil {
			return &GitOperationError{Op: "checkout", Err: err}
		}
		m.UI.Warning("Branch %s already exists, please be careful.", cfg.Branch)
		return nil
	}

	if err := m.Git.CreateBranch(cfg.Directory, cfg.Branch); err != nil {
		return &GitOperationError{Op: "create branch", Err: err}
	}
	m.UI.Info("Creating new branch %s", cfg.Branch)
	return nil
}

// CreateCampaignDirectory creates path and its parents. It reports false
// without touching anything when path already exists.
func CreateCampaignDirectory(path string) (bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("resolve campaign directory: %w", err)
	}
	if _, err := os.Lstat(abs); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return false, fmt.Errorf("create campaign directory: %w", err)
	}
	return true, nil
}

// Complete verifies the checkout at dir (the directory holding the manifest)
// and opens the pull-request compare page. It never pushes or creates the
// pull request itself.
func (m *Manager) Complete(ctx context.Context, dir string) error {
	manifest, err := ReadManifest(dir)
	if err != nil {
		return m.manifestAbort(err)
	}
	cfg := ConfigAt(m.Settings, *manifest, dir)
	m.Log.Debug("completing campaign",
		zap.String("client", cfg.Client),
		zap.String("jobid", cfg.JobID),
		zap.String("branch", cfg.Branch),
		zap.String("directory", dir),
	)

	for _, check := range []func() Check{
		func() Check { return checkRepository(m.Git, dir) },
		func() Check { return checkClean(m.Git, dir) },
		func() Check { return checkBranch(m.Git, dir, cfg.Branch) },
	} {
		c := check()
		if !c.Passed {
			m.Log.Error("campaign verification failed", zap.String("check", c.Name), zap.String("detail", c.Detail))
			m.UI.Error("%s", c.Detail)
			return ErrAborted
		}
	}

	if remote := checkRemote(m.Git, dir, cfg.Name); !remote.Passed {
		m.UI.Warning("Remote check: %s", remote.Detail)
	}

	if m.UI.DryRun {
		m.UI.DryRunMsg("Would open %s", cfg.PullRequestURL)
		return nil
	}

	m.UI.VerboseLog("Opening %s with %s", cfg.PullRequestURL, m.Opener)
	if err := m.Opener.Open(ctx, cfg.PullRequestURL); err != nil {
		return err
	}
	m.markCompleted(ctx, dir)

	m.UI.Success("Project closed, please create a PR: %s. You can now safely remove the directory.", cfg.PullRequestURL)
	return nil
}

// OpenJobDir reopens the campaign working directory of the checkout at dir.
func (m *Manager) OpenJobDir(ctx context.Context, dir string) error {
	manifest, err := ReadManifest(dir)
	if err != nil {
		return m.manifestAbort(err)
	}
	cfg := ConfigAt(m.Settings, *manifest, dir)

	if c := checkJobDir(cfg.JobDir); !c.Passed {
		return &DirectoryMissingError{Path: cfg.JobDir}
	}

	if m.UI.DryRun {
		m.UI.DryRunMsg("Would open %s", cfg.JobDir)
		return nil
	}
	m.UI.VerboseLog("Opening %s with %s", cfg.JobDir, m.Opener)
	return m.Opener.Open(ctx, cfg.JobDir)
}

// manifestAbort reports expected manifest problems and converts them to
// ErrAborted. Anything else is returned for the caller to surface.
func (m *Manager) manifestAbort(err error) error {
	msg := manifestProblem(err)
	if msg == "" {
		return err
	}
	m.UI.Error("%s", msg)
	return ErrAborted
}

// manifestProblem returns the user message for an expected manifest error,
// or "" for anything else.
func manifestProblem(err error) string {
	var fieldErr *ManifestFieldError
	switch {
	case errors.Is(err, ErrManifestNotFound):
		return "Unable to find project spec, navigate to the campaign repository root"
	case errors.Is(err, ErrManifestEmpty):
		return "Unable to load project spec."
	case errors.As(err, &fieldErr):
		return fmt.Sprintf("Field %q not in project spec.", fieldErr.Field)
	}
	return ""
}

func (m *Manager) record(ctx context.Context, cfg Config) {
	if m.History == nil {
		return
	}
	dir, err := filepath.Abs(cfg.Directory)
	if err != nil {
		dir = cfg.Directory
	}
	c := &models.Campaign{
		Client:    cfg.Client,
		JobID:     cfg.JobID,
		Branch:    cfg.Branch,
		Directory: dir,
		RepoURL:   cfg.URL,
	}
	if err := m.History.CreateCampaign(ctx, c); err != nil {
		m.UI.Warning("Could not record campaign history: %v", err)
		return
	}
	m.Log.Debug("recorded campaign", zap.String("id", c.ID))
}

func (m *Manager) markCompleted(ctx context.Context, dir string) {
	if m.History == nil {
		return
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	c, err := m.History.GetCampaignByDirectory(ctx, abs)
	if err != nil {
		m.Log.Debug("campaign not in history", zap.String("directory", abs), zap.Error(err))
		return
	}
	if err := m.History.CompleteCampaign(ctx, c.ID); err != nil {
		m.UI.Warning("Could not update campaign history: %v", err)
	}
}
