package cmd

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/hcm/internal/campaign"
	"github.com/joescharf/hcm/internal/models"
	"github.com/joescharf/hcm/internal/store"
)

// noManager fails the test if a workflow gets past its prompts.
func noManager(t *testing.T) {
	t.Helper()
	managerFunc = func() (*campaign.Manager, error) {
		t.Fatal("manager should not be built")
		return nil, nil
	}
}

// realRemote serves a bare config repository for client through a url
// rewrite of the default clone URL, and makes the opener a no-op.
func realRemote(t *testing.T, client string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not installed")
	}
	root := t.TempDir()
	remote := filepath.Join(root, "campaign-config-"+client+".git")
	run := func(args ...string) {
		t.Helper()
		out, err := exec.Command("git", args...).CombinedOutput()
		require.NoError(t, err, string(out))
	}
	run("init", "--bare", "-b", "main", remote)
	seed := filepath.Join(root, "seed")
	run("init", "-b", "main", seed)
	run("-C", seed, "-c", "user.email=test@test.com", "-c", "user.name=Test", "commit", "--allow-empty", "-m", "init")
	run("-C", seed, "push", remote, "main")

	t.Setenv("GIT_CONFIG_COUNT", "1")
	t.Setenv("GIT_CONFIG_KEY_0", "url."+root+"/.insteadOf")
	t.Setenv("GIT_CONFIG_VALUE_0", "git@github.com:Pineapple-Worldwide/")
	viper.Set("opener", "true")
}

func TestStartRun_Declined(t *testing.T) {
	testEnv(t)
	noManager(t)
	ui.In = strings.NewReader("  Acme \nJ001\nno\n")

	err := startRun(context.Background())
	assert.ErrorIs(t, err, campaign.ErrAborted)

	out := outText()
	assert.Contains(t, out, "Client: acme")
	assert.Contains(t, out, "Job ID: j001")
	assert.Contains(t, out, "Exiting.")
}

func TestStartRun_ConfirmationMustBeExact(t *testing.T) {
	for _, answer := range []string{"y", "YES", "Yes", ""} {
		t.Run(answer, func(t *testing.T) {
			testEnv(t)
			noManager(t)
			ui.In = strings.NewReader("acme\nj001\n" + answer + "\n")

			err := startRun(context.Background())
			assert.ErrorIs(t, err, campaign.ErrAborted)
		})
	}
}

func TestStartRun_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "slash in client", input: "a/b\nj1\nyes\n", want: "client"},
		{name: "empty job", input: "acme\n\nyes\n", want: "job ID"},
		{name: "dotdot job", input: "acme\n..\nyes\n", want: "job ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testEnv(t)
			noManager(t)
			ui.In = strings.NewReader(tt.input)

			err := startRun(context.Background())
			require.Error(t, err)
			assert.NotErrorIs(t, err, campaign.ErrAborted)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestStartRun_InputClosed(t *testing.T) {
	testEnv(t)
	noManager(t)

	err := startRun(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestStartRun_FlagsSkipPrompts(t *testing.T) {
	testEnv(t)
	noManager(t)
	startClient, startJob = "ACME", "j001"
	ui.In = strings.NewReader("nope\n")

	err := startRun(context.Background())
	assert.ErrorIs(t, err, campaign.ErrAborted)
	assert.Contains(t, outText(), "Client: acme")
}

func TestStartComplete_RealGit(t *testing.T) {
	dir := testEnv(t)
	realRemote(t, "acme")
	ctx := context.Background()
	ui.In = strings.NewReader("ACME\nj001\nyes\n")

	require.NoError(t, startRun(ctx))

	matches, err := filepath.Glob(filepath.Join(dir, "work", "campaign-config-acme-*"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	checkout := matches[0]

	assert.FileExists(t, filepath.Join(checkout, campaign.ManifestFile))
	assert.DirExists(t, filepath.Join(checkout, "campaign", "j001"))

	s, err := getStore()
	require.NoError(t, err)
	list, err := s.ListCampaigns(ctx, store.CampaignListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.CampaignStatusStarted, list[0].Status)

	require.NoError(t, statusRun(checkout))
	assert.Contains(t, outText(), "Ready to complete")

	require.NoError(t, completeRun(ctx, checkout))
	assert.Contains(t, outText(), "Project closed, please create a PR: https://github.com/Hogarth-Worldwide/di-campaign-acme/compare/campaign/j001?expand=1")

	list, err = s.ListCampaigns(ctx, store.CampaignListFilter{Status: models.CampaignStatusCompleted})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCompleteRun_NoManifest(t *testing.T) {
	testEnv(t)

	err := completeRun(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, campaign.ErrAborted)
	assert.Contains(t, allText(), "Unable to find project spec")
}

func TestStatusRun_NoManifest(t *testing.T) {
	testEnv(t)

	require.NoError(t, statusRun(t.TempDir()))
	out := allText()
	assert.Contains(t, out, campaign.CheckManifest)
	assert.Contains(t, out, "Not ready to complete")
}

func TestOpenRun_MissingJobDir(t *testing.T) {
	testEnv(t)
	dir := t.TempDir()
	require.NoError(t, campaign.WriteManifest(filepath.Join(dir, campaign.ManifestFile), campaign.Manifest{Client: "acme", JobID: "j001"}))

	err := openRun(context.Background(), dir)
	var missing *campaign.DirectoryMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, filepath.Join(dir, "campaign", "j001"), missing.Path)
}

func TestListRun_Empty(t *testing.T) {
	testEnv(t)

	require.NoError(t, listRun(context.Background()))
	assert.Contains(t, outText(), "No campaigns recorded")
}

func TestListRun_WithCampaigns(t *testing.T) {
	testEnv(t)
	ctx := context.Background()
	s, err := getStore()
	require.NoError(t, err)
	require.NoError(t, s.CreateCampaign(ctx, &models.Campaign{
		Client: "acme", JobID: "j001", Branch: "campaign/j001", Directory: "/w/a", Status: models.CampaignStatusStarted,
	}))
	require.NoError(t, s.CreateCampaign(ctx, &models.Campaign{
		Client: "weyland_corp", JobID: "a1680", Branch: "campaign/a1680", Directory: "/w/b", Status: models.CampaignStatusStarted,
	}))

	listClient = "weyland_corp"
	require.NoError(t, listRun(ctx))
	out := outText()
	assert.Contains(t, out, "a1680")
	assert.NotContains(t, out, "j001")
}

func TestListRun_Prune(t *testing.T) {
	testEnv(t)
	ctx := context.Background()
	s, err := getStore()
	require.NoError(t, err)
	kept := t.TempDir()
	require.NoError(t, s.CreateCampaign(ctx, &models.Campaign{
		Client: "acme", JobID: "j001", Branch: "campaign/j001", Directory: kept, Status: models.CampaignStatusStarted,
	}))
	require.NoError(t, s.CreateCampaign(ctx, &models.Campaign{
		Client: "acme", JobID: "j002", Branch: "campaign/j002", Directory: filepath.Join(kept, "removed"), Status: models.CampaignStatusCompleted,
	}))

	listPrune = true
	require.NoError(t, listRun(ctx))
	out := outText()
	assert.Contains(t, out, "Pruned 1 campaign(s)")
	assert.Contains(t, out, "j001")
	assert.NotContains(t, out, "j002")

	list, err := s.ListCampaigns(ctx, store.CampaignListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "j001", list[0].JobID)
}

func TestListRun_PruneDryRun(t *testing.T) {
	testEnv(t)
	ctx := context.Background()
	s, err := getStore()
	require.NoError(t, err)
	require.NoError(t, s.CreateCampaign(ctx, &models.Campaign{
		Client: "acme", JobID: "j002", Branch: "campaign/j002", Directory: filepath.Join(t.TempDir(), "removed"), Status: models.CampaignStatusStarted,
	}))

	listPrune = true
	dryRun = true
	ui.DryRun = true
	require.NoError(t, listRun(ctx))
	assert.Contains(t, allText(), "Would prune")

	list, err := s.ListCampaigns(ctx, store.CampaignListFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestListRun_InvalidStatus(t *testing.T) {
	testEnv(t)
	listStatus = "open"

	err := listRun(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid status")
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "01HZX000", shortID("01HZX0000000000000000000AB"))
	assert.Equal(t, "abc", shortID("abc"))
}

func TestResolveDir(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	got, err := resolveDir("")
	require.NoError(t, err)
	assert.Equal(t, wd, got)

	got, err = resolveDir("/some/dir")
	require.NoError(t, err)
	assert.Equal(t, "/some/dir", got)
}
