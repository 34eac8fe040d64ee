package campaign

import (
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	s := DefaultSettings()
	cfg := NewConfig(s, "acme", "j001")

	assert.Equal(t, "acme", cfg.Client)
	assert.Equal(t, "j001", cfg.JobID)
	assert.Equal(t, "campaign-config-acme", cfg.Name)
	assert.Equal(t, "git@github.com:Pineapple-Worldwide/campaign-config-acme.git", cfg.URL)
	assert.Equal(t, "campaign/j001", cfg.Branch)
	assert.Regexp(t, regexp.MustCompile(`^campaign-config-acme-[A-Z0-9]{10}$`), cfg.Directory)
	assert.Equal(t, filepath.Join(cfg.Directory, "campaign", "j001"), cfg.JobDir)
	assert.Equal(t, filepath.Join(cfg.Directory, "projectspec.json"), cfg.ManifestPath)
	assert.Equal(t, "https://github.com/Hogarth-Worldwide/di-campaign-acme/compare/campaign/j001?expand=1", cfg.PullRequestURL)
}

func TestNewConfig_StableFieldsIgnoreSuffix(t *testing.T) {
	s := DefaultSettings()
	pairs := [][2]string{{"acme", "j001"}, {"weyland_corp", "a1680"}, {"x", "1"}}

	for _, p := range pairs {
		a := NewConfig(s, p[0], p[1])
		b := NewConfig(s, p[0], p[1])

		assert.Equal(t, "campaign/"+p[1], a.Branch)
		assert.Equal(t, a.Branch, b.Branch)
		assert.Equal(t, a.URL, b.URL)
		assert.Equal(t, a.Name, b.Name)
		assert.Equal(t, a.PullRequestURL, b.PullRequestURL)
		assert.NotEqual(t, a.Directory, b.Directory, "suffix should differ between calls")
	}
}

func TestNewConfig_WorkspaceDir(t *testing.T) {
	orig := newSuffix
	newSuffix = func() string { return "ABCDE12345" }
	t.Cleanup(func() { newSuffix = orig })

	s := DefaultSettings()
	s.WorkspaceDir = "/srv/campaigns"
	cfg := NewConfig(s, "acme", "j001")

	assert.Equal(t, "/srv/campaigns/campaign-config-acme-ABCDE12345", cfg.Directory)
	assert.Equal(t, "/srv/campaigns/campaign-config-acme-ABCDE12345/campaign/j001", cfg.JobDir)
}

func TestConfigAt_UsesGivenDirectory(t *testing.T) {
	s := DefaultSettings()
	cfg := ConfigAt(s, Manifest{Client: "acme", JobID: "j001"}, "/work/checkout")

	assert.Equal(t, "/work/checkout", cfg.Directory)
	assert.Equal(t, "/work/checkout/campaign/j001", cfg.JobDir)
	assert.Equal(t, "campaign/j001", cfg.Branch)
}

func TestConfig_PROrgFallback(t *testing.T) {
	s := DefaultSettings()
	s.Host = "git.example.com"
	s.Org = "configs"
	s.PROrg = ""
	cfg := NewConfig(s, "acme", "j9")

	assert.Equal(t, "git@git.example.com:configs/campaign-config-acme.git", cfg.URL)
	assert.Equal(t, "https://git.example.com/configs/di-campaign-acme/compare/campaign/j9?expand=1", cfg.PullRequestURL)
}

func TestSuffixAlphabet(t *testing.T) {
	for i := 0; i < 50; i++ {
		assert.Regexp(t, `^[A-Z0-9]{10}$`, newSuffix())
	}
}

func TestValidateIdentifier(t *testing.T) {
	valid := []string{"acme", "weyland_corp", "a1680", "job-7.2"}
	for _, v := range valid {
		require.NoError(t, ValidateIdentifier("client", v), v)
	}

	invalid := []string{"", ".", "..", "a/b", `a\b`, "a b", "tab\there", "c:d"}
	for _, v := range invalid {
		assert.Error(t, ValidateIdentifier("client", v), v)
	}
}
