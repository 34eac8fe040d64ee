package campaign

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/thanhpk/randstr"
)

// ManifestFile is the manifest name at the root of every campaign checkout.
const ManifestFile = "projectspec.json"

const (
	suffixLength   = 10
	suffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// newSuffix returns the random directory suffix, replaceable in tests.
var newSuffix = func() string {
	return randstr.String(suffixLength, suffixAlphabet)
}

// Settings holds the naming conventions used to derive a campaign config.
type Settings struct {
	Host         string
	Org          string
	PROrg        string
	RepoPrefix   string
	PRRepoPrefix string
	BranchPrefix string
	WorkspaceDir string
}

// DefaultSettings returns the built-in naming conventions.
func DefaultSettings() Settings {
	return Settings{
		Host:         "github.com",
		Org:          "Pineapple-Worldwide",
		PROrg:        "Hogarth-Worldwide",
		RepoPrefix:   "campaign-config",
		PRRepoPrefix: "di-campaign",
		BranchPrefix: "campaign",
		WorkspaceDir: ".",
	}
}

// Config is the set of names, paths and URLs derived for one campaign.
type Config struct {
	Client         string
	JobID          string
	Name           string
	URL            string
	Branch         string
	Directory      string
	JobDir         string
	ManifestPath   string
	PullRequestURL string
}

// NewConfig derives the config for (client, jobid) under a fresh random
// directory suffix. Only Directory, JobDir and ManifestPath depend on it.
func NewConfig(s Settings, client, jobid string) Config {
	dir := filepath.Join(s.WorkspaceDir, fmt.Sprintf("%s-%s-%s", s.RepoPrefix, client, newSuffix()))
	return configFor(s, client, jobid, dir)
}

// ConfigAt derives the config for an existing checkout rooted at dir.
func ConfigAt(s Settings, m Manifest, dir string) Config {
	return configFor(s, m.Client, m.JobID, dir)
}

func configFor(s Settings, client, jobid, dir string) Config {
	name := fmt.Sprintf("%s-%s", s.RepoPrefix, client)
	branch := fmt.Sprintf("%s/%s", s.BranchPrefix, jobid)

	prOrg := s.PROrg
	if prOrg == "" {
		prOrg = s.Org
	}

	return Config{
		Client:       client,
		JobID:        jobid,
		Name:         name,
		URL:          fmt.Sprintf("git@%s:%s/%s.git", s.Host, s.Org, name),
		Branch:       branch,
		Directory:    dir,
		JobDir:       filepath.Join(dir, s.BranchPrefix, jobid),
		ManifestPath: filepath.Join(dir, ManifestFile),
		PullRequestURL: fmt.Sprintf("https://%s/%s/%s-%s/compare/%s?expand=1",
			s.Host, prOrg, s.PRRepoPrefix, client, branch),
	}
}

// ValidateIdentifier rejects client or job identifiers that cannot be used
// safely as a single path segment or branch component.
func ValidateIdentifier(kind, value string) error {
	if value == "" {
		return fmt.Errorf("%s must not be empty", kind)
	}
	if value == "." || value == ".." {
		return fmt.Errorf("%s %q is not allowed", kind, value)
	}
	if strings.ContainsAny(value, `/\:`) {
		return fmt.Errorf("%s %q must not contain path separators", kind, value)
	}
	for _, r := range value {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("%s %q must not contain whitespace", kind, value)
		}
	}
	return nil
}
