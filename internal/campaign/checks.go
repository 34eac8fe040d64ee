package campaign

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joescharf/hcm/internal/git"
)

// Check represents a single verification of a campaign checkout.
type Check struct {
	Name   string
	Passed bool
	Detail string
}

// Check names, in the order they are evaluated.
const (
	CheckManifest   = "Project spec"
	CheckRepository = "Repository"
	CheckClean      = "Clean tree"
	CheckBranch     = "Branch"
	CheckRemote     = "Remote"
	CheckJobDir     = "Campaign directory"
)

// Blocking reports whether a failure of c prevents Complete.
func (c Check) Blocking() bool {
	return c.Name != CheckRemote && c.Name != CheckJobDir
}

// Ready reports whether every blocking check passed.
func Ready(checks []Check) bool {
	for _, c := range checks {
		if !c.Passed && c.Blocking() {
			return false
		}
	}
	return true
}

// Checks evaluates every verification for the checkout rooted at dir. It
// stops early when the manifest or repository is unusable since the
// remaining checks depend on them.
func (m *Manager) Checks(dir string) []Check {
	manifest, err := ReadManifest(dir)
	if err != nil {
		detail := manifestProblem(err)
		if detail == "" {
			detail = err.Error()
		}
		return []Check{{Name: CheckManifest, Passed: false, Detail: detail}}
	}
	cfg := ConfigAt(m.Settings, *manifest, dir)

	checks := []Check{{
		Name:   CheckManifest,
		Passed: true,
		Detail: fmt.Sprintf("client %s, job %s", cfg.Client, cfg.JobID),
	}}

	repo := checkRepository(m.Git, dir)
	checks = append(checks, repo)
	if !repo.Passed {
		return checks
	}

	checks = append(checks,
		checkClean(m.Git, dir),
		checkBranch(m.Git, dir, cfg.Branch),
		checkRemote(m.Git, dir, cfg.Name),
		checkJobDir(cfg.JobDir),
	)
	return checks
}

func checkRepository(gc git.Client, dir string) Check {
	root, err := gc.RepoRoot(dir)
	if err != nil {
		return Check{Name: CheckRepository, Passed: false, Detail: fmt.Sprintf("No git repo found at %s", dir)}
	}
	if !samePath(root, dir) {
		return Check{
			Name:   CheckRepository,
			Passed: false,
			Detail: fmt.Sprintf("No git repo found at %s (it is inside the repo at %s)", dir, root),
		}
	}
	return Check{Name: CheckRepository, Passed: true, Detail: root}
}

// samePath reports whether a and b name the same directory once made
// absolute and symlinks are resolved.
func samePath(a, b string) bool {
	return canonical(a) == canonical(b)
}

func canonical(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		p = resolved
	}
	return filepath.Clean(p)
}

func checkClean(gc git.Client, dir string) Check {
	dirty, err := gc.IsDirty(dir)
	if err != nil {
		return Check{Name: CheckClean, Passed: false, Detail: fmt.Sprintf("Unable to read status of %s: %v", dir, err)}
	}
	if dirty {
		return Check{Name: CheckClean, Passed: false, Detail: fmt.Sprintf("Git repo at %s has uncommitted changes", dir)}
	}
	return Check{Name: CheckClean, Passed: true, Detail: "no uncommitted changes"}
}

func checkBranch(gc git.Client, dir, expected string) Check {
	current, err := gc.CurrentBranch(dir)
	if err != nil {
		return Check{Name: CheckBranch, Passed: false, Detail: fmt.Sprintf("Unable to read current branch: %v", err)}
	}
	if current != expected {
		return Check{
			Name:   CheckBranch,
			Passed: false,
			Detail: fmt.Sprintf("Current branch %s does not match project spec (expected %s)", current, expected),
		}
	}
	return Check{Name: CheckBranch, Passed: true, Detail: current}
}

// checkRemote compares origin's repository name with the config repository.
func checkRemote(gc git.Client, dir, name string) Check {
	url, _ := gc.RemoteURL(dir)
	if url == "" {
		return Check{Name: CheckRemote, Passed: false, Detail: "no origin remote"}
	}
	_, repo, err := git.ExtractOwnerRepo(url)
	if err != nil || repo != name {
		return Check{Name: CheckRemote, Passed: false, Detail: fmt.Sprintf("origin %s is not %s", url, name)}
	}
	return Check{Name: CheckRemote, Passed: true, Detail: url}
}

func checkJobDir(path string) Check {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		return Check{Name: CheckJobDir, Passed: true, Detail: path}
	}
	return Check{Name: CheckJobDir, Passed: false, Detail: path + " missing"}
}
