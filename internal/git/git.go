package git

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Client defines the interface for git operations on campaign checkouts.
// All methods take a path parameter since every campaign is its own clone.
type Client interface {
	Clone(url, path string) error
	RepoRoot(path string) (string, error)
	IsDirty(path string) (bool, error)
	BranchExists(path, branch string) (bool, error)
	Checkout(path, branch string) error
	CreateBranch(path, branch string) error
	CurrentBranch(path string) (string, error)
	RemoteURL(path string) (string, error)
}

// RealClient implements Client using real git commands.
type RealClient struct{}

// NewClient returns a new RealClient.
func NewClient() *RealClient {
	return &RealClient{}
}

// gitCmd runs git in path, or in the process cwd when path is empty.
func gitCmd(path string, args ...string) (string, error) {
	fullArgs := args
	if path != "" {
		fullArgs = append([]string{"-C", path}, args...)
	}
	out, err := exec.Command("git", fullArgs...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// refExists reports whether ref resolves in the repo at path.
// show-ref exits 1 for a missing ref; anything else is a real failure.
func refExists(path, ref string) (bool, error) {
	err := exec.Command("git", "-C", path, "show-ref", "--verify", "--quiet", ref).Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return false, nil
		}
		return false, fmt.Errorf("git show-ref %s: %w", ref, err)
	}
	return true, nil
}

func (c *RealClient) Clone(url, path string) error {
	_, err := gitCmd("", "clone", url, path)
	return err
}

func (c *RealClient) RepoRoot(path string) (string, error) {
	return gitCmd(path, "rev-parse", "--show-toplevel")
}

// IsDirty reports staged or unstaged changes to tracked files. Untracked
// files are not considered.
func (c *RealClient) IsDirty(path string) (bool, error) {
	out, err := gitCmd(path, "status", "--porcelain", "--untracked-files=no")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// BranchExists reports whether branch exists locally or as a branch of origin.
// A remote-only branch still counts: checkout will create the tracking branch.
func (c *RealClient) BranchExists(path, branch string) (bool, error) {
	ok, err := refExists(path, "refs/heads/"+branch)
	if err != nil || ok {
		return ok, err
	}
	return refExists(path, "refs/remotes/origin/"+branch)
}

func (c *RealClient) Checkout(path, branch string) error {
	_, err := gitCmd(path, "checkout", branch)
	return err
}

// CreateBranch creates branch from the current HEAD and switches to it.
// The start point is left implicit so an unborn HEAD (empty clone) works too.
func (c *RealClient) CreateBranch(path, branch string) error {
	_, err := gitCmd(path, "checkout", "-b", branch)
	return err
}

// CurrentBranch returns the checked-out branch name; a detached HEAD is an error.
func (c *RealClient) CurrentBranch(path string) (string, error) {
	return gitCmd(path, "symbolic-ref", "--short", "HEAD")
}

func (c *RealClient) RemoteURL(path string) (string, error) {
	out, err := gitCmd(path, "remote", "get-url", "origin")
	if err != nil {
		return "", nil // no remote is not an error
	}
	return out, nil
}

// ExtractOwnerRepo parses a GitHub remote URL and returns owner/repo.
func ExtractOwnerRepo(remoteURL string) (owner, repo string, err error) {
	// Handle SSH: git@github.com:owner/repo.git
	if strings.HasPrefix(remoteURL, "git@") {
		parts := strings.SplitN(remoteURL, ":", 2)
		if len(parts) != 2 {
			return "", "", fmt.Errorf("cannot parse SSH remote: %s", remoteURL)
		}
		path := strings.TrimSuffix(parts[1], ".git")
		segments := strings.SplitN(path, "/", 2)
		if len(segments) != 2 {
			return "", "", fmt.Errorf("cannot parse owner/repo from: %s", remoteURL)
		}
		return segments[0], segments[1], nil
	}

	// Handle HTTPS: https://host/owner/repo.git
	trimmed := strings.TrimSuffix(remoteURL, ".git")
	if i := strings.Index(trimmed, "://"); i >= 0 {
		trimmed = trimmed[i+3:]
		if j := strings.Index(trimmed, "/"); j >= 0 {
			trimmed = trimmed[j+1:]
		} else {
			trimmed = ""
		}
	}
	segments := strings.SplitN(trimmed, "/", 2)
	if len(segments) != 2 || segments[0] == "" || segments[1] == "" {
		return "", "", fmt.Errorf("cannot parse owner/repo from: %s", remoteURL)
	}
	return segments[0], segments[1], nil
}
