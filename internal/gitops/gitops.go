// Package gitops implements the repository operations used by the task
// pipeline: clone, branch, commit, push and pull request creation.
//
// Git operations shell out to the git CLI via exec.CommandContext; callers
// bound each call through the context. Pull requests are opened against the
// GitHub REST API.
package gitops

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
)

// DefaultAPIBaseURL is the GitHub REST endpoint used for pull requests.
const DefaultAPIBaseURL = "https://api.github.com"

// Client performs git and GitHub operations for task workspaces.
// Create once and share; all methods are safe for concurrent use.
type Client struct {
	// Token authenticates clones, pushes and PR creation.
	Token string

	// GitPath is the git binary to invoke. Defaults to "git".
	GitPath string

	// APIBaseURL overrides the GitHub API endpoint. Defaults to
	// DefaultAPIBaseURL. Useful for tests.
	APIBaseURL string

	// HTTPClient is used for API calls. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// NewClient creates a Client authenticating with token.
func NewClient(token string) *Client {
	return &Client{Token: token}
}

// Clone clones repoURL into dir and checks out the requested base branch.
// The token is injected into the clone URL and scrubbed from any error text.
func (c *Client) Clone(ctx context.Context, repoURL, branch, dir string) error {
	if _, err := c.runGit(ctx, "", "clone", c.authURL(repoURL), dir); err != nil {
		return fmt.Errorf("failed to clone %s: %w", repoURL, err)
	}
	if _, err := c.runGit(ctx, dir, "checkout", branch); err != nil {
		return fmt.Errorf("failed to checkout branch %s: %w", branch, err)
	}
	return nil
}

// CreateBranch creates branch in dir and switches to it.
func (c *Client) CreateBranch(ctx context.Context, dir, branch string) error {
	if _, err := c.runGit(ctx, dir, "checkout", "-b", branch); err != nil {
		return fmt.Errorf("failed to create branch %s: %w", branch, err)
	}
	return nil
}

// ConfigureIdentity sets the committer identity for the workspace.
// Commits fail on a fresh clone without this.
func (c *Client) ConfigureIdentity(ctx context.Context, dir, name, email string) error {
	if _, err := c.runGit(ctx, dir, "config", "user.name", name); err != nil {
		return fmt.Errorf("failed to configure committer name: %w", err)
	}
	if _, err := c.runGit(ctx, dir, "config", "user.email", email); err != nil {
		return fmt.Errorf("failed to configure committer email: %w", err)
	}
	return nil
}

// CommitAll stages every change in dir and commits with message.
func (c *Client) CommitAll(ctx context.Context, dir, message string) error {
	if _, err := c.runGit(ctx, dir, "add", "-A"); err != nil {
		return fmt.Errorf("failed to stage changes: %w", err)
	}
	if _, err := c.runGit(ctx, dir, "commit", "-m", message); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Push pushes branch to origin.
func (c *Client) Push(ctx context.Context, dir, branch string) error {
	if _, err := c.runGit(ctx, dir, "push", "origin", branch); err != nil {
		return fmt.Errorf("failed to push branch %s: %w", branch, err)
	}
	return nil
}

// pullRequestPayload is the GitHub create-PR request body.
type pullRequestPayload struct {
	Title string `json:"title"`
	Head  string `json:"head"`
	Base  string `json:"base"`
	Body  string `json:"body"`
}

// pullRequestResponse carries the only response field we use.
type pullRequestResponse struct {
	HTMLURL string `json:"html_url"`
}

// OpenPullRequest opens a pull request from head into base on the repository
// at repoURL and returns the pull request's web address.
func (c *Client) OpenPullRequest(ctx context.Context, repoURL, head, base, title, body string) (string, error) {
	ownerRepo, err := ownerRepoFromURL(repoURL)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(pullRequestPayload{
		Title: title,
		Head:  head,
		Base:  base,
		Body:  body,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode pull request payload: %w", err)
	}

	apiBase := c.APIBaseURL
	if apiBase == "" {
		apiBase = DefaultAPIBaseURL
	}
	url := fmt.Sprintf("%s/repos/%s/pulls", apiBase, ownerRepo)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build pull request request: %w", err)
	}
	req.Header.Set("Authorization", "token "+c.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("pull request API call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("pull request API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var pr pullRequestResponse
	if err := json.Unmarshal(respBody, &pr); err != nil {
		return "", fmt.Errorf("failed to decode pull request response: %w", err)
	}
	if pr.HTMLURL == "" {
		return "", fmt.Errorf("pull request response missing html_url")
	}
	return pr.HTMLURL, nil
}

// authURL injects the token into an https repository URL.
func (c *Client) authURL(repoURL string) string {
	if c.Token == "" {
		return repoURL
	}
	return strings.Replace(repoURL, "https://", "https://"+c.Token+"@", 1)
}

// ownerRepoFromURL extracts "owner/repo" from a GitHub repository URL.
func ownerRepoFromURL(repoURL string) (string, error) {
	trimmed := strings.TrimSuffix(repoURL, ".git")
	_, after, found := strings.Cut(trimmed, "github.com/")
	if !found || after == "" {
		return "", fmt.Errorf("cannot determine owner/repo from %s", repoURL)
	}
	after = strings.Trim(after, "/")
	if strings.Count(after, "/") != 1 {
		return "", fmt.Errorf("cannot determine owner/repo from %s", repoURL)
	}
	return after, nil
}

// runGit executes a git command and returns combined output. The token never
// appears in returned errors.
func (c *Client) runGit(ctx context.Context, dir string, args ...string) (string, error) {
	gitPath := c.GitPath
	if gitPath == "" {
		gitPath = "git"
	}

	cmd := exec.CommandContext(ctx, gitPath, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("git %s: %w: %s",
			c.redact(strings.Join(args, " ")), err, c.redact(strings.TrimSpace(string(output))))
	}
	return string(output), nil
}

// redact removes the credential from diagnostic text.
func (c *Client) redact(s string) string {
	if c.Token == "" {
		return s
	}
	return strings.ReplaceAll(s, c.Token, "***")
}
