package consolidate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// GitHubPublisherConfig configures GitHubPublisher. A zero-value Token
// makes NewGitHubPublisher return NoopPublisher instead, so consolidation
// runs fine with no credentials configured — this is an optional ops
// integration, not a required sink (spec.md's reports directory is the
// canonical artifact regardless).
type GitHubPublisherConfig struct {
	Token       string
	Owner       string
	Repo        string
	IssueNumber int
}

// GitHubPublisher posts a completed consolidation report as an issue
// comment, letting operators who wire a token review consolidation runs
// without tailing the reports directory. Grounded on the teacher's
// NewGitHubClient (oauth2 static token source + go-github client).
type GitHubPublisher struct {
	cfg    GitHubPublisherConfig
	client *github.Client
}

// NewGitHubPublisher returns a GitHubPublisher, or NoopPublisher if cfg is
// unconfigured.
func NewGitHubPublisher(ctx context.Context, cfg GitHubPublisherConfig) ReportPublisher {
	if cfg.Token == "" || cfg.Owner == "" || cfg.Repo == "" || cfg.IssueNumber == 0 {
		return NoopPublisher{}
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	tc := oauth2.NewClient(ctx, ts)
	return &GitHubPublisher{cfg: cfg, client: github.NewClient(tc)}
}

func (p *GitHubPublisher) Publish(ctx context.Context, report *Report) error {
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report for publish: %w", err)
	}
	comment := &github.IssueComment{
		Body: github.String(fmt.Sprintf("Consolidation report `%s` (%s)\n\n```json\n%s\n```", report.RunID, report.Horizon, body)),
	}
	_, _, err = p.client.Issues.CreateComment(ctx, p.cfg.Owner, p.cfg.Repo, p.cfg.IssueNumber, comment)
	return err
}

var _ ReportPublisher = (*GitHubPublisher)(nil)
