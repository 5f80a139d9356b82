// Package github publishes review output through the GitHub API and fetches
// the change-request data the pipeline runs on.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v80/github"
	domainErrors "github.com/thomas-vilte/reviewmate/internal/errors"
	"github.com/thomas-vilte/reviewmate/internal/format"
	"github.com/thomas-vilte/reviewmate/internal/logger"
	"github.com/thomas-vilte/reviewmate/internal/models"
	"golang.org/x/oauth2"
)

type PullRequestsService interface {
	Get(ctx context.Context, owner, repo string, number int) (*github.PullRequest, *github.Response, error)
	ListFiles(ctx context.Context, owner, repo string, number int, opts *github.ListOptions) ([]*github.CommitFile, *github.Response, error)
	CreateComment(ctx context.Context, owner, repo string, number int, comment *github.PullRequestComment) (*github.PullRequestComment, *github.Response, error)
}

type IssuesService interface {
	CreateComment(ctx context.Context, owner, repo string, number int, comment *github.IssueComment) (*github.IssueComment, *github.Response, error)
	ListComments(ctx context.Context, owner, repo string, number int, opts *github.IssueListCommentsOptions) ([]*github.IssueComment, *github.Response, error)
}

type GitHubClient struct {
	prService     PullRequestsService
	issuesService IssuesService
	owner         string
	repo          string
}

func NewGitHubClient(owner, repo, token string) *GitHubClient {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}

	client := github.NewClient(httpClient)
	return &GitHubClient{
		prService:     client.PullRequests,
		issuesService: client.Issues,
		owner:         owner,
		repo:          repo,
	}
}

func NewGitHubClientWithServices(
	prService PullRequestsService,
	issuesService IssuesService,
	owner string,
	repo string,
) *GitHubClient {
	return &GitHubClient{
		prService:     prService,
		issuesService: issuesService,
		owner:         owner,
		repo:          repo,
	}
}

// GetPR fetches the change request plus its full per-file patch list.
func (ghc *GitHubClient) GetPR(ctx context.Context, prNumber int) (*models.PullRequestData, error) {
	log := logger.FromContext(ctx)

	log.Debug("fetching pull request",
		"owner", ghc.owner,
		"repo", ghc.repo,
		"pr_number", prNumber)

	pr, resp, err := ghc.prService.Get(ctx, ghc.owner, ghc.repo, prNumber)
	if err != nil {
		return nil, ghc.mapResponseError(resp, err, "get PR", prNumber)
	}

	data := &models.PullRequestData{
		Number:  prNumber,
		Title:   pr.GetTitle(),
		Body:    pr.GetBody(),
		Author:  pr.GetUser().GetLogin(),
		BaseRef: pr.GetBase().GetRef(),
		HeadRef: pr.GetHead().GetRef(),
		BaseSHA: pr.GetBase().GetSHA(),
		HeadSHA: pr.GetHead().GetSHA(),
	}

	opts := &github.ListOptions{PerPage: 100}
	for {
		files, resp, err := ghc.prService.ListFiles(ctx, ghc.owner, ghc.repo, prNumber, opts)
		if err != nil {
			return nil, ghc.mapResponseError(resp, err, "list PR files", prNumber)
		}

		for _, f := range files {
			data.Files = append(data.Files, models.ChangedFile{
				Path:      f.GetFilename(),
				Status:    f.GetStatus(),
				Additions: f.GetAdditions(),
				Deletions: f.GetDeletions(),
				Patch:     f.GetPatch(),
				Binary:    f.GetPatch() == "" && f.GetStatus() != "removed",
			})
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	log.Debug("pull request fetched",
		"pr_number", prNumber,
		"title", data.Title,
		"files", len(data.Files))

	return data, nil
}

// HasExistingReview reports whether a review for this exact head commit has
// already been published, by scanning issue comments for the marker.
func (ghc *GitHubClient) HasExistingReview(ctx context.Context, prNumber int, headSHA string) (bool, error) {
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		comments, resp, err := ghc.issuesService.ListComments(ctx, ghc.owner, ghc.repo, prNumber, opts)
		if err != nil {
			return false, ghc.mapResponseError(resp, err, "list PR comments", prNumber)
		}

		for _, c := range comments {
			if format.HasMarker(c.GetBody(), headSHA) {
				return true, nil
			}
		}

		if resp == nil || resp.NextPage == 0 {
			return false, nil
		}
		opts.Page = resp.NextPage
	}
}

// CreateComment publishes a plain comment on the change request.
func (ghc *GitHubClient) CreateComment(ctx context.Context, prNumber int, body string) error {
	comment := &github.IssueComment{Body: github.Ptr(body)}
	_, resp, err := ghc.issuesService.CreateComment(ctx, ghc.owner, ghc.repo, prNumber, comment)
	if err != nil {
		return ghc.mapResponseError(resp, err, "create comment", prNumber)
	}
	return nil
}

// CreateInlineComment anchors a comment at a diff position. An
// unprocessable-entity answer means the position is no longer valid for the
// diff and is reported as a position error so the caller can fall back.
func (ghc *GitHubClient) CreateInlineComment(ctx context.Context, prNumber int, commitSHA, path string, position int, body string) error {
	comment := &github.PullRequestComment{
		Body:     github.Ptr(body),
		CommitID: github.Ptr(commitSHA),
		Path:     github.Ptr(path),
		Position: github.Ptr(position),
	}

	_, resp, err := ghc.prService.CreateComment(ctx, ghc.owner, ghc.repo, prNumber, comment)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnprocessableEntity {
			return domainErrors.ErrPositionUnresolvable.
				WithContext("file", path).
				WithContext("position", position).
				WithError(err)
		}
		return ghc.mapResponseError(resp, err, "create inline comment", prNumber)
	}
	return nil
}

func (ghc *GitHubClient) mapResponseError(resp *github.Response, err error, operation string, prNumber int) error {
	repo := fmt.Sprintf("%s/%s", ghc.owner, ghc.repo)

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return domainErrors.ErrRateLimitExceeded.
			WithContext("operation", operation).
			WithContext("reset", rateErr.Rate.Reset.String()).
			WithError(err)
	}

	if resp != nil {
		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return domainErrors.ErrAuthenticationFailed.
				WithContext("operation", operation).
				WithContext("repo", repo).
				WithError(err)
		case resp.StatusCode == http.StatusForbidden:
			if strings.Contains(strings.ToLower(err.Error()), "rate limit") {
				return domainErrors.ErrRateLimitExceeded.
					WithContext("operation", operation).
					WithContext("retry_after", resp.Header.Get("Retry-After")).
					WithError(err)
			}
			return domainErrors.ErrAuthenticationFailed.
				WithContext("operation", operation).
				WithContext("repo", repo).
				WithError(err)
		case resp.StatusCode == http.StatusNotFound:
			return domainErrors.ErrPRNotFound.
				WithContext("operation", operation).
				WithContext("pr_number", prNumber).
				WithContext("repo", repo).
				WithError(err)
		case resp.StatusCode == http.StatusTooManyRequests:
			return domainErrors.ErrRateLimitExceeded.
				WithContext("operation", operation).
				WithContext("retry_after", resp.Header.Get("Retry-After")).
				WithError(err)
		case resp.StatusCode >= 500:
			return domainErrors.ErrTransientService.
				WithContext("operation", operation).
				WithContext("status_code", resp.StatusCode).
				WithError(err)
		}
	}

	return domainErrors.NewAppError(domainErrors.TypeVCS,
		fmt.Sprintf("%s failed for PR #%d", operation, prNumber), err)
}
