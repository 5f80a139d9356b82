package github

import (
	"context"

	"github.com/google/go-github/v80/github"
	"github.com/stretchr/testify/mock"
)

type MockPRService struct {
	mock.Mock
}

func (m *MockPRService) Get(ctx context.Context, owner, repo string, number int) (*github.PullRequest, *github.Response, error) {
	args := m.Called(ctx, owner, repo, number)
	pr, _ := args.Get(0).(*github.PullRequest)
	resp, _ := args.Get(1).(*github.Response)
	return pr, resp, args.Error(2)
}

func (m *MockPRService) ListFiles(ctx context.Context, owner, repo string, number int, opts *github.ListOptions) ([]*github.CommitFile, *github.Response, error) {
	args := m.Called(ctx, owner, repo, number, opts)
	files, _ := args.Get(0).([]*github.CommitFile)
	resp, _ := args.Get(1).(*github.Response)
	return files, resp, args.Error(2)
}

func (m *MockPRService) CreateComment(ctx context.Context, owner, repo string, number int, comment *github.PullRequestComment) (*github.PullRequestComment, *github.Response, error) {
	args := m.Called(ctx, owner, repo, number, comment)
	c, _ := args.Get(0).(*github.PullRequestComment)
	resp, _ := args.Get(1).(*github.Response)
	return c, resp, args.Error(2)
}

type MockIssuesService struct {
	mock.Mock
}

func (m *MockIssuesService) CreateComment(ctx context.Context, owner, repo string, number int, comment *github.IssueComment) (*github.IssueComment, *github.Response, error) {
	args := m.Called(ctx, owner, repo, number, comment)
	c, _ := args.Get(0).(*github.IssueComment)
	resp, _ := args.Get(1).(*github.Response)
	return c, resp, args.Error(2)
}

func (m *MockIssuesService) ListComments(ctx context.Context, owner, repo string, number int, opts *github.IssueListCommentsOptions) ([]*github.IssueComment, *github.Response, error) {
	args := m.Called(ctx, owner, repo, number, opts)
	comments, _ := args.Get(0).([]*github.IssueComment)
	resp, _ := args.Get(1).(*github.Response)
	return comments, resp, args.Error(2)
}
