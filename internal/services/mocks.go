package services

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/thomas-vilte/reviewmate/internal/models"
)

type MockVCSClient struct {
	mock.Mock
}

func (m *MockVCSClient) GetPR(ctx context.Context, prNumber int) (*models.PullRequestData, error) {
	args := m.Called(ctx, prNumber)
	pr, _ := args.Get(0).(*models.PullRequestData)
	return pr, args.Error(1)
}

func (m *MockVCSClient) HasExistingReview(ctx context.Context, prNumber int, headSHA string) (bool, error) {
	args := m.Called(ctx, prNumber, headSHA)
	return args.Bool(0), args.Error(1)
}

func (m *MockVCSClient) CreateComment(ctx context.Context, prNumber int, body string) error {
	args := m.Called(ctx, prNumber, body)
	return args.Error(0)
}

func (m *MockVCSClient) CreateInlineComment(ctx context.Context, prNumber int, commitSHA, path string, position int, body string) error {
	args := m.Called(ctx, prNumber, commitSHA, path, position, body)
	return args.Error(0)
}

type MockFileReviewer struct {
	mock.Mock
}

func (m *MockFileReviewer) ReviewFile(ctx context.Context, pr *models.PullRequestData, file models.ChangedFile) ([]models.Suggestion, error) {
	args := m.Called(ctx, pr, file)
	suggestions, _ := args.Get(0).([]models.Suggestion)
	return suggestions, args.Error(1)
}
