package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/thomas-vilte/reviewmate/internal/config"
	domainErrors "github.com/thomas-vilte/reviewmate/internal/errors"
	"github.com/thomas-vilte/reviewmate/internal/format"
	"github.com/thomas-vilte/reviewmate/internal/models"
)

const testPatch = "@@ -1,3 +1,3 @@\n unchanged line\n+added line\n-removed line\n another context line"

// testConfig lowers the critical threshold so a fully corroborated finding
// lands in the critical tier without sitting exactly on a float boundary.
func testConfig() *config.Config {
	return &config.Config{
		Review: config.ReviewConfig{
			CriticalThreshold: 0.90,
			HighThreshold:     0.70,
			MediumThreshold:   0.50,
			MaxResolvable:     5,
			MaxRetries:        0,
			Concurrency:       2,
			MaxFiles:          50,
			MaxPatchBytes:     64 * 1024,
			Tools: config.ToolsConfig{
				Linter:          true,
				TypeChecker:     true,
				SecurityScanner: true,
			},
		},
	}
}

func testPRData(files ...models.ChangedFile) *models.PullRequestData {
	return &models.PullRequestData{
		Number:  42,
		Title:   "Tighten query layer",
		Author:  "octocat",
		BaseRef: "main",
		HeadRef: "feature/queries",
		HeadSHA: "head456",
		Files:   files,
	}
}

func codeFile(path string) models.ChangedFile {
	return models.ChangedFile{Path: path, Status: "modified", Patch: testPatch}
}

// fileNamed matches a ChangedFile by path: the pipeline backfills
// addition/deletion counts before analysis, so exact struct equality
// does not hold.
func fileNamed(path string) interface{} {
	return mock.MatchedBy(func(f models.ChangedFile) bool { return f.Path == path })
}

func criticalSuggestion(path string) models.Suggestion {
	return models.Suggestion{
		Description:   "SQL injection through string concatenation",
		Category:      models.CategorySecurity,
		Severity:      models.SeverityCritical,
		FilePath:      path,
		LineNumber:    2,
		OriginalCode:  "bad",
		SuggestedCode: "good",
	}
}

func TestReviewPR_HappyPathPublishesSummaryAndInline(t *testing.T) {
	// Arrange
	vcs := new(MockVCSClient)
	reviewer := new(MockFileReviewer)
	file := codeFile("internal/db/query.go")
	pr := testPRData(file)

	vcs.On("GetPR", mock.Anything, 42).Return(pr, nil)
	vcs.On("HasExistingReview", mock.Anything, 42, "head456").Return(false, nil)
	reviewer.On("ReviewFile", mock.Anything, pr, fileNamed(file.Path)).
		Return([]models.Suggestion{criticalSuggestion(file.Path)}, nil)
	vcs.On("CreateComment", mock.Anything, 42,
		mock.MatchedBy(func(body string) bool { return strings.Contains(body, format.Marker("head456")) })).
		Return(nil)
	// line 2 of the new file sits at diff position 2
	vcs.On("CreateInlineComment", mock.Anything, 42, "head456", "internal/db/query.go", 2, mock.Anything).
		Return(nil)

	service := NewReviewService(vcs, reviewer, testConfig())

	// Act
	result, err := service.ReviewPR(context.Background(), 42)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, 1, result.FilesAnalyzed)
	assert.Equal(t, 2, result.PublishedComments)
	require.NotNil(t, result.Batch)
	require.Len(t, result.Batch.Suggestions, 1)
	assert.Equal(t, models.TierCritical, result.Batch.Suggestions[0].Tier)
	assert.True(t, result.Batch.Suggestions[0].Resolvable)
	assert.Equal(t, models.RecommendChangesRequested, result.Batch.Recommendation)
	vcs.AssertExpectations(t)
}

func TestReviewPR_SkipsWhenReviewAlreadyPublished(t *testing.T) {
	// Arrange
	vcs := new(MockVCSClient)
	reviewer := new(MockFileReviewer)
	pr := testPRData(codeFile("main.go"))

	vcs.On("GetPR", mock.Anything, 42).Return(pr, nil)
	vcs.On("HasExistingReview", mock.Anything, 42, "head456").Return(true, nil)

	service := NewReviewService(vcs, reviewer, testConfig())

	// Act
	result, err := service.ReviewPR(context.Background(), 42)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, StateSkipped, result.State)
	reviewer.AssertNotCalled(t, "ReviewFile", mock.Anything, mock.Anything, mock.Anything)
	vcs.AssertNotCalled(t, "CreateComment", mock.Anything, mock.Anything, mock.Anything)
}

func TestReviewPR_ZeroSuggestionsStillPublishesNoIssuesComment(t *testing.T) {
	// Arrange
	vcs := new(MockVCSClient)
	reviewer := new(MockFileReviewer)
	file := codeFile("main.go")
	pr := testPRData(file)

	vcs.On("GetPR", mock.Anything, 42).Return(pr, nil)
	vcs.On("HasExistingReview", mock.Anything, 42, "head456").Return(false, nil)
	reviewer.On("ReviewFile", mock.Anything, pr, fileNamed(file.Path)).Return([]models.Suggestion{}, nil)
	vcs.On("CreateComment", mock.Anything, 42,
		mock.MatchedBy(func(body string) bool { return strings.Contains(body, format.NoIssuesPhrase) })).
		Return(nil)

	service := NewReviewService(vcs, reviewer, testConfig())

	// Act
	result, err := service.ReviewPR(context.Background(), 42)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, 1, result.PublishedComments)
	vcs.AssertExpectations(t)
}

func TestReviewPR_FatalAnalysisErrorLeavesFailureNotice(t *testing.T) {
	// Arrange
	vcs := new(MockVCSClient)
	reviewer := new(MockFileReviewer)
	file := codeFile("main.go")
	pr := testPRData(file)

	vcs.On("GetPR", mock.Anything, 42).Return(pr, nil)
	vcs.On("HasExistingReview", mock.Anything, 42, "head456").Return(false, nil)
	reviewer.On("ReviewFile", mock.Anything, pr, fileNamed(file.Path)).
		Return(nil, domainErrors.ErrAuthenticationFailed)
	vcs.On("CreateComment", mock.Anything, 42,
		mock.MatchedBy(func(body string) bool { return strings.Contains(body, "could not be completed") })).
		Return(nil)

	service := NewReviewService(vcs, reviewer, testConfig())

	// Act
	result, err := service.ReviewPR(context.Background(), 42)

	// Assert
	require.Error(t, err)
	assert.Equal(t, StateFailed, result.State)
	assert.Equal(t, domainErrors.TypeAuth, domainErrors.TypeOf(err))
	vcs.AssertExpectations(t)
}

func TestReviewPR_SchemaErrorOnOneFileDegradesGracefully(t *testing.T) {
	// Arrange
	vcs := new(MockVCSClient)
	reviewer := new(MockFileReviewer)
	broken := codeFile("internal/a.go")
	healthy := codeFile("internal/b.go")
	pr := testPRData(broken, healthy)

	vcs.On("GetPR", mock.Anything, 42).Return(pr, nil)
	vcs.On("HasExistingReview", mock.Anything, 42, "head456").Return(false, nil)
	reviewer.On("ReviewFile", mock.Anything, pr, fileNamed(broken.Path)).
		Return(nil, domainErrors.ErrInvalidSuggestionSchema)
	reviewer.On("ReviewFile", mock.Anything, pr, fileNamed(healthy.Path)).
		Return([]models.Suggestion{criticalSuggestion(healthy.Path)}, nil)
	vcs.On("CreateComment", mock.Anything, 42, mock.Anything).Return(nil)
	vcs.On("CreateInlineComment", mock.Anything, 42, "head456", "internal/b.go", 2, mock.Anything).
		Return(nil)

	service := NewReviewService(vcs, reviewer, testConfig())

	// Act
	result, err := service.ReviewPR(context.Background(), 42)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)
	require.NotNil(t, result.Batch)
	require.Len(t, result.Batch.Suggestions, 1)
	assert.Equal(t, "internal/b.go", result.Batch.Suggestions[0].FilePath)
}

func TestReviewPR_PositionRejectionFallsBackToPlainComment(t *testing.T) {
	// Arrange
	vcs := new(MockVCSClient)
	reviewer := new(MockFileReviewer)
	file := codeFile("internal/db/query.go")
	pr := testPRData(file)

	vcs.On("GetPR", mock.Anything, 42).Return(pr, nil)
	vcs.On("HasExistingReview", mock.Anything, 42, "head456").Return(false, nil)
	reviewer.On("ReviewFile", mock.Anything, pr, fileNamed(file.Path)).
		Return([]models.Suggestion{criticalSuggestion(file.Path)}, nil)
	vcs.On("CreateInlineComment", mock.Anything, 42, "head456", "internal/db/query.go", 2, mock.Anything).
		Return(domainErrors.ErrPositionUnresolvable)
	vcs.On("CreateComment", mock.Anything, 42, mock.Anything).Return(nil)

	service := NewReviewService(vcs, reviewer, testConfig())

	// Act
	result, err := service.ReviewPR(context.Background(), 42)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, 1, result.InlineFallbacks)
	assert.Equal(t, 2, result.PublishedComments, "summary plus one fallback comment")
}

func TestReviewPR_TransientInlineFailureFallsBackToPlainComment(t *testing.T) {
	// Arrange
	vcs := new(MockVCSClient)
	reviewer := new(MockFileReviewer)
	file := codeFile("internal/db/query.go")
	pr := testPRData(file)

	vcs.On("GetPR", mock.Anything, 42).Return(pr, nil)
	vcs.On("HasExistingReview", mock.Anything, 42, "head456").Return(false, nil)
	reviewer.On("ReviewFile", mock.Anything, pr, fileNamed(file.Path)).
		Return([]models.Suggestion{criticalSuggestion(file.Path)}, nil)
	vcs.On("CreateInlineComment", mock.Anything, 42, "head456", "internal/db/query.go", 2, mock.Anything).
		Return(domainErrors.ErrTransientService)
	vcs.On("CreateComment", mock.Anything, 42, mock.Anything).Return(nil)

	service := NewReviewService(vcs, reviewer, testConfig())

	// Act
	result, err := service.ReviewPR(context.Background(), 42)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, 1, result.InlineFallbacks)
	assert.Equal(t, 2, result.PublishedComments, "summary plus one fallback comment")
	vcs.AssertExpectations(t)
}

func TestReviewPR_SuggestionsOrderedByFilePath(t *testing.T) {
	// Arrange
	vcs := new(MockVCSClient)
	reviewer := new(MockFileReviewer)
	later := codeFile("internal/zeta.go")
	earlier := codeFile("internal/alpha.go")
	pr := testPRData(later, earlier)
	cfg := testConfig()
	cfg.Review.DisableInline = true

	vcs.On("GetPR", mock.Anything, 42).Return(pr, nil)
	vcs.On("HasExistingReview", mock.Anything, 42, "head456").Return(false, nil)
	reviewer.On("ReviewFile", mock.Anything, pr, fileNamed(later.Path)).
		Return([]models.Suggestion{criticalSuggestion(later.Path)}, nil)
	reviewer.On("ReviewFile", mock.Anything, pr, fileNamed(earlier.Path)).
		Return([]models.Suggestion{criticalSuggestion(earlier.Path)}, nil)
	vcs.On("CreateComment", mock.Anything, 42, mock.Anything).Return(nil)

	service := NewReviewService(vcs, reviewer, cfg)

	// Act
	result, err := service.ReviewPR(context.Background(), 42)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, result.Batch)
	require.Len(t, result.Batch.Suggestions, 2)
	assert.Equal(t, "internal/alpha.go", result.Batch.Suggestions[0].FilePath)
	assert.Equal(t, "internal/zeta.go", result.Batch.Suggestions[1].FilePath)
}

func TestReviewPR_DryRunPublishesNothing(t *testing.T) {
	// Arrange
	vcs := new(MockVCSClient)
	reviewer := new(MockFileReviewer)
	file := codeFile("main.go")
	pr := testPRData(file)

	vcs.On("GetPR", mock.Anything, 42).Return(pr, nil)
	vcs.On("HasExistingReview", mock.Anything, 42, "head456").Return(false, nil)
	reviewer.On("ReviewFile", mock.Anything, pr, fileNamed(file.Path)).
		Return([]models.Suggestion{criticalSuggestion(file.Path)}, nil)

	service := NewReviewService(vcs, reviewer, testConfig(), WithDryRun(true))

	// Act
	result, err := service.ReviewPR(context.Background(), 42)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, 0, result.PublishedComments)
	require.NotNil(t, result.Output)
	assert.NotEmpty(t, result.Output.Summary)
	vcs.AssertNotCalled(t, "CreateComment", mock.Anything, mock.Anything, mock.Anything)
	vcs.AssertNotCalled(t, "CreateInlineComment", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReviewPR_FiltersUnreviewableFiles(t *testing.T) {
	// Arrange
	vcs := new(MockVCSClient)
	reviewer := new(MockFileReviewer)
	reviewable := codeFile("internal/handler.go")
	pr := testPRData(
		reviewable,
		models.ChangedFile{Path: "logo.png", Status: "added", Binary: true},
		models.ChangedFile{Path: "go.sum", Status: "modified", Patch: testPatch},
		models.ChangedFile{Path: "internal/gone.go", Status: "removed", Patch: testPatch},
	)

	vcs.On("GetPR", mock.Anything, 42).Return(pr, nil)
	vcs.On("HasExistingReview", mock.Anything, 42, "head456").Return(false, nil)
	reviewer.On("ReviewFile", mock.Anything, pr, fileNamed(reviewable.Path)).Return([]models.Suggestion{}, nil)
	vcs.On("CreateComment", mock.Anything, 42, mock.Anything).Return(nil)

	service := NewReviewService(vcs, reviewer, testConfig())

	// Act
	result, err := service.ReviewPR(context.Background(), 42)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesAnalyzed)
	assert.Equal(t, 3, result.FilesSkipped)
	reviewer.AssertNumberOfCalls(t, "ReviewFile", 1)
}

func TestReviewPR_InlineDisabledUsesPlainComments(t *testing.T) {
	// Arrange
	vcs := new(MockVCSClient)
	reviewer := new(MockFileReviewer)
	file := codeFile("internal/db/query.go")
	pr := testPRData(file)
	cfg := testConfig()
	cfg.Review.DisableInline = true

	vcs.On("GetPR", mock.Anything, 42).Return(pr, nil)
	vcs.On("HasExistingReview", mock.Anything, 42, "head456").Return(false, nil)
	reviewer.On("ReviewFile", mock.Anything, pr, fileNamed(file.Path)).
		Return([]models.Suggestion{criticalSuggestion(file.Path)}, nil)
	vcs.On("CreateComment", mock.Anything, 42, mock.Anything).Return(nil)

	service := NewReviewService(vcs, reviewer, cfg)

	// Act
	result, err := service.ReviewPR(context.Background(), 42)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)
	vcs.AssertNotCalled(t, "CreateInlineComment", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 2, result.PublishedComments)
}
