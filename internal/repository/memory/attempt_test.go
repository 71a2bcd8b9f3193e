package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RubachokBoss/attempt-service/internal/models"
	"github.com/RubachokBoss/attempt-service/internal/repository"
)

func seed(db *DB, status models.AssignmentStatus) {
	db.PutActivity(models.Activity{ID: "act-1", Kind: models.ActivityKindQuiz})
	db.PutAssignment(models.Assignment{ID: "asg-1", ActivityID: "act-1", GroupID: "grp-1", OwnerID: "owner-1", Status: status})
}

func newAttempt(id string, number int, state models.AttemptState) *models.Attempt {
	return &models.Attempt{
		ID:              id,
		AssignmentID:    "asg-1",
		StudentID:       "stu-1",
		AttemptNumber:   number,
		State:           state,
		SubmissionState: models.SubmissionStatePending,
		StartedAt:       time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestAttemptRepository_CreateEnforcesUniqueness(t *testing.T) {
	db := NewDB()
	seed(db, models.AssignmentStatusOpen)
	repo := NewAttemptRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newAttempt("a1", 1, models.AttemptStateInProgress)))

	assert.ErrorIs(t, repo.Create(ctx, newAttempt("a1", 9, models.AttemptStateCompletedByUser)), repository.ErrDuplicateAttempt)
	assert.ErrorIs(t, repo.Create(ctx, newAttempt("a2", 2, models.AttemptStateInProgress)), repository.ErrDuplicateAttempt)
	assert.ErrorIs(t, repo.Create(ctx, newAttempt("a3", 1, models.AttemptStateCompletedByUser)), repository.ErrDuplicateAttempt)

	require.NoError(t, repo.Create(ctx, newAttempt("a4", 2, models.AttemptStateCompletedByUser)))
}

func TestAttemptRepository_Lookups(t *testing.T) {
	db := NewDB()
	seed(db, models.AssignmentStatusOpen)
	repo := NewAttemptRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newAttempt("done-1", 1, models.AttemptStateCompletedByUser)))
	require.NoError(t, repo.Create(ctx, newAttempt("done-2", 2, models.AttemptStateAutoSavedOnClosure)))
	require.NoError(t, repo.Create(ctx, newAttempt("open-3", 3, models.AttemptStateInProgress)))

	count, err := repo.CountTerminal(ctx, "asg-1", "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	inProgress, err := repo.FindInProgress(ctx, "asg-1", "stu-1")
	require.NoError(t, err)
	require.NotNil(t, inProgress)
	assert.Equal(t, "open-3", inProgress.ID)

	none, err := repo.FindInProgress(ctx, "asg-1", "stu-2")
	require.NoError(t, err)
	assert.Nil(t, none)

	missing, err := repo.GetByID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAttemptRepository_ReturnsCopies(t *testing.T) {
	db := NewDB()
	seed(db, models.AssignmentStatusOpen)
	repo := NewAttemptRepository(db)
	ctx := context.Background()

	attempt := newAttempt("a1", 1, models.AttemptStateInProgress)
	attempt.Answers.Responses = []models.AnswerRecord{{QuestionIndex: 0, Answer: "a"}}
	require.NoError(t, repo.Create(ctx, attempt))
	attempt.Answers.Responses[0].Answer = "changed"

	loaded, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "a", loaded.Answers.Responses[0].Answer)

	loaded.State = models.AttemptStateCompletedByUser
	again, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptStateInProgress, again.State)
}

func TestAttemptRepository_SaveChecksVersion(t *testing.T) {
	db := NewDB()
	seed(db, models.AssignmentStatusOpen)
	repo := NewAttemptRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newAttempt("a1", 1, models.AttemptStateInProgress)))

	first, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)

	first.State = models.AttemptStateCompletedByUser
	require.NoError(t, repo.Save(ctx, first, repository.SaveOptions{}))
	assert.Equal(t, 1, first.Version)

	second.State = models.AttemptStateCompletedByTimeout
	assert.ErrorIs(t, repo.Save(ctx, second, repository.SaveOptions{}), repository.ErrVersionConflict)

	stored, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptStateCompletedByUser, stored.State)

	assert.ErrorIs(t, repo.Save(ctx, newAttempt("ghost", 5, models.AttemptStateCompletedByUser), repository.SaveOptions{}),
		repository.ErrNotFound)
}

func TestAttemptRepository_SaveRequiresOpenAssignment(t *testing.T) {
	db := NewDB()
	seed(db, models.AssignmentStatusOpen)
	repo := NewAttemptRepository(db)
	assignments := NewAssignmentRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newAttempt("a1", 1, models.AttemptStateInProgress)))
	require.NoError(t, assignments.SetClosed(ctx, "asg-1", time.Now()))

	attempt, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	attempt.State = models.AttemptStateCompletedByUser

	assert.ErrorIs(t, repo.Save(ctx, attempt, repository.SaveOptions{RequireOpenAssignment: true}), repository.ErrAssignmentClosed)
	assert.Equal(t, 0, attempt.Version)

	attempt.State = models.AttemptStateAutoSavedOnClosure
	require.NoError(t, repo.Save(ctx, attempt, repository.SaveOptions{}))
}
