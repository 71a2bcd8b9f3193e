package memory

import (
	"context"

	"github.com/RubachokBoss/attempt-service/internal/models"
	"github.com/RubachokBoss/attempt-service/internal/repository"
)

type attemptRepository struct {
	db *DB
}

func NewAttemptRepository(db *DB) repository.AttemptRepository {
	return &attemptRepository{db: db}
}

func (repo *attemptRepository) Create(_ context.Context, attempt *models.Attempt) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.attempts[attempt.ID]; ok {
		return repository.ErrDuplicateAttempt
	}
	for _, a := range repo.db.attempts {
		if a.AssignmentID != attempt.AssignmentID || a.StudentID != attempt.StudentID {
			continue
		}
		if a.AttemptNumber == attempt.AttemptNumber {
			return repository.ErrDuplicateAttempt
		}
		if a.State == models.AttemptStateInProgress && attempt.State == models.AttemptStateInProgress {
			return repository.ErrDuplicateAttempt
		}
	}

	repo.db.attempts[attempt.ID] = copyAttempt(attempt)
	return nil
}

func (repo *attemptRepository) GetByID(_ context.Context, id string) (*models.Attempt, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if a, ok := repo.db.attempts[id]; ok {
		return copyAttempt(a), nil
	}
	return nil, nil
}

func (repo *attemptRepository) FindInProgress(_ context.Context, assignmentID, studentID string) (*models.Attempt, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, a := range repo.db.attempts {
		if a.AssignmentID == assignmentID && a.StudentID == studentID && a.State == models.AttemptStateInProgress {
			return copyAttempt(a), nil
		}
	}
	return nil, nil
}

func (repo *attemptRepository) CountTerminal(_ context.Context, assignmentID, studentID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	count := 0
	for _, a := range repo.db.attempts {
		if a.AssignmentID == assignmentID && a.StudentID == studentID && a.State.IsTerminal() {
			count++
		}
	}
	return count, nil
}

func (repo *attemptRepository) Save(_ context.Context, attempt *models.Attempt, opts repository.SaveOptions) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored, ok := repo.db.attempts[attempt.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if opts.RequireOpenAssignment {
		assignment, ok := repo.db.assignments[attempt.AssignmentID]
		if !ok {
			return repository.ErrNotFound
		}
		if assignment.Status != models.AssignmentStatusOpen {
			return repository.ErrAssignmentClosed
		}
	}
	if stored.Version != attempt.Version {
		return repository.ErrVersionConflict
	}

	attempt.Version++
	repo.db.attempts[attempt.ID] = copyAttempt(attempt)
	return nil
}
