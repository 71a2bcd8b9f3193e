package memory

import (
	"context"
	"sort"
	"time"

	"github.com/RubachokBoss/attempt-service/internal/models"
	"github.com/RubachokBoss/attempt-service/internal/repository"
)

type assignmentRepository struct {
	db *DB
}

func NewAssignmentRepository(db *DB) repository.AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) GetByID(_ context.Context, id string) (*models.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	a, ok := repo.db.assignments[id]
	if !ok {
		return nil, nil
	}
	return repo.project(a), nil
}

// project fills the activity kind the way the SQL join does.
func (repo *assignmentRepository) project(a *models.Assignment) *models.Assignment {
	c := copyAssignment(a)
	if activity, ok := repo.db.activities[a.ActivityID]; ok {
		c.ActivityKind = activity.Kind
	} else {
		c.ActivityKind = ""
	}
	return c
}

func (repo *assignmentRepository) GetActivity(_ context.Context, id string) (*models.Activity, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	activity, ok := repo.db.activities[id]
	if !ok {
		return nil, nil
	}
	c := *activity
	c.Questions = append([]models.Question(nil), activity.Questions...)
	return &c, nil
}

func (repo *assignmentRepository) ListExpiredOpen(_ context.Context, now time.Time) ([]models.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var assignments []models.Assignment
	for _, a := range repo.db.assignments {
		if a.Status != models.AssignmentStatusOpen || a.WindowEnd == nil || a.WindowEnd.After(now) {
			continue
		}
		assignments = append(assignments, *repo.project(a))
	}
	sort.Slice(assignments, func(i, j int) bool {
		return assignments[i].WindowEnd.Before(*assignments[j].WindowEnd)
	})
	return assignments, nil
}

func (repo *assignmentRepository) SetClosed(_ context.Context, id string, now time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	a, ok := repo.db.assignments[id]
	if !ok {
		return repository.ErrNotFound
	}
	if a.Status != models.AssignmentStatusOpen {
		return repository.ErrNotOpen
	}
	a.Status = models.AssignmentStatusClosed
	a.UpdatedAt = now
	return nil
}
