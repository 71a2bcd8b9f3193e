// Package memory keeps assignments, activities, memberships and attempts in process
// memory. It backs the "memory" database driver and the tests.
package memory

import (
	"context"
	"sync"

	"github.com/RubachokBoss/attempt-service/internal/models"
)

type membershipKey struct {
	groupID string
	userID  string
}

// DB is shared by the repositories so that a single mutex orders every write,
// which is what lets Save check the assignment status and write the attempt atomically.
type DB struct {
	mutex       sync.RWMutex
	assignments map[string]*models.Assignment
	activities  map[string]*models.Activity
	members     map[membershipKey]bool
	attempts    map[string]*models.Attempt
}

func NewDB() *DB {
	return &DB{
		assignments: make(map[string]*models.Assignment),
		activities:  make(map[string]*models.Activity),
		members:     make(map[membershipKey]bool),
		attempts:    make(map[string]*models.Attempt),
	}
}

func (db *DB) PutAssignment(assignment models.Assignment) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.assignments[assignment.ID] = copyAssignment(&assignment)
}

func (db *DB) PutActivity(activity models.Activity) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	activity.Questions = append([]models.Question(nil), activity.Questions...)
	db.activities[activity.ID] = &activity
}

// AddMember records userID in groupID; approved=false models a pending request.
func (db *DB) AddMember(groupID, userID string, approved bool) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.members[membershipKey{groupID: groupID, userID: userID}] = approved
}

// PutAttempt stores attempt as is, bypassing the uniqueness checks of Create.
func (db *DB) PutAttempt(attempt models.Attempt) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.attempts[attempt.ID] = copyAttempt(&attempt)
}

func copyAssignment(a *models.Assignment) *models.Assignment {
	c := *a
	return &c
}

func copyAttempt(a *models.Attempt) *models.Attempt {
	c := *a
	if a.Score != nil {
		score := *a.Score
		c.Score = &score
	}
	if a.SubmittedAt != nil {
		at := *a.SubmittedAt
		c.SubmittedAt = &at
	}
	c.Answers.Responses = append([]models.AnswerRecord(nil), a.Answers.Responses...)
	return &c
}

// Ping always succeeds; it lets the in-memory store stand in for a database in health checks.
func (db *DB) Ping(_ context.Context) error {
	return nil
}
