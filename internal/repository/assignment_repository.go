package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/attempt-service/internal/models"
)

// AssignmentRepository is the read-mostly catalog of assignments and their activities.
type AssignmentRepository interface {
	GetByID(ctx context.Context, id string) (*models.Assignment, error)
	GetActivity(ctx context.Context, id string) (*models.Activity, error)
	ListExpiredOpen(ctx context.Context, now time.Time) ([]models.Assignment, error)
	// SetClosed moves an open assignment to closed. It returns ErrNotOpen if the
	// assignment was not open any more.
	SetClosed(ctx context.Context, id string, now time.Time) error
}

type assignmentRepository struct {
	*PostgresRepository
}

func NewAssignmentRepository(db *sql.DB, logger zerolog.Logger) AssignmentRepository {
	return &assignmentRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const assignmentSelect = `
	SELECT
		a.id, a.activity_id, COALESCE(act.kind, ''), a.group_id, a.owner_id, a.title, a.status,
		a.window_start, a.window_end, a.attempts_allowed, a.time_limit_minutes, a.max_points,
		a.created_at, a.updated_at
	FROM assignments a
	LEFT JOIN activities act ON act.id = a.activity_id
`

func (r *assignmentRepository) GetByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := assignmentSelect + ` WHERE a.id = $1`

	assignment, err := scanAssignment(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return assignment, err
}

func (r *assignmentRepository) GetActivity(ctx context.Context, id string) (*models.Activity, error) {
	query := `SELECT id, kind, title, questions FROM activities WHERE id = $1`

	activity := &models.Activity{}
	var questions []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&activity.ID,
		&activity.Kind,
		&activity.Title,
		&questions,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if len(questions) > 0 {
		if err := json.Unmarshal(questions, &activity.Questions); err != nil {
			return nil, fmt.Errorf("failed to decode questions of activity %s: %w", id, err)
		}
	}

	return activity, nil
}

func (r *assignmentRepository) ListExpiredOpen(ctx context.Context, now time.Time) ([]models.Assignment, error) {
	query := assignmentSelect + `
		WHERE a.status = $1 AND a.window_end IS NOT NULL AND a.window_end <= $2
		ORDER BY a.window_end
	`

	rows, err := r.db.QueryContext(ctx, query, models.AssignmentStatusOpen, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []models.Assignment
	for rows.Next() {
		assignment, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, *assignment)
	}

	return assignments, rows.Err()
}

func (r *assignmentRepository) SetClosed(ctx context.Context, id string, now time.Time) error {
	query := `
		UPDATE assignments
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.db.ExecContext(ctx, query,
		models.AssignmentStatusClosed,
		now,
		id,
		models.AssignmentStatusOpen,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotOpen
	}

	return nil
}

func scanAssignment(row rowScanner) (*models.Assignment, error) {
	assignment := &models.Assignment{}
	err := row.Scan(
		&assignment.ID,
		&assignment.ActivityID,
		&assignment.ActivityKind,
		&assignment.GroupID,
		&assignment.OwnerID,
		&assignment.Title,
		&assignment.Status,
		&assignment.WindowStart,
		&assignment.WindowEnd,
		&assignment.AttemptsAllowed,
		&assignment.TimeLimitMinutes,
		&assignment.MaxPoints,
		&assignment.CreatedAt,
		&assignment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return assignment, nil
}
