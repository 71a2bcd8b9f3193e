package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/attempt-service/internal/models"
)

// SaveOptions constrain a conditional attempt update.
type SaveOptions struct {
	// RequireOpenAssignment makes the save fail with ErrAssignmentClosed unless the
	// assignment is still open when the row is written.
	RequireOpenAssignment bool
}

type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.Attempt) error
	GetByID(ctx context.Context, id string) (*models.Attempt, error)
	FindInProgress(ctx context.Context, assignmentID, studentID string) (*models.Attempt, error)
	CountTerminal(ctx context.Context, assignmentID, studentID string) (int, error)
	// Save writes attempt if its Version still matches the stored row and bumps Version.
	Save(ctx context.Context, attempt *models.Attempt, opts SaveOptions) error
}

type attemptRepository struct {
	*PostgresRepository
}

func NewAttemptRepository(db *sql.DB, logger zerolog.Logger) AttemptRepository {
	return &attemptRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const attemptColumns = `
	id, assignment_id, student_id, group_id, owner_id, attempt_number, state, submission_state,
	started_at, submitted_at, is_late, timed_out, score, answers, version, created_at, updated_at
`

func (r *attemptRepository) Create(ctx context.Context, attempt *models.Attempt) error {
	answers, err := json.Marshal(attempt.Answers)
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}

	query := `
		INSERT INTO attempts (` + attemptColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err = r.db.ExecContext(ctx, query,
		attempt.ID,
		attempt.AssignmentID,
		attempt.StudentID,
		attempt.GroupID,
		attempt.OwnerID,
		attempt.AttemptNumber,
		attempt.State,
		attempt.SubmissionState,
		attempt.StartedAt,
		attempt.SubmittedAt,
		attempt.IsLate,
		attempt.TimedOut,
		attempt.Score,
		answers,
		attempt.Version,
		attempt.CreatedAt,
		attempt.UpdatedAt,
	)
	if isUniqueViolation(err) {
		r.logger.Debug().
			Str("assignment_id", attempt.AssignmentID).
			Str("student_id", attempt.StudentID).
			Int("attempt_number", attempt.AttemptNumber).
			Msg("Attempt insert rejected by unique constraint")
		return ErrDuplicateAttempt
	}

	return err
}

func (r *attemptRepository) GetByID(ctx context.Context, id string) (*models.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM attempts WHERE id = $1`

	attempt, err := scanAttempt(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return attempt, err
}

func (r *attemptRepository) FindInProgress(ctx context.Context, assignmentID, studentID string) (*models.Attempt, error) {
	query := `
		SELECT ` + attemptColumns + `
		FROM attempts
		WHERE assignment_id = $1 AND student_id = $2 AND state = $3
	`

	attempt, err := scanAttempt(r.db.QueryRowContext(ctx, query,
		assignmentID, studentID, models.AttemptStateInProgress))
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return attempt, err
}

func (r *attemptRepository) CountTerminal(ctx context.Context, assignmentID, studentID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM attempts
		WHERE assignment_id = $1 AND student_id = $2 AND state <> $3
	`

	var count int
	err := r.db.QueryRowContext(ctx, query,
		assignmentID, studentID, models.AttemptStateInProgress).Scan(&count)

	return count, err
}

func (r *attemptRepository) Save(ctx context.Context, attempt *models.Attempt, opts SaveOptions) error {
	answers, err := json.Marshal(attempt.Answers)
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}

	tx, err := r.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if opts.RequireOpenAssignment {
		// FOR SHARE makes a concurrent SetClosed wait for this transaction.
		var status models.AssignmentStatus
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM assignments WHERE id = $1 FOR SHARE`,
			attempt.AssignmentID,
		).Scan(&status)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock assignment: %w", err)
		}
		if status != models.AssignmentStatusOpen {
			return ErrAssignmentClosed
		}
	}

	query := `
		UPDATE attempts
		SET state = $1, submission_state = $2, submitted_at = $3, is_late = $4, timed_out = $5,
			score = $6, answers = $7, version = version + 1, updated_at = $8
		WHERE id = $9 AND version = $10
	`

	result, err := tx.ExecContext(ctx, query,
		attempt.State,
		attempt.SubmissionState,
		attempt.SubmittedAt,
		attempt.IsLate,
		attempt.TimedOut,
		attempt.Score,
		answers,
		attempt.UpdatedAt,
		attempt.ID,
		attempt.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update attempt: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		r.logger.Debug().
			Str("attempt_id", attempt.ID).
			Int("version", attempt.Version).
			Msg("Attempt version is stale")
		return ErrVersionConflict
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit attempt: %w", err)
	}

	attempt.Version++
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAttempt(row rowScanner) (*models.Attempt, error) {
	attempt := &models.Attempt{}
	var answers []byte

	err := row.Scan(
		&attempt.ID,
		&attempt.AssignmentID,
		&attempt.StudentID,
		&attempt.GroupID,
		&attempt.OwnerID,
		&attempt.AttemptNumber,
		&attempt.State,
		&attempt.SubmissionState,
		&attempt.StartedAt,
		&attempt.SubmittedAt,
		&attempt.IsLate,
		&attempt.TimedOut,
		&attempt.Score,
		&answers,
		&attempt.Version,
		&attempt.CreatedAt,
		&attempt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &attempt.Answers); err != nil {
			return nil, fmt.Errorf("failed to decode answers of attempt %s: %w", attempt.ID, err)
		}
	}

	return attempt, nil
}
