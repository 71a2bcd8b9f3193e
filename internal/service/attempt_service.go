package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/attempt-service/internal/clock"
	"github.com/RubachokBoss/attempt-service/internal/models"
	"github.com/RubachokBoss/attempt-service/internal/repository"
)

// NotificationDispatcher hands a notification off without waiting for delivery.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, notification *models.Notification)
}

type AttemptService interface {
	Begin(ctx context.Context, assignmentID, studentID string) (*models.AttemptHandle, error)
	Submit(ctx context.Context, req *models.SubmitAttemptRequest) (*models.Attempt, error)
	Grade(ctx context.Context, attemptID, graderID string, score float64) (*models.Attempt, error)
}

type attemptService struct {
	attemptRepo    repository.AttemptRepository
	assignmentRepo repository.AssignmentRepository
	membershipRepo repository.MembershipRepository
	notifier       NotificationDispatcher
	clock          clock.Clock
	linkBaseURL    string
	logger         zerolog.Logger
}

func NewAttemptService(
	attemptRepo repository.AttemptRepository,
	assignmentRepo repository.AssignmentRepository,
	membershipRepo repository.MembershipRepository,
	notifier NotificationDispatcher,
	clk clock.Clock,
	linkBaseURL string,
	logger zerolog.Logger,
) AttemptService {
	return &attemptService{
		attemptRepo:    attemptRepo,
		assignmentRepo: assignmentRepo,
		membershipRepo: membershipRepo,
		notifier:       notifier,
		clock:          clk,
		linkBaseURL:    strings.TrimRight(linkBaseURL, "/"),
		logger:         logger,
	}
}

func (s *attemptService) Begin(ctx context.Context, assignmentID, studentID string) (*models.AttemptHandle, error) {
	assignment, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	if assignment.Status != models.AssignmentStatusOpen {
		return nil, fmt.Errorf("%w: status is %s", ErrAssignmentNotOpen, assignment.Status)
	}
	if !assignment.RequiresTimedFlow() {
		return nil, fmt.Errorf("%w: %s assignment without time limit is submitted directly",
			ErrActivityFlowMismatch, assignment.ActivityKind)
	}
	if err := s.checkMembership(ctx, studentID, assignment); err != nil {
		return nil, err
	}

	existing, err := s.attemptRepo.FindInProgress(ctx, assignmentID, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to find attempt in progress: %w", err)
	}
	if existing != nil {
		return newHandle(existing, assignment, true), nil
	}

	completed, err := s.countCompleted(ctx, assignment, studentID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	attempt := &models.Attempt{
		ID:              uuid.New().String(),
		AssignmentID:    assignment.ID,
		StudentID:       studentID,
		GroupID:         assignment.GroupID,
		OwnerID:         assignment.OwnerID,
		AttemptNumber:   completed + 1,
		State:           models.AttemptStateInProgress,
		SubmissionState: models.SubmissionStatePending,
		StartedAt:       now,
		Answers:         models.Answers{Kind: assignment.ActivityKind},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.attemptRepo.Create(ctx, attempt); err != nil {
		if !errors.Is(err, repository.ErrDuplicateAttempt) {
			return nil, fmt.Errorf("failed to create attempt: %w", err)
		}
		// A concurrent begin for the same student won the insert.
		winner, findErr := s.attemptRepo.FindInProgress(ctx, assignmentID, studentID)
		if findErr != nil {
			return nil, fmt.Errorf("failed to find attempt in progress: %w", findErr)
		}
		if winner == nil {
			return nil, fmt.Errorf("%w: attempt %d was recorded by a concurrent request",
				ErrAlreadyFinalized, attempt.AttemptNumber)
		}
		return newHandle(winner, assignment, true), nil
	}

	s.logger.Info().
		Str("attempt_id", attempt.ID).
		Str("assignment_id", assignment.ID).
		Str("student_id", studentID).
		Int("attempt_number", attempt.AttemptNumber).
		Msg("Attempt started")

	return newHandle(attempt, assignment, false), nil
}

func (s *attemptService) Submit(ctx context.Context, req *models.SubmitAttemptRequest) (*models.Attempt, error) {
	assignment, err := s.loadAssignment(ctx, req.AssignmentID)
	if err != nil {
		return nil, err
	}
	activity, err := s.loadActivity(ctx, assignment)
	if err != nil {
		return nil, err
	}
	if err := s.checkMembership(ctx, req.StudentID, assignment); err != nil {
		return nil, err
	}

	attempt, resumed, err := s.resolveAttempt(ctx, assignment, req)
	if err != nil {
		return nil, err
	}
	if attempt.State.IsTerminal() {
		// Closure auto-save for an attempt that is already final: acknowledge, change nothing.
		s.logger.Info().
			Str("attempt_id", attempt.ID).
			Str("state", attempt.State.String()).
			Msg("Auto-save on closure for finalized attempt ignored")
		return attempt, nil
	}

	// The assignment was read in this call, so a sweeper close since begin is visible here.
	forced := resumed && (assignment.Status == models.AssignmentStatusClosed || req.AutoSaveOnClosure)

	answers, err := buildAnswers(activity.Kind, req, forced)
	if err != nil {
		return nil, err
	}

	prior := *attempt
	now := s.clock.Now()
	s.finalize(attempt, assignment, activity, answers, forced, now)

	if !resumed {
		if err := s.attemptRepo.Create(ctx, attempt); err != nil {
			if errors.Is(err, repository.ErrDuplicateAttempt) {
				return nil, fmt.Errorf("%w: attempt %d was recorded by a concurrent request",
					ErrAlreadyFinalized, attempt.AttemptNumber)
			}
			return nil, fmt.Errorf("failed to create attempt: %w", err)
		}
	} else {
		err := s.attemptRepo.Save(ctx, attempt, repository.SaveOptions{RequireOpenAssignment: !forced})
		if errors.Is(err, repository.ErrAssignmentClosed) {
			s.logger.Warn().
				Str("attempt_id", attempt.ID).
				Str("assignment_id", assignment.ID).
				Msg("Assignment closed while submitting, saving attempt as auto-save on closure")

			*attempt = prior
			s.finalize(attempt, assignment, activity, answers, true, now)
			err = s.attemptRepo.Save(ctx, attempt, repository.SaveOptions{})
		}
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, fmt.Errorf("%w: attempt %s was submitted by a concurrent request", ErrAlreadyFinalized, attempt.ID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to save attempt: %w", err)
		}
	}

	s.logger.Info().
		Str("attempt_id", attempt.ID).
		Str("assignment_id", assignment.ID).
		Str("student_id", attempt.StudentID).
		Str("state", attempt.State.String()).
		Str("submission_state", attempt.SubmissionState.String()).
		Bool("is_late", attempt.IsLate).
		Msg("Attempt submitted")

	if attempt.State.NotifiesOwner() {
		s.notifyNewSubmission(ctx, assignment, attempt)
	}

	return attempt, nil
}

func (s *attemptService) Grade(ctx context.Context, attemptID, graderID string, score float64) (*models.Attempt, error) {
	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt == nil {
		return nil, ErrAttemptNotFound
	}

	isOwner, err := s.membershipRepo.IsOwner(ctx, graderID, attempt.AssignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check assignment owner: %w", err)
	}
	if !isOwner {
		return nil, ErrNotAssignmentOwner
	}

	assignment, err := s.loadAssignment(ctx, attempt.AssignmentID)
	if err != nil {
		return nil, err
	}
	if !attempt.State.IsTerminal() {
		return nil, ErrAttemptInProgress
	}
	if assignment.ActivityKind.AutoScored() {
		return nil, fmt.Errorf("%w: %s attempts are scored on submission", ErrActivityFlowMismatch, assignment.ActivityKind)
	}
	if score < 0 || (assignment.MaxPoints != nil && score > *assignment.MaxPoints) {
		return nil, fmt.Errorf("%w: %g is negative or above the maximum", ErrInvalidScore, score)
	}

	attempt.Score = &score
	attempt.SubmissionState = models.SubmissionStateGraded
	attempt.UpdatedAt = s.clock.Now()

	if err := s.attemptRepo.Save(ctx, attempt, repository.SaveOptions{}); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, ErrConcurrentModification
		}
		return nil, fmt.Errorf("failed to save grade: %w", err)
	}

	s.logger.Info().
		Str("attempt_id", attempt.ID).
		Str("grader_id", graderID).
		Float64("score", score).
		Msg("Attempt graded")

	return attempt, nil
}

// resolveAttempt returns the attempt a submission targets and whether it already existed.
func (s *attemptService) resolveAttempt(ctx context.Context, assignment *models.Assignment, req *models.SubmitAttemptRequest) (*models.Attempt, bool, error) {
	if req.AttemptID != "" {
		attempt, err := s.attemptRepo.GetByID(ctx, req.AttemptID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to get attempt: %w", err)
		}
		if attempt == nil {
			return nil, false, ErrAttemptNotFound
		}
		if attempt.AssignmentID != req.AssignmentID || attempt.StudentID != req.StudentID {
			return nil, false, ErrAttemptNotOwnedByCaller
		}
		if attempt.State.IsTerminal() && !req.AutoSaveOnClosure {
			return nil, false, fmt.Errorf("%w: attempt %d is %s", ErrAlreadyFinalized, attempt.AttemptNumber, attempt.State)
		}
		return attempt, true, nil
	}

	// Reusing the open attempt keeps attempt numbers unique.
	existing, err := s.attemptRepo.FindInProgress(ctx, assignment.ID, req.StudentID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to find attempt in progress: %w", err)
	}
	if existing != nil {
		return existing, true, nil
	}

	// Timed attempts start on begin; only untimed kinds create one on submit.
	if assignment.RequiresTimedFlow() {
		return nil, false, fmt.Errorf("%w: %s with a time limit must be started with begin",
			ErrActivityFlowMismatch, assignment.ActivityKind)
	}

	completed, err := s.countCompleted(ctx, assignment, req.StudentID)
	if err != nil {
		return nil, false, err
	}
	if assignment.Status != models.AssignmentStatusOpen {
		return nil, false, fmt.Errorf("%w: status is %s", ErrAssignmentNotOpen, assignment.Status)
	}

	now := s.clock.Now()
	return &models.Attempt{
		ID:              uuid.New().String(),
		AssignmentID:    assignment.ID,
		StudentID:       req.StudentID,
		GroupID:         assignment.GroupID,
		OwnerID:         assignment.OwnerID,
		AttemptNumber:   completed + 1,
		State:           models.AttemptStateInProgress,
		SubmissionState: models.SubmissionStatePending,
		StartedAt:       now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, false, nil
}

// finalize moves an in-progress attempt to its terminal state.
func (s *attemptService) finalize(attempt *models.Attempt, assignment *models.Assignment, activity *models.Activity, answers models.Answers, forced bool, now time.Time) {
	timedOut := !forced &&
		assignment.RequiresTimedFlow() &&
		now.After(attempt.StartedAt.Add(assignment.TimeLimit()))

	switch {
	case forced:
		attempt.State = models.AttemptStateAutoSavedOnClosure
	case timedOut:
		attempt.State = models.AttemptStateCompletedByTimeout
	default:
		attempt.State = models.AttemptStateCompletedByUser
	}

	submittedAt := now
	attempt.SubmittedAt = &submittedAt
	attempt.TimedOut = timedOut
	attempt.IsLate = assignment.IsPastDeadline(now)
	attempt.Answers = answers
	attempt.UpdatedAt = now

	if forced {
		// A partial auto-save is not gradeable on its own; an existing grade survives.
		if attempt.SubmissionState != models.SubmissionStateGraded {
			attempt.Score = nil
			attempt.SubmissionState = models.SubmissionStatePending
		}
		return
	}

	switch activity.Kind {
	case models.ActivityKindQuiz:
		score := ScoreQuiz(activity, answers.Responses, quizMaxPoints(assignment, activity))
		attempt.Score = &score
		attempt.SubmissionState = models.SubmissionStateGraded
	case models.ActivityKindOpenQuestionnaire, models.ActivityKindFreeformSubmission:
		attempt.Score = nil
		attempt.SubmissionState = models.SubmissionStateSubmitted
	}
}

func buildAnswers(kind models.ActivityKind, req *models.SubmitAttemptRequest, autoSave bool) (models.Answers, error) {
	answers := models.Answers{Kind: kind}

	switch kind {
	case models.ActivityKindQuiz, models.ActivityKindOpenQuestionnaire:
		if len(req.Responses) == 0 && !autoSave {
			return answers, fmt.Errorf("%w: answers are required for %s", ErrMissingRequiredPayload, kind)
		}
		answers.Responses = append([]models.AnswerRecord(nil), req.Responses...)
	case models.ActivityKindFreeformSubmission:
		link := strings.TrimSpace(req.WorkLink)
		if link == "" && !autoSave {
			return answers, fmt.Errorf("%w: work link is required", ErrMissingRequiredPayload)
		}
		answers.WorkLink = link
	default:
		return answers, fmt.Errorf("%w: unknown activity kind %q", ErrActivityNotResolvable, kind)
	}

	return answers, nil
}

func (s *attemptService) loadAssignment(ctx context.Context, assignmentID string) (*models.Assignment, error) {
	assignment, err := s.assignmentRepo.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	if assignment == nil {
		return nil, ErrAssignmentNotFound
	}

	if _, err := models.ParseActivityKind(assignment.ActivityKind.String()); err != nil {
		s.logger.Error().
			Str("assignment_id", assignment.ID).
			Str("activity_id", assignment.ActivityID).
			Msg("Assignment references an unresolvable activity")
		return nil, fmt.Errorf("%w: assignment %s", ErrActivityNotResolvable, assignment.ID)
	}
	if assignment.OwnerID == "" {
		s.logger.Error().
			Str("assignment_id", assignment.ID).
			Msg("Assignment has no grading owner")
		return nil, fmt.Errorf("%w: assignment %s", ErrOwnerResolutionFailure, assignment.ID)
	}

	return assignment, nil
}

func (s *attemptService) loadActivity(ctx context.Context, assignment *models.Assignment) (*models.Activity, error) {
	activity, err := s.assignmentRepo.GetActivity(ctx, assignment.ActivityID)
	if err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	if activity == nil {
		s.logger.Error().
			Str("assignment_id", assignment.ID).
			Str("activity_id", assignment.ActivityID).
			Msg("Activity of assignment not found")
		return nil, fmt.Errorf("%w: activity %s", ErrActivityNotResolvable, assignment.ActivityID)
	}

	return activity, nil
}

func (s *attemptService) checkMembership(ctx context.Context, studentID string, assignment *models.Assignment) error {
	approved, err := s.membershipRepo.IsApprovedMember(ctx, studentID, assignment.GroupID)
	if err != nil {
		return fmt.Errorf("failed to check group membership: %w", err)
	}
	if !approved {
		return ErrNotApprovedMember
	}
	return nil
}

// countCompleted returns the terminal attempt count, failing once the ceiling is reached.
func (s *attemptService) countCompleted(ctx context.Context, assignment *models.Assignment, studentID string) (int, error) {
	completed, err := s.attemptRepo.CountTerminal(ctx, assignment.ID, studentID)
	if err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	if assignment.AttemptsExhausted(completed) {
		return 0, fmt.Errorf("%w: %d of %d attempts used", ErrAttemptsExhausted, completed, *assignment.AttemptsAllowed)
	}
	return completed, nil
}

func (s *attemptService) notifyNewSubmission(ctx context.Context, assignment *models.Assignment, attempt *models.Attempt) {
	studentID := attempt.StudentID
	s.notifier.Dispatch(ctx, &models.Notification{
		Kind:        models.NotificationKindNewSubmission,
		RecipientID: assignment.OwnerID,
		SenderID:    &studentID,
		Message:     fmt.Sprintf("New submission for %q (attempt %d)", assignment.Title, attempt.AttemptNumber),
		Link:        fmt.Sprintf("%s/assignments/%s/attempts/%s", s.linkBaseURL, assignment.ID, attempt.ID),
		CreatedAt:   s.clock.Now(),
	})
}

func newHandle(attempt *models.Attempt, assignment *models.Assignment, resumed bool) *models.AttemptHandle {
	handle := &models.AttemptHandle{
		Attempt:          attempt,
		TimeLimitMinutes: assignment.TimeLimitMinutes,
		Resumed:          resumed,
	}
	if assignment.TimeLimitMinutes != nil {
		expiresAt := attempt.StartedAt.Add(assignment.TimeLimit())
		handle.ExpiresAt = &expiresAt
	}
	return handle
}
