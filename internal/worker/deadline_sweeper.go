package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/attempt-service/internal/clock"
	"github.com/RubachokBoss/attempt-service/internal/models"
	"github.com/RubachokBoss/attempt-service/internal/repository"
	"github.com/RubachokBoss/attempt-service/internal/service/integration"
)

const DefaultSweepInterval = time.Minute

// DeadlineSweeper closes open assignments whose window has ended. Attempts still in
// progress are left alone; their next submit sees the closed status.
type DeadlineSweeper struct {
	assignmentRepo repository.AssignmentRepository
	notifier       integration.Notifier
	clock          clock.Clock
	interval       time.Duration
	linkBaseURL    string
	logger         zerolog.Logger
}

func NewDeadlineSweeper(
	assignmentRepo repository.AssignmentRepository,
	notifier integration.Notifier,
	clk clock.Clock,
	interval time.Duration,
	linkBaseURL string,
	logger zerolog.Logger,
) *DeadlineSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &DeadlineSweeper{
		assignmentRepo: assignmentRepo,
		notifier:       notifier,
		clock:          clk,
		interval:       interval,
		linkBaseURL:    strings.TrimRight(linkBaseURL, "/"),
		logger:         logger,
	}
}

// Run ticks once immediately and then every interval until ctx is cancelled.
func (s *DeadlineSweeper) Run(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("Deadline sweeper started")

	s.Tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Deadline sweeper stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick closes every expired open assignment and returns how many it closed.
func (s *DeadlineSweeper) Tick(ctx context.Context) int {
	now := s.clock.Now()

	candidates, err := s.assignmentRepo.ListExpiredOpen(ctx, now)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list expired assignments")
		return 0
	}
	if len(candidates) == 0 {
		return 0
	}

	s.logger.Info().Int("candidates", len(candidates)).Msg("Closing expired assignments")

	closed := 0
	for i := range candidates {
		ok, err := s.close(ctx, &candidates[i], now)
		if err != nil {
			s.logger.Error().
				Err(err).
				Str("assignment_id", candidates[i].ID).
				Msg("Failed to close expired assignment")
		}
		if ok {
			closed++
		}
	}

	return closed
}

// close reports whether the assignment was closed by this call. A notification failure
// after a successful close is returned as an error but still counts as closed.
func (s *DeadlineSweeper) close(ctx context.Context, assignment *models.Assignment, now time.Time) (bool, error) {
	if err := s.assignmentRepo.SetClosed(ctx, assignment.ID, now); err != nil {
		if errors.Is(err, repository.ErrNotOpen) {
			// Closed or reopened by someone else since the listing.
			return false, nil
		}
		return false, fmt.Errorf("failed to close assignment: %w", err)
	}

	s.logger.Info().
		Str("assignment_id", assignment.ID).
		Str("owner_id", assignment.OwnerID).
		Msg("Assignment closed after deadline")

	err := s.notifier.Emit(ctx, &models.Notification{
		Kind:        models.NotificationKindAssignmentClosed,
		RecipientID: assignment.OwnerID,
		Message:     fmt.Sprintf("Assignment %q closed after its deadline", assignment.Title),
		Link:        fmt.Sprintf("%s/assignments/%s", s.linkBaseURL, assignment.ID),
		CreatedAt:   now,
	})
	if err != nil {
		return true, fmt.Errorf("failed to notify owner: %w", err)
	}

	return true, nil
}
