package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RubachokBoss/attempt-service/internal/clock"
	"github.com/RubachokBoss/attempt-service/internal/models"
	"github.com/RubachokBoss/attempt-service/internal/repository"
	"github.com/RubachokBoss/attempt-service/internal/repository/memory"
)

var now = time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu            sync.Mutex
	notifications []*models.Notification
	failFor       map[string]bool
}

func (n *recordingNotifier) Emit(_ context.Context, notification *models.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFor[notification.RecipientID] {
		return errors.New("broker unavailable")
	}
	n.notifications = append(n.notifications, notification)
	return nil
}

func (n *recordingNotifier) Close() error {
	return nil
}

func (n *recordingNotifier) sent() []*models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*models.Notification(nil), n.notifications...)
}

type failingCloseRepository struct {
	repository.AssignmentRepository
	failFor string
}

func (r *failingCloseRepository) SetClosed(ctx context.Context, id string, at time.Time) error {
	if id == r.failFor {
		return errors.New("connection reset")
	}
	return r.AssignmentRepository.SetClosed(ctx, id, at)
}

func putAssignment(db *memory.DB, id, owner string, status models.AssignmentStatus, end *time.Time) {
	db.PutActivity(models.Activity{ID: "activity-" + id, Kind: models.ActivityKindFreeformSubmission})
	db.PutAssignment(models.Assignment{
		ID:         id,
		ActivityID: "activity-" + id,
		GroupID:    "group-1",
		OwnerID:    owner,
		Title:      "Essay " + id,
		Status:     status,
		WindowEnd:  end,
	})
}

func at(t time.Time) *time.Time {
	return &t
}

func newSweeper(repo repository.AssignmentRepository, notifier *recordingNotifier) *DeadlineSweeper {
	return NewDeadlineSweeper(repo, notifier, clock.NewFixed(now), time.Minute, "https://school.example", zerolog.Nop())
}

func TestDeadlineSweeper_ClosesExpiredAssignment(t *testing.T) {
	db := memory.NewDB()
	repo := memory.NewAssignmentRepository(db)
	putAssignment(db, "expired", "teacher-1", models.AssignmentStatusOpen, at(now.Add(-2*time.Minute)))

	notifier := &recordingNotifier{}
	closed := newSweeper(repo, notifier).Tick(context.Background())
	assert.Equal(t, 1, closed)

	assignment, err := repo.GetByID(context.Background(), "expired")
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusClosed, assignment.Status)
	assert.Equal(t, now, assignment.UpdatedAt)

	sent := notifier.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, models.NotificationKindAssignmentClosed, sent[0].Kind)
	assert.Equal(t, "teacher-1", sent[0].RecipientID)
	assert.Nil(t, sent[0].SenderID)
	assert.Equal(t, "https://school.example/assignments/expired", sent[0].Link)
}

func TestDeadlineSweeper_SkipsAssignmentsNotDue(t *testing.T) {
	db := memory.NewDB()
	repo := memory.NewAssignmentRepository(db)
	putAssignment(db, "future", "teacher-1", models.AssignmentStatusOpen, at(now.Add(time.Minute)))
	putAssignment(db, "no-deadline", "teacher-1", models.AssignmentStatusOpen, nil)
	putAssignment(db, "draft", "teacher-1", models.AssignmentStatusDraft, at(now.Add(-time.Hour)))
	putAssignment(db, "closed", "teacher-1", models.AssignmentStatusClosed, at(now.Add(-time.Hour)))
	putAssignment(db, "due-now", "teacher-2", models.AssignmentStatusOpen, at(now))

	notifier := &recordingNotifier{}
	assert.Equal(t, 1, newSweeper(repo, notifier).Tick(context.Background()))

	sent := notifier.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "teacher-2", sent[0].RecipientID)

	for id, want := range map[string]models.AssignmentStatus{
		"future":      models.AssignmentStatusOpen,
		"no-deadline": models.AssignmentStatusOpen,
		"draft":       models.AssignmentStatusDraft,
		"closed":      models.AssignmentStatusClosed,
		"due-now":     models.AssignmentStatusClosed,
	} {
		assignment, err := repo.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, want, assignment.Status, id)
	}
}

func TestDeadlineSweeper_SecondTickIsNoop(t *testing.T) {
	db := memory.NewDB()
	repo := memory.NewAssignmentRepository(db)
	putAssignment(db, "expired", "teacher-1", models.AssignmentStatusOpen, at(now.Add(-time.Minute)))

	notifier := &recordingNotifier{}
	sweeper := newSweeper(repo, notifier)

	assert.Equal(t, 1, sweeper.Tick(context.Background()))
	assert.Equal(t, 0, sweeper.Tick(context.Background()))
	assert.Len(t, notifier.sent(), 1)
}

func TestDeadlineSweeper_IsolatesFailures(t *testing.T) {
	db := memory.NewDB()
	putAssignment(db, "a", "teacher-a", models.AssignmentStatusOpen, at(now.Add(-3*time.Minute)))
	putAssignment(db, "b", "teacher-b", models.AssignmentStatusOpen, at(now.Add(-2*time.Minute)))
	putAssignment(db, "c", "teacher-c", models.AssignmentStatusOpen, at(now.Add(-1*time.Minute)))

	repo := &failingCloseRepository{
		AssignmentRepository: memory.NewAssignmentRepository(db),
		failFor:              "a",
	}
	notifier := &recordingNotifier{failFor: map[string]bool{"teacher-b": true}}

	closed := newSweeper(repo, notifier).Tick(context.Background())
	assert.Equal(t, 2, closed)

	sent := notifier.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "teacher-c", sent[0].RecipientID)

	a, err := repo.GetByID(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusOpen, a.Status)

	// The failed candidate is retried on the next tick.
	repo.failFor = ""
	assert.Equal(t, 1, newSweeper(repo, notifier).Tick(context.Background()))
}

// staleListRepository keeps listing an assignment that another actor already closed.
type staleListRepository struct {
	repository.AssignmentRepository
	stale []models.Assignment
}

func (r *staleListRepository) ListExpiredOpen(context.Context, time.Time) ([]models.Assignment, error) {
	return r.stale, nil
}

func TestDeadlineSweeper_SkipsAlreadyClosed(t *testing.T) {
	db := memory.NewDB()
	putAssignment(db, "raced", "teacher-1", models.AssignmentStatusClosed, at(now.Add(-time.Minute)))

	repo := &staleListRepository{
		AssignmentRepository: memory.NewAssignmentRepository(db),
		stale:                []models.Assignment{{ID: "raced", OwnerID: "teacher-1", Status: models.AssignmentStatusOpen}},
	}
	notifier := &recordingNotifier{}

	assert.Equal(t, 0, newSweeper(repo, notifier).Tick(context.Background()))
	assert.Empty(t, notifier.sent())
}

func TestDeadlineSweeper_RunStopsOnCancel(t *testing.T) {
	db := memory.NewDB()
	repo := memory.NewAssignmentRepository(db)
	putAssignment(db, "expired", "teacher-1", models.AssignmentStatusOpen, at(now.Add(-time.Minute)))

	notifier := &recordingNotifier{}
	sweeper := NewDeadlineSweeper(repo, notifier, clock.NewFixed(now), time.Hour, "", zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	// Run ticks once on start.
	assert.Eventually(t, func() bool { return len(notifier.sent()) == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestNewDeadlineSweeper_DefaultInterval(t *testing.T) {
	sweeper := NewDeadlineSweeper(nil, nil, clock.Real{}, 0, "", zerolog.Nop())
	assert.Equal(t, DefaultSweepInterval, sweeper.interval)
}
