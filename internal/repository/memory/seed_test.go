package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RubachokBoss/attempt-service/internal/models"
)

var seededAt = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func writeSeed(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSeed_YAML(t *testing.T) {
	path := writeSeed(t, "seed.yaml", `
activities:
  - id: act-1
    kind: quiz
    title: Warm-up
    questions:
      - prompt: "2+2"
        options: ["3", "4"]
        correct_answer: "4"
assignments:
  - id: asg-1
    activity_id: act-1
    group_id: grp-1
    owner_id: teacher-1
    title: Quiz
    status: open
    window_end: "2026-02-01T18:00:00Z"
    time_limit_minutes: 15
    max_points: 20
  - id: asg-2
    activity_id: act-1
    group_id: grp-1
    owner_id: teacher-1
members:
  - group_id: grp-1
    user_id: student-1
    approved: true
  - group_id: grp-1
    user_id: student-2
`)

	seed, err := ReadSeed(path)
	require.NoError(t, err)

	db := NewDB()
	require.NoError(t, seed.Apply(db, seededAt))
	ctx := context.Background()

	assignments := NewAssignmentRepository(db)
	assignment, err := assignments.GetByID(ctx, "asg-1")
	require.NoError(t, err)
	require.NotNil(t, assignment)
	assert.Equal(t, models.ActivityKindQuiz, assignment.ActivityKind)
	assert.Equal(t, models.AssignmentStatusOpen, assignment.Status)
	assert.True(t, assignment.RequiresTimedFlow())
	assert.Nil(t, assignment.AttemptsAllowed, "no limit when attempts_allowed is omitted")
	require.NotNil(t, assignment.WindowEnd)
	assert.True(t, assignment.WindowEnd.Equal(time.Date(2026, 2, 1, 18, 0, 0, 0, time.UTC)))
	require.NotNil(t, assignment.MaxPoints)
	assert.Equal(t, 20.0, *assignment.MaxPoints)
	assert.Equal(t, seededAt, assignment.CreatedAt)

	draft, err := assignments.GetByID(ctx, "asg-2")
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusDraft, draft.Status)

	activity, err := assignments.GetActivity(ctx, "act-1")
	require.NoError(t, err)
	require.Len(t, activity.Questions, 1)
	assert.Equal(t, "4", activity.Questions[0].CorrectAnswer)
	assert.Equal(t, []string{"3", "4"}, activity.Questions[0].Options)

	memberships := NewMembershipRepository(db)
	approved, err := memberships.IsApprovedMember(ctx, "student-1", "grp-1")
	require.NoError(t, err)
	assert.True(t, approved)

	pending, err := memberships.IsApprovedMember(ctx, "student-2", "grp-1")
	require.NoError(t, err)
	assert.False(t, pending)

	owner, err := memberships.IsOwner(ctx, "teacher-1", "asg-1")
	require.NoError(t, err)
	assert.True(t, owner)
}

func TestSeed_JSON(t *testing.T) {
	path := writeSeed(t, "seed.json", `{
		"activities": [{"id": "act-1", "kind": "freeform_submission", "title": "Essay"}],
		"assignments": [{"id": "asg-1", "activity_id": "act-1", "group_id": "grp-1", "owner_id": "t", "status": "open", "attempts_allowed": 3}]
	}`)

	seed, err := ReadSeed(path)
	require.NoError(t, err)

	db := NewDB()
	require.NoError(t, seed.Apply(db, seededAt))

	assignment, err := NewAssignmentRepository(db).GetByID(context.Background(), "asg-1")
	require.NoError(t, err)
	require.NotNil(t, assignment.AttemptsAllowed)
	assert.Equal(t, 3, *assignment.AttemptsAllowed)
	assert.Equal(t, models.ActivityKindFreeformSubmission, assignment.ActivityKind)
}

func TestSeed_RejectsInvalidEntriesWithoutWriting(t *testing.T) {
	tests := []struct {
		name string
		seed Seed
	}{
		{
			name: "unknown activity kind",
			seed: Seed{Activities: []SeedActivity{{ID: "act-1", Kind: "essay"}}},
		},
		{
			name: "activity without id",
			seed: Seed{Activities: []SeedActivity{{Kind: "quiz"}}},
		},
		{
			name: "unknown assignment status",
			seed: Seed{
				Activities:  []SeedActivity{{ID: "act-1", Kind: "quiz"}},
				Assignments: []SeedAssignment{{ID: "asg-1", ActivityID: "act-1", GroupID: "grp-1", Status: "archived"}},
			},
		},
		{
			name: "assignment without group",
			seed: Seed{Assignments: []SeedAssignment{{ID: "asg-1", ActivityID: "act-1"}}},
		},
		{
			name: "member without user",
			seed: Seed{
				Activities: []SeedActivity{{ID: "act-1", Kind: "quiz"}},
				Members:    []SeedMember{{GroupID: "grp-1"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := NewDB()
			assert.Error(t, tt.seed.Apply(db, seededAt))

			activity, err := NewAssignmentRepository(db).GetActivity(context.Background(), "act-1")
			require.NoError(t, err)
			assert.Nil(t, activity)
		})
	}
}

func TestReadSeed_MissingFile(t *testing.T) {
	_, err := ReadSeed(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestSeed_DevelopmentFile(t *testing.T) {
	seed, err := ReadSeed(filepath.FromSlash("../../../config/seed.yaml"))
	require.NoError(t, err)

	db := NewDB()
	require.NoError(t, seed.Apply(db, seededAt))
	assert.Len(t, seed.Activities, 3)
	assert.Len(t, seed.Assignments, 3)
	assert.Len(t, seed.Members, 2)
}
