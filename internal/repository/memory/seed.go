package memory

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/RubachokBoss/attempt-service/internal/models"
)

type Seed struct {
	Activities  []SeedActivity   `mapstructure:"activities"`
	Assignments []SeedAssignment `mapstructure:"assignments"`
	Members     []SeedMember     `mapstructure:"members"`
}

type SeedQuestion struct {
	Prompt        string   `mapstructure:"prompt"`
	Options       []string `mapstructure:"options"`
	CorrectAnswer string   `mapstructure:"correct_answer"`
}

type SeedActivity struct {
	ID        string         `mapstructure:"id"`
	Kind      string         `mapstructure:"kind"`
	Title     string         `mapstructure:"title"`
	Questions []SeedQuestion `mapstructure:"questions"`
}

type SeedAssignment struct {
	ID               string     `mapstructure:"id"`
	ActivityID       string     `mapstructure:"activity_id"`
	GroupID          string     `mapstructure:"group_id"`
	OwnerID          string     `mapstructure:"owner_id"`
	Title            string     `mapstructure:"title"`
	Status           string     `mapstructure:"status"`
	WindowStart      *time.Time `mapstructure:"window_start"`
	WindowEnd        *time.Time `mapstructure:"window_end"`
	AttemptsAllowed  *int       `mapstructure:"attempts_allowed"`
	TimeLimitMinutes *int       `mapstructure:"time_limit_minutes"`
	MaxPoints        *float64   `mapstructure:"max_points"`
}

type SeedMember struct {
	GroupID  string `mapstructure:"group_id"`
	UserID   string `mapstructure:"user_id"`
	Approved bool   `mapstructure:"approved"`
}

// ReadSeed reads a YAML or JSON seed file; the format follows the file extension.
func ReadSeed(path string) (*Seed, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed Seed
	err := v.Unmarshal(&seed, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeHookFunc(time.RFC3339),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode seed file: %w", err)
	}

	return &seed, nil
}

// Apply validates the whole seed before storing any of it.
func (s *Seed) Apply(db *DB, now time.Time) error {
	activities := make([]models.Activity, 0, len(s.Activities))
	for _, a := range s.Activities {
		if a.ID == "" {
			return fmt.Errorf("seed activity without id")
		}
		kind, err := models.ParseActivityKind(a.Kind)
		if err != nil {
			return fmt.Errorf("seed activity %s: %w", a.ID, err)
		}

		activity := models.Activity{ID: a.ID, Kind: kind, Title: a.Title}
		for _, q := range a.Questions {
			activity.Questions = append(activity.Questions, models.Question{
				Prompt:        q.Prompt,
				Options:       q.Options,
				CorrectAnswer: q.CorrectAnswer,
			})
		}
		activities = append(activities, activity)
	}

	assignments := make([]models.Assignment, 0, len(s.Assignments))
	for _, a := range s.Assignments {
		if a.ID == "" || a.ActivityID == "" || a.GroupID == "" {
			return fmt.Errorf("seed assignment %q needs id, activity_id and group_id", a.ID)
		}

		status := models.AssignmentStatus(a.Status)
		switch status {
		case models.AssignmentStatusDraft, models.AssignmentStatusOpen, models.AssignmentStatusClosed:
		case "":
			status = models.AssignmentStatusDraft
		default:
			return fmt.Errorf("seed assignment %s: unknown status %q", a.ID, a.Status)
		}

		assignments = append(assignments, models.Assignment{
			ID:               a.ID,
			ActivityID:       a.ActivityID,
			GroupID:          a.GroupID,
			OwnerID:          a.OwnerID,
			Title:            a.Title,
			Status:           status,
			WindowStart:      a.WindowStart,
			WindowEnd:        a.WindowEnd,
			AttemptsAllowed:  a.AttemptsAllowed,
			TimeLimitMinutes: a.TimeLimitMinutes,
			MaxPoints:        a.MaxPoints,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}

	for _, m := range s.Members {
		if m.GroupID == "" || m.UserID == "" {
			return fmt.Errorf("seed member needs group_id and user_id")
		}
	}

	for _, activity := range activities {
		db.PutActivity(activity)
	}
	for _, assignment := range assignments {
		db.PutAssignment(assignment)
	}
	for _, m := range s.Members {
		db.AddMember(m.GroupID, m.UserID, m.Approved)
	}

	return nil
}
