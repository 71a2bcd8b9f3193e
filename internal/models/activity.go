package models

import "fmt"

type ActivityKind string

const (
	ActivityKindQuiz               ActivityKind = "quiz"
	ActivityKindOpenQuestionnaire  ActivityKind = "open_questionnaire"
	ActivityKindFreeformSubmission ActivityKind = "freeform_submission"
)

func (k ActivityKind) String() string {
	return string(k)
}

func ParseActivityKind(s string) (ActivityKind, error) {
	switch k := ActivityKind(s); k {
	case ActivityKindQuiz, ActivityKindOpenQuestionnaire, ActivityKindFreeformSubmission:
		return k, nil
	default:
		return "", fmt.Errorf("unknown activity kind %q", s)
	}
}

// SupportsTimeLimit reports whether attempts of this kind run on the begin/submit flow.
func (k ActivityKind) SupportsTimeLimit() bool {
	switch k {
	case ActivityKindQuiz, ActivityKindOpenQuestionnaire:
		return true
	case ActivityKindFreeformSubmission:
		return false
	default:
		return false
	}
}

// AutoScored reports whether submissions of this kind are graded on submit.
func (k ActivityKind) AutoScored() bool {
	switch k {
	case ActivityKindQuiz:
		return true
	case ActivityKindOpenQuestionnaire, ActivityKindFreeformSubmission:
		return false
	default:
		return false
	}
}

type Question struct {
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
}

type Activity struct {
	ID        string       `json:"id" db:"id"`
	Kind      ActivityKind `json:"kind" db:"kind"`
	Title     string       `json:"title" db:"title"`
	Questions []Question   `json:"questions" db:"questions"`
}

type AnswerRecord struct {
	QuestionIndex int    `json:"question_index"`
	Answer        string `json:"answer"`
}

// Answers is the stored payload of an attempt. Which fields are set depends on Kind.
type Answers struct {
	Kind      ActivityKind   `json:"kind"`
	Responses []AnswerRecord `json:"responses,omitempty"`
	WorkLink  string         `json:"work_link,omitempty"`
}
