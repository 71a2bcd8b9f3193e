package service

import (
	"github.com/RubachokBoss/attempt-service/internal/models"
)

// ScoreQuiz awards maxPoints/len(questions) for every question whose answer equals its
// correct answer. Unanswered questions score zero. The first answer given for an index wins.
func ScoreQuiz(activity *models.Activity, responses []models.AnswerRecord, maxPoints float64) float64 {
	if activity == nil || len(activity.Questions) == 0 {
		return 0
	}

	answers := make(map[int]string, len(responses))
	for _, r := range responses {
		if _, seen := answers[r.QuestionIndex]; !seen {
			answers[r.QuestionIndex] = r.Answer
		}
	}

	perQuestion := maxPoints / float64(len(activity.Questions))
	var total float64
	for i, q := range activity.Questions {
		answer, ok := answers[i]
		if !ok || answer == "" {
			continue
		}
		if answer == q.CorrectAnswer {
			total += perQuestion
		}
	}

	return total
}

// quizMaxPoints falls back to one point per question when the assignment sets no maximum.
func quizMaxPoints(assignment *models.Assignment, activity *models.Activity) float64 {
	if assignment.MaxPoints != nil {
		return *assignment.MaxPoints
	}
	return float64(len(activity.Questions))
}
