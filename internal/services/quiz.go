package services

import (
	"fmt"

	"studycoach-backend/internal/models"
)

// ScoreQuiz counts the answers matching the correct option of each question.
func ScoreQuiz(quiz *models.Quiz, answers []int) (int, error) {
	if len(answers) != len(quiz.Questions) {
		return 0, &ValidationError{Fields: map[string]string{
			"quiz_answers": fmt.Sprintf("Expected %d answers, got %d", len(quiz.Questions), len(answers)),
		}}
	}

	score := 0
	for i, q := range quiz.Questions {
		a := answers[i]
		if a < 0 || a >= len(q.Options) {
			return 0, &ValidationError{Fields: map[string]string{
				"quiz_answers": fmt.Sprintf("Answer %d is out of range", i),
			}}
		}
		if a == q.CorrectAnswer {
			score++
		}
	}
	return score, nil
}

// ScoreMessage is the encouragement shown next to a quiz score out of 5.
func ScoreMessage(score int) string {
	switch {
	case score == 5:
		return "Perfect! 🎉"
	case score >= 4:
		return "Great job! 🌟"
	case score >= 3:
		return "Good effort! 👍"
	case score >= 2:
		return "Keep learning! 📚"
	default:
		return "Review the topic! 💪"
	}
}
