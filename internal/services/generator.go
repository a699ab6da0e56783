package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"studycoach-backend/internal/logger"
	"studycoach-backend/internal/models"
)

const (
	planTaskCount     = 5
	quizQuestionCount = 5
	quizOptionCount   = 4

	rateSlotTimeout = 2 * time.Minute
)

var taskTypes = []string{models.TaskRead, models.TaskWatch, models.TaskPractice, models.TaskRecall, models.TaskInterview}

// llmClient sends one prompt to a model and returns its raw text answer.
type llmClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Generator turns wizard input into a validated task plan or quiz.
// Output that fails shape checks is rejected before it reaches the caller.
type Generator struct {
	llm      llmClient
	rateChan chan struct{} // Token bucket
	log      *logger.Logger
}

func NewGenerator(llm llmClient, concurrentReqs int, log *logger.Logger) *Generator {
	if concurrentReqs < 1 {
		concurrentReqs = 1
	}
	if log == nil {
		log = logger.Nop()
	}

	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &Generator{llm: llm, rateChan: rateChan, log: log}
}

// acquireRate blocks until a rate slot is available
func (g *Generator) acquireRate(ctx context.Context) error {
	select {
	case <-g.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(rateSlotTimeout):
		return &RateLimitError{Message: "Too many generation requests in progress, please retry shortly"}
	}
}

func (g *Generator) releaseRate() {
	g.rateChan <- struct{}{}
}

func (g *Generator) GenerateTasks(ctx context.Context, req models.StudyRequest) (*models.TaskPlan, error) {
	req.Topic = strings.TrimSpace(req.Topic)
	if err := validateStudyRequest(req); err != nil {
		return nil, err
	}

	g.log.Info("generating study tasks", "subject", req.Subject, "topic", req.Topic, "duration", req.Duration)

	raw, err := g.complete(ctx, buildStudyPrompt(req))
	if err != nil {
		return nil, err
	}

	plan, err := parseTaskPlan(raw)
	if err != nil {
		g.log.Warn("task generation rejected", "subject", req.Subject, "topic", req.Topic, "error", err)
		return nil, err
	}
	return plan, nil
}

func (g *Generator) GenerateQuiz(ctx context.Context, subject, topic string) (*models.Quiz, error) {
	subject = strings.TrimSpace(subject)
	topic = strings.TrimSpace(topic)

	fields := make(map[string]string)
	if subject == "" {
		fields["subject"] = "Subject is required"
	}
	if topic == "" {
		fields["topic"] = "Topic is required"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	raw, err := g.complete(ctx, buildQuizPrompt(subject, topic))
	if err != nil {
		return nil, err
	}

	quiz, err := parseQuiz(raw)
	if err != nil {
		g.log.Warn("quiz generation rejected", "subject", subject, "topic", topic, "error", err)
		return nil, err
	}
	return quiz, nil
}

func (g *Generator) complete(ctx context.Context, prompt string) (string, error) {
	if err := g.acquireRate(ctx); err != nil {
		return "", err
	}
	defer g.releaseRate()

	text, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		var upstream *UpstreamError
		if errors.As(err, &upstream) {
			return "", err
		}
		return "", &UpstreamError{Err: err}
	}
	return text, nil
}

func validateStudyRequest(req models.StudyRequest) error {
	fields := make(map[string]string)

	if !isSubject(req.Subject) {
		fields["subject"] = "Subject must be one of DBMS, OS, CN, DSA, OOP, Math"
	}
	if req.Topic == "" {
		fields["topic"] = "Topic is required"
	}
	if !contains(goals, req.Goal) {
		fields["goal"] = "Goal must be one of " + strings.Join(goals, ", ")
	}
	if !contains(durations, req.Duration) {
		fields["duration"] = "Duration must be 60, 90 or 120 minutes"
	}
	if !contains(levels, req.Level) {
		fields["level"] = "Level must be one of " + strings.Join(levels, ", ")
	}
	if !contains(learningStyles, req.LearningStyle) {
		fields["learning_style"] = "Learning style must be one of " + strings.Join(learningStyles, ", ")
	}
	if !contains(experiences, req.Experience) {
		fields["experience"] = "Experience must be one of " + strings.Join(experiences, ", ")
	}
	if !contains(resources, req.PreferredResource) {
		fields["preferred_resource"] = "Preferred resource must be one of " + strings.Join(resources, ", ")
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func parseTaskPlan(raw string) (*models.TaskPlan, error) {
	var payload struct {
		Error            string        `json:"error"`
		Message          string        `json:"message"`
		SuggestedSubject string        `json:"suggestedSubject"`
		Tasks            []models.Task `json:"tasks"`
	}
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &payload); err != nil {
		return nil, &GenerationError{Message: "AI response was not valid JSON"}
	}

	if payload.Error != "" {
		if strings.EqualFold(payload.Error, "Topic mismatch") {
			msg := payload.Message
			if msg == "" {
				msg = "The topic does not belong to the selected subject"
			}
			return nil, &TopicMismatchError{Message: msg, SuggestedSubject: payload.SuggestedSubject}
		}
		return nil, &GenerationError{Message: payload.Error}
	}

	if len(payload.Tasks) != planTaskCount {
		return nil, &GenerationError{Message: "AI did not generate valid tasks. Please try again or choose a different topic."}
	}

	tasks := make([]models.Task, len(payload.Tasks))
	for i, t := range payload.Tasks {
		t.Type = strings.ToLower(strings.TrimSpace(t.Type))
		t.Task = strings.TrimSpace(t.Task)
		if !contains(taskTypes, t.Type) || t.Task == "" || t.Time <= 0 {
			return nil, &GenerationError{Message: fmt.Sprintf("Invalid task format at index %d", i)}
		}
		if t.Order == 0 {
			t.Order = i + 1
		}
		tasks[i] = t
	}
	return &models.TaskPlan{Tasks: tasks}, nil
}

func parseQuiz(raw string) (*models.Quiz, error) {
	var payload struct {
		Questions []struct {
			Question      string   `json:"question"`
			Options       []string `json:"options"`
			CorrectAnswer *int     `json:"correctAnswer"`
		} `json:"questions"`
	}
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &payload); err != nil {
		return nil, &GenerationError{Message: "Invalid quiz format from AI"}
	}
	if len(payload.Questions) != quizQuestionCount {
		return nil, &GenerationError{Message: "Invalid quiz format from AI"}
	}

	quiz := &models.Quiz{Questions: make([]models.QuizQuestion, len(payload.Questions))}
	for i, q := range payload.Questions {
		if strings.TrimSpace(q.Question) == "" ||
			len(q.Options) != quizOptionCount ||
			q.CorrectAnswer == nil ||
			*q.CorrectAnswer < 0 || *q.CorrectAnswer >= quizOptionCount {
			return nil, &GenerationError{Message: fmt.Sprintf("Invalid question format at index %d", i)}
		}
		quiz.Questions[i] = models.QuizQuestion{
			Question:      q.Question,
			Options:       q.Options,
			CorrectAnswer: *q.CorrectAnswer,
		}
	}
	return quiz, nil
}
