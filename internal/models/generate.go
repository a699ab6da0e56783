package models

import "github.com/google/uuid"

// StudyRequest is the wizard input for task generation.
type StudyRequest struct {
	Subject           string `json:"subject"`
	Topic             string `json:"topic"`
	Goal              string `json:"goal"`
	Duration          int    `json:"duration"`
	Level             string `json:"level"`
	LearningStyle     string `json:"learning_style"`
	Experience        string `json:"experience"`
	PreferredResource string `json:"preferred_resource"`
}

type TaskPlan struct {
	Tasks []Task `json:"tasks"`
}

type GenerateQuizRequest struct {
	Subject   string     `json:"subject"`
	Topic     string     `json:"topic"`
	SessionID *uuid.UUID `json:"session_id,omitempty"`
}

type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
}

type Quiz struct {
	Questions []QuizQuestion `json:"questions"`
}

// Catalog lists the wizard options accepted by the generator.
type Catalog struct {
	Subjects       []SubjectInfo `json:"subjects"`
	Goals          []string      `json:"goals"`
	Durations      []int         `json:"durations"`
	Levels         []string      `json:"levels"`
	LearningStyles []string      `json:"learning_styles"`
	Experiences    []string      `json:"experiences"`
	Resources      []string      `json:"resources"`
}

type SubjectInfo struct {
	Name          string `json:"name"`
	TopicExamples string `json:"topic_examples"`
}
