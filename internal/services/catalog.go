package services

import "studycoach-backend/internal/models"

var (
	subjects = []models.SubjectInfo{
		{Name: "DBMS", TopicExamples: "e.g., Normalization, Transactions, Indexing, SQL Queries, ACID Properties"},
		{Name: "OS", TopicExamples: "e.g., Process Scheduling, Deadlock, Memory Management, File Systems, Synchronization"},
		{Name: "CN", TopicExamples: "e.g., TCP/IP, Routing Algorithms, OSI Model, Network Security, HTTP/HTTPS"},
		{Name: "DSA", TopicExamples: "e.g., Sorting Algorithms, Binary Trees, Dynamic Programming, Graphs, Linked Lists"},
		{Name: "OOP", TopicExamples: "e.g., Inheritance, Polymorphism, Encapsulation, Design Patterns, Abstraction"},
		{Name: "Math", TopicExamples: "e.g., Probability, Linear Algebra, Discrete Math, Calculus, Graph Theory"},
	}
	goals          = []string{"Exam", "Placement", "Both"}
	durations      = []int{60, 90, 120}
	levels         = []string{"Beginner", "Intermediate", "Advanced"}
	learningStyles = []string{"Visual (Videos)", "Reading (Articles)", "Practice (Coding)", "Mixed"}
	experiences    = []string{"First Time", "Revision", "Deep Dive"}
	resources      = []string{"Gate Smashers", "Striver", "GeeksforGeeks", "W3Schools", "Official Docs", "No Preference"}
)

// Catalog returns the wizard options accepted by GenerateTasks.
func Catalog() models.Catalog {
	return models.Catalog{
		Subjects:       append([]models.SubjectInfo(nil), subjects...),
		Goals:          append([]string(nil), goals...),
		Durations:      append([]int(nil), durations...),
		Levels:         append([]string(nil), levels...),
		LearningStyles: append([]string(nil), learningStyles...),
		Experiences:    append([]string(nil), experiences...),
		Resources:      append([]string(nil), resources...),
	}
}

func isSubject(name string) bool {
	for _, s := range subjects {
		if s.Name == name {
			return true
		}
	}
	return false
}

func contains[T comparable](values []T, v T) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
