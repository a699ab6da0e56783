package services

import (
	"fmt"
	"strings"

	"studycoach-backend/internal/models"
)

func buildStudyPrompt(req models.StudyRequest) string {
	var levelAdjustments string
	switch req.Level {
	case "Beginner":
		levelAdjustments = "- Start with fundamentals and basic concepts\n- Include more theory and explanation\n- Use simple, step-by-step practice problems\n- Add more recall/review tasks"
	case "Advanced":
		levelAdjustments = "- Focus on complex problems and edge cases\n- Include advanced topics and optimizations\n- Challenge with harder interview questions\n- Reduce basic theory, more application"
	default:
		levelAdjustments = "- Balance theory and practice\n- Include moderate difficulty problems\n- Mix concepts with hands-on coding"
	}

	var stylePreferences string
	switch {
	case strings.Contains(req.LearningStyle, "Visual"):
		stylePreferences = "- Prioritize WATCH tasks (20-25% of time)\n- Include diagram/visualization resources"
	case strings.Contains(req.LearningStyle, "Reading"):
		stylePreferences = "- Prioritize READ tasks (30-35% of time)\n- Include documentation and articles"
	case strings.Contains(req.LearningStyle, "Practice"):
		stylePreferences = "- Prioritize PRACTICE tasks (40-50% of time)\n- More coding problems and exercises"
	default:
		stylePreferences = "- Balanced distribution across all task types"
	}

	var experienceAdjustments string
	switch req.Experience {
	case "First Time":
		experienceAdjustments = "- Start from scratch, assume no prior knowledge\n- More foundational tasks\n- Include prerequisite concepts"
	case "Revision":
		experienceAdjustments = "- Focus on key concepts review\n- Quick recap tasks\n- More recall and practice, less reading"
	default:
		experienceAdjustments = "- Deep dive into advanced aspects\n- Focus on nuances and complex scenarios\n- Include research-level content"
	}

	var goalFocus string
	switch req.Goal {
	case "Exam":
		goalFocus = "Focus on theoretical understanding, formula derivation, and conceptual questions."
	case "Placement":
		goalFocus = "Focus on coding problems, DSA patterns, and interview questions."
	default:
		goalFocus = "Balance theory for exams and coding practice for placements."
	}

	primaryResource := ""
	if req.PreferredResource != "No Preference" {
		primaryResource = fmt.Sprintf("PRIMARY: %s (prioritize this platform)", req.PreferredResource)
	}

	return fmt.Sprintf(`You are an AI study coach EXCLUSIVELY for BTech Computer Science students.

SUBJECT: %[1]s
TOPIC: %[2]s
GOAL: %[3]s
DURATION: %[4]d minutes
KNOWLEDGE LEVEL: %[5]s
LEARNING STYLE: %[6]s
EXPERIENCE: %[7]s
PREFERRED RESOURCE: %[8]s

CRITICAL: First, validate that the TOPIC matches the SUBJECT:
- DBMS topics: Normalization, Transactions, Indexing, SQL, ACID, Concurrency Control, ER Diagrams
- OS topics: Process Scheduling, Deadlock, Memory Management, Paging, File Systems, Synchronization
- CN topics: TCP/IP, Routing, OSI Model, Subnetting, Network Security, HTTP, DNS
- DSA topics: Sorting, Searching, Trees, Graphs, Dynamic Programming, Hashing, Linked Lists
- OOP topics: Inheritance, Polymorphism, Encapsulation, Design Patterns, Classes, Abstraction
- Math topics: Probability, Linear Algebra, Discrete Math, Calculus, Statistics, Graph Theory

If "%[2]s" does NOT match "%[1]s", respond with:
{
  "error": "Topic mismatch",
  "message": "The topic '%[2]s' belongs to [CORRECT_SUBJECT], not %[1]s. Please select the correct subject or change your topic.",
  "suggestedSubject": "[CORRECT_SUBJECT]"
}

If the topic MATCHES, generate EXACTLY 5 tasks based on the user's profile:

KNOWLEDGE LEVEL ADJUSTMENTS:
%[9]s

LEARNING STYLE PREFERENCES:
%[10]s

EXPERIENCE ADJUSTMENTS:
%[11]s

TIME DISTRIBUTIONS (adjust based on preferences):
- READ: 20-25%%
- WATCH: 10-15%%
- PRACTICE: 30-40%%
- RECALL: 10-15%%
- INTERVIEW: 15-20%%

%[12]s

RECOMMENDED RESOURCES:
%[13]s
- DBMS: Gate Smashers, GeeksforGeeks, Neso Academy
- OS: Gate Smashers, Jenny's Lectures, Operating System Concepts
- CN: Gate Smashers, Kunal Kushwaha, Computer Networking by Tanenbaum
- DSA: Striver A2Z, Kunal Kushwaha, LeetCode, GeeksforGeeks
- OOP: Apna College, GeeksforGeeks, Head First Design Patterns
- Math: 3Blue1Brown, Khan Academy, NPTEL

Return STRICT JSON (no markdown):
{
  "tasks": [
    { "type": "read", "task": "Read normalization concepts (1NF to BCNF)", "time": 15, "order": 1 },
    { "type": "watch", "task": "Watch Gate Smashers BCNF video", "time": 10, "order": 2 },
    { "type": "practice", "task": "Solve 3 normalization problems on GFG", "time": 25, "order": 3 },
    { "type": "recall", "task": "Write down all normal forms from memory", "time": 5, "order": 4 },
    { "type": "interview", "task": "Explain BCNF to yourself (record or write)", "time": 5, "order": 5 }
  ]
}

Make tasks specific, actionable, and %[1]s-focused. Adjust difficulty for %[5]s level. Total time must equal %[4]d minutes.`,
		req.Subject, req.Topic, req.Goal, req.Duration, req.Level, req.LearningStyle, req.Experience, req.PreferredResource,
		levelAdjustments, stylePreferences, experienceAdjustments, goalFocus, primaryResource,
	)
}

func buildQuizPrompt(subject, topic string) string {
	return fmt.Sprintf(`You are an expert BTech Computer Science professor creating a quick assessment quiz.

Subject: %s
Topic: %s

Generate exactly 5 multiple-choice questions to test understanding of this topic. Questions should:
- Test conceptual understanding, not just memorization
- Be relevant to BTech CS curriculum
- Include 4 options each (A, B, C, D)
- Have clear correct answers
- Range from easy to moderate difficulty

Return ONLY a valid JSON object in this exact format (no markdown, no explanation):
{
  "questions": [
    {
      "question": "Question text here?",
      "options": ["Option A", "Option B", "Option C", "Option D"],
      "correctAnswer": 0
    }
  ]
}

Where correctAnswer is the index (0-3) of the correct option.`, subject, topic)
}

// stripCodeFences removes markdown json fences some models wrap their output in.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}
