package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"studycoach-backend/internal/models"
)

func TestCreateSession_LeavesExactlyOneActive(t *testing.T) {
	f := newStudyFixture()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		id, err := f.svc.CreateSession(ctx, "user_1", sampleSessionRequest())
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		n, activeID := f.db.activeCount("user_1")
		if n != 1 {
			t.Fatalf("after create %d: active sessions = %d want 1", i, n)
		}
		if activeID != id {
			t.Fatalf("after create %d: active session %s, want newest %s", i, activeID, id)
		}
		f.clock.advance(time.Minute)
	}

	if _, err := f.svc.CreateSession(ctx, "user_2", sampleSessionRequest()); err != nil {
		t.Fatalf("create for second user: %v", err)
	}
	if n, _ := f.db.activeCount("user_1"); n != 1 {
		t.Fatalf("another user's create changed user_1 active count to %d", n)
	}
}

func TestCreateSession_Rejections(t *testing.T) {
	f := newStudyFixture()
	ctx := context.Background()

	if _, err := f.svc.CreateSession(ctx, "", sampleSessionRequest()); !isUnauthorized(err) {
		t.Fatalf("expected UnauthorizedError, got %v", err)
	}

	req := sampleSessionRequest()
	req.Tasks = nil
	_, err := f.svc.CreateSession(ctx, "user_1", req)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Fields["tasks"] == "" {
		t.Fatalf("expected tasks validation error, got %v", err)
	}
}

func TestCreateSession_NormalizesMissingOrder(t *testing.T) {
	f := newStudyFixture()
	ctx := context.Background()

	req := sampleSessionRequest()
	for i := range req.Tasks {
		req.Tasks[i].Order = 0
	}
	if _, err := f.svc.CreateSession(ctx, "user_1", req); err != nil {
		t.Fatalf("create: %v", err)
	}

	active, err := f.svc.GetActiveSession(ctx, "user_1")
	if err != nil || active == nil {
		t.Fatalf("get active: %v %v", active, err)
	}
	for i, task := range active.Tasks {
		if task.Order != i+1 {
			t.Fatalf("task %d order = %d want %d", i, task.Order, i+1)
		}
	}
	if req.Tasks[0].Order != 0 {
		t.Fatalf("request tasks were mutated")
	}
}

func TestGetActiveSession_AbsentCases(t *testing.T) {
	f := newStudyFixture()
	ctx := context.Background()

	active, err := f.svc.GetActiveSession(ctx, "")
	if err != nil || active != nil {
		t.Fatalf("unauthenticated: got %v, %v", active, err)
	}

	active, err = f.svc.GetActiveSession(ctx, "user_1")
	if err != nil || active != nil {
		t.Fatalf("no sessions: got %v, %v", active, err)
	}
}

func TestCompleteTask_DuplicatesAreStoredAndTolerated(t *testing.T) {
	f := newStudyFixture()
	ctx := context.Background()

	id, err := f.svc.CreateSession(ctx, "user_1", sampleSessionRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	spent := 12
	for i := 0; i < 2; i++ {
		if err := f.svc.CompleteTask(ctx, "user_1", id, 1, &spent); err != nil {
			t.Fatalf("complete task call %d: %v", i, err)
		}
		active, err := f.svc.GetActiveSession(ctx, "user_1")
		if err != nil {
			t.Fatalf("get active: %v", err)
		}
		if !active.IsTaskCompleted(1) {
			t.Fatalf("task 1 should be completed after call %d", i)
		}
		if active.IsTaskCompleted(0) {
			t.Fatalf("task 0 should not be completed")
		}
	}

	active, _ := f.svc.GetActiveSession(ctx, "user_1")
	if len(active.Completions) != 2 {
		t.Fatalf("expected 2 completion records, got %d", len(active.Completions))
	}
	if active.AllTasksCompleted {
		t.Fatalf("all_tasks_completed should be false with one task done")
	}
}

func TestCompleteTask_AllTasksCompleted(t *testing.T) {
	f := newStudyFixture()
	ctx := context.Background()

	id, _ := f.svc.CreateSession(ctx, "user_1", sampleSessionRequest())
	for i := range sampleTasks() {
		if err := f.svc.CompleteTask(ctx, "user_1", id, i, nil); err != nil {
			t.Fatalf("complete task %d: %v", i, err)
		}
	}

	active, _ := f.svc.GetActiveSession(ctx, "user_1")
	if !active.AllTasksCompleted {
		t.Fatalf("expected all tasks completed, flags %v", active.CompletedTasks)
	}
}

func TestCompleteTask_Rejections(t *testing.T) {
	f := newStudyFixture()
	ctx := context.Background()
	id, _ := f.svc.CreateSession(ctx, "user_1", sampleSessionRequest())
	negative := -3

	tests := []struct {
		name      string
		owner     string
		sessionID uuid.UUID
		index     int
		spent     *int
		check     func(error) bool
	}{
		{"unauthenticated", "", id, 0, nil, isUnauthorized},
		{"unknown session", "user_1", uuid.New(), 0, nil, isNotFound},
		{"other owner", "user_2", id, 0, nil, isForbidden},
		{"index too large", "user_1", id, 5, nil, isValidation},
		{"negative index", "user_1", id, -1, nil, isValidation},
		{"negative time", "user_1", id, 0, &negative, isValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.CompleteTask(ctx, tt.owner, tt.sessionID, tt.index, tt.spent)
			if !tt.check(err) {
				t.Fatalf("unexpected error %T: %v", err, err)
			}
		})
	}

	if got := len(f.db.completions); got != 0 {
		t.Fatalf("rejected calls stored %d completions", got)
	}
}

func TestCompleteSession_FinalizesAndSchedulesRevisions(t *testing.T) {
	f := newStudyFixture()
	ctx := context.Background()

	id, _ := f.svc.CreateSession(ctx, "user_1", sampleSessionRequest())
	f.clock.advance(time.Hour)
	finishedAt := f.clock.now()

	quiz := 4
	if err := f.svc.CompleteSession(ctx, "user_1", id, 3, &quiz); err != nil {
		t.Fatalf("complete session: %v", err)
	}

	s, _ := memSessions{f.db}.GetByID(ctx, id)
	if s.IsActive {
		t.Fatalf("session still active")
	}
	if s.CompletedAt == nil || !s.CompletedAt.Equal(finishedAt) {
		t.Fatalf("completed_at = %v want %v", s.CompletedAt, finishedAt)
	}
	if s.ConfidenceScore == nil || *s.ConfidenceScore != 3 {
		t.Fatalf("confidence = %v want 3", s.ConfidenceScore)
	}
	if s.QuizScore == nil || *s.QuizScore != 4 {
		t.Fatalf("quiz score = %v want 4", s.QuizScore)
	}

	revisions := f.db.revisionsOf(id)
	if len(revisions) != 2 {
		t.Fatalf("expected 2 revisions, got %d", len(revisions))
	}
	want := map[string]time.Time{
		models.RevisionDay2: finishedAt.Add(172800000 * time.Millisecond),
		models.RevisionDay7: finishedAt.Add(604800000 * time.Millisecond),
	}
	for _, r := range revisions {
		at, ok := want[r.Kind]
		if !ok {
			t.Fatalf("unexpected revision kind %q", r.Kind)
		}
		if !r.ScheduledFor.Equal(at) {
			t.Fatalf("%s scheduled_for = %v want %v", r.Kind, r.ScheduledFor, at)
		}
		if r.Completed || r.UserID != "user_1" || r.Subject != "DBMS" || r.Topic != "Normalization" {
			t.Fatalf("unexpected revision %+v", r)
		}
		delete(want, r.Kind)
	}

	active, _ := f.svc.GetActiveSession(ctx, "user_1")
	if active != nil {
		t.Fatalf("finalized session still reported active")
	}
}

func TestCompleteSession_WithoutQuizScore(t *testing.T) {
	f := newStudyFixture()
	ctx := context.Background()
	id, _ := f.svc.CreateSession(ctx, "user_1", sampleSessionRequest())

	if err := f.svc.CompleteSession(ctx, "user_1", id, 5, nil); err != nil {
		t.Fatalf("complete session: %v", err)
	}
	s, _ := memSessions{f.db}.GetByID(ctx, id)
	if s.QuizScore != nil {
		t.Fatalf("quiz score should stay unset, got %d", *s.QuizScore)
	}
}

func TestCompleteSession_SecondCallConflicts(t *testing.T) {
	f := newStudyFixture()
	ctx := context.Background()
	id, _ := f.svc.CreateSession(ctx, "user_1", sampleSessionRequest())

	if err := f.svc.CompleteSession(ctx, "user_1", id, 4, nil); err != nil {
		t.Fatalf("first complete: %v", err)
	}
	err := f.svc.CompleteSession(ctx, "user_1", id, 2, nil)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if got := len(f.db.revisionsOf(id)); got != 2 {
		t.Fatalf("revisions after repeat = %d want 2", got)
	}
}

func TestCompleteSession_Rejections(t *testing.T) {
	f := newStudyFixture()
	ctx := context.Background()
	id, _ := f.svc.CreateSession(ctx, "user_1", sampleSessionRequest())
	six, minus := 6, -1

	tests := []struct {
		name       string
		owner      string
		sessionID  uuid.UUID
		confidence int
		quiz       *int
		check      func(error) bool
	}{
		{"unauthenticated", "", id, 3, nil, isUnauthorized},
		{"unknown session", "user_1", uuid.New(), 3, nil, isNotFound},
		{"other owner", "user_2", id, 3, nil, isForbidden},
		{"confidence zero", "user_1", id, 0, nil, isValidation},
		{"confidence six", "user_1", id, 6, nil, isValidation},
		{"quiz too high", "user_1", id, 3, &six, isValidation},
		{"quiz negative", "user_1", id, 3, &minus, isValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.CompleteSession(ctx, tt.owner, tt.sessionID, tt.confidence, tt.quiz)
			if !tt.check(err) {
				t.Fatalf("unexpected error %T: %v", err, err)
			}
		})
	}

	if got := len(f.db.revisionsOf(id)); got != 0 {
		t.Fatalf("rejected calls created %d revisions", got)
	}
}

func TestCompleteSessionWithAnswers_ScoresCachedQuiz(t *testing.T) {
	f := newStudyFixture()
	ctx := context.Background()
	id, _ := f.svc.CreateSession(ctx, "user_1", sampleSessionRequest())

	if _, err := f.svc.CompleteSessionWithAnswers(ctx, "user_1", id, 4, []int{0, 0, 0, 0, 0}); !isNotFound(err) {
		t.Fatalf("expected NotFoundError without cached quiz, got %v", err)
	}

	_ = f.quizzes.Put(ctx, id, sampleQuiz())
	score, err := f.svc.CompleteSessionWithAnswers(ctx, "user_1", id, 4, []int{0, 1, 3, 0, 0})
	if err != nil {
		t.Fatalf("complete with answers: %v", err)
	}
	if score != 3 {
		t.Fatalf("score = %d want 3", score)
	}

	s, _ := memSessions{f.db}.GetByID(ctx, id)
	if s.QuizScore == nil || *s.QuizScore != 3 {
		t.Fatalf("stored quiz score = %v want 3", s.QuizScore)
	}
}

func TestGetRevisionSchedule_PendingAscending(t *testing.T) {
	f := newStudyFixture()
	ctx := context.Background()

	first, _ := f.svc.CreateSession(ctx, "user_1", sampleSessionRequest())
	_ = f.svc.CompleteSession(ctx, "user_1", first, 4, nil)
	f.clock.advance(24 * time.Hour)
	second, _ := f.svc.CreateSession(ctx, "user_1", sampleSessionRequest())
	_ = f.svc.CompleteSession(ctx, "user_1", second, 4, nil)

	revisions, err := f.svc.GetRevisionSchedule(ctx, "user_1")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(revisions) != 4 {
		t.Fatalf("expected 4 pending revisions, got %d", len(revisions))
	}
	for i := 1; i < len(revisions); i++ {
		if revisions[i].ScheduledFor.Before(revisions[i-1].ScheduledFor) {
			t.Fatalf("revisions not ascending at %d", i)
		}
	}

	if err := f.svc.CompleteRevision(ctx, "user_1", revisions[0].ID); err != nil {
		t.Fatalf("complete revision: %v", err)
	}
	revisions, _ = f.svc.GetRevisionSchedule(ctx, "user_1")
	if len(revisions) != 3 {
		t.Fatalf("expected 3 pending after completion, got %d", len(revisions))
	}

	empty, err := f.svc.GetRevisionSchedule(ctx, "")
	if err != nil || len(empty) != 0 {
		t.Fatalf("unauthenticated schedule: %v %v", empty, err)
	}
}

func TestCompleteRevision_ChecksOwnership(t *testing.T) {
	f := newStudyFixture()
	ctx := context.Background()
	id, _ := f.svc.CreateSession(ctx, "user_1", sampleSessionRequest())
	_ = f.svc.CompleteSession(ctx, "user_1", id, 4, nil)
	rev := f.db.revisionsOf(id)[0]

	if err := f.svc.CompleteRevision(ctx, "user_2", rev.ID); !isForbidden(err) {
		t.Fatalf("expected ForbiddenError, got %v", err)
	}
	if rev.Completed {
		t.Fatalf("foreign caller completed the revision")
	}
	if err := f.svc.CompleteRevision(ctx, "user_1", uuid.New()); !isNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if err := f.svc.CompleteRevision(ctx, "", rev.ID); !isUnauthorized(err) {
		t.Fatalf("expected UnauthorizedError, got %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := f.svc.CompleteRevision(ctx, "user_1", rev.ID); err != nil {
			t.Fatalf("complete call %d: %v", i, err)
		}
	}
}

func TestReconcileRevisions_RepairsOnce(t *testing.T) {
	f := newStudyFixture()
	ctx := context.Background()

	completedAt := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	confidence := 4
	orphan := &models.StudySession{
		ID:              uuid.New(),
		UserID:          "user_1",
		Subject:         "OS",
		Topic:           "Deadlock",
		TotalDuration:   90,
		Tasks:           sampleTasks(),
		CreatedAt:       completedAt.Add(-2 * time.Hour),
		CompletedAt:     &completedAt,
		ConfidenceScore: &confidence,
	}
	f.db.sessions[orphan.ID] = orphan

	n, err := f.svc.ReconcileRevisions(ctx, 10)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if n != 2 {
		t.Fatalf("inserted = %d want 2", n)
	}
	for _, r := range f.db.revisionsOf(orphan.ID) {
		if r.Kind == models.RevisionDay2 && !r.ScheduledFor.Equal(completedAt.Add(48*time.Hour)) {
			t.Fatalf("day2 scheduled_for = %v", r.ScheduledFor)
		}
		if r.Kind == models.RevisionDay7 && !r.ScheduledFor.Equal(completedAt.Add(7*24*time.Hour)) {
			t.Fatalf("day7 scheduled_for = %v", r.ScheduledFor)
		}
	}

	n, err = f.svc.ReconcileRevisions(ctx, 10)
	if err != nil || n != 0 {
		t.Fatalf("second reconcile inserted %d (%v), want 0", n, err)
	}
}

func TestStudyService_PublishesLiveUpdates(t *testing.T) {
	f := newStudyFixture()
	ctx := context.Background()

	id, _ := f.svc.CreateSession(ctx, "user_1", sampleSessionRequest())
	_ = f.svc.CompleteTask(ctx, "user_1", id, 0, nil)
	_ = f.svc.CompleteSession(ctx, "user_1", id, 4, nil)
	rev := f.db.revisionsOf(id)[0]
	_ = f.svc.CompleteRevision(ctx, "user_1", rev.ID)

	want := []string{
		models.EventSessionCreated,
		models.EventTaskCompleted,
		models.EventSessionCompleted,
		models.EventRevisionCompleted,
	}
	got := f.events.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %s want %s", i, got[i], want[i])
		}
	}
}

func isUnauthorized(err error) bool {
	var e *UnauthorizedError
	return errors.As(err, &e)
}

func isNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func isForbidden(err error) bool {
	var e *ForbiddenError
	return errors.As(err, &e)
}

func isValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func sampleQuiz() *models.Quiz {
	q := func(correct int) models.QuizQuestion {
		return models.QuizQuestion{
			Question:      "Which normal form removes transitive dependencies?",
			Options:       []string{"1NF", "2NF", "3NF", "4NF"},
			CorrectAnswer: correct,
		}
	}
	return &models.Quiz{Questions: []models.QuizQuestion{q(0), q(1), q(3), q(3), q(2)}}
}

func TestCacheQuiz_RequiresOwnership(t *testing.T) {
	f := newStudyFixture()
	ctx := context.Background()
	id, _ := f.svc.CreateSession(ctx, "user_1", sampleSessionRequest())

	if err := f.svc.CacheQuiz(ctx, "user_2", id, sampleQuiz()); !isForbidden(err) {
		t.Fatalf("expected ForbiddenError, got %v", err)
	}
	if err := f.svc.CacheQuiz(ctx, "user_1", uuid.New(), sampleQuiz()); !isNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if err := f.svc.CacheQuiz(ctx, "user_1", id, sampleQuiz()); err != nil {
		t.Fatalf("cache quiz: %v", err)
	}
	if got, _ := f.quizzes.Get(ctx, id); got == nil {
		t.Fatalf("quiz not cached")
	}
}
