package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"studycoach-backend/internal/models"
	"studycoach-backend/internal/repository"
)

// memDB is an in-memory stand-in for the Postgres repositories.
type memDB struct {
	mu          sync.Mutex
	sessions    map[uuid.UUID]*models.StudySession
	completions []models.TaskCompletion
	revisions   []*models.RevisionEntry
}

func newMemDB() *memDB {
	return &memDB{sessions: make(map[uuid.UUID]*models.StudySession)}
}

type memSessions struct{ db *memDB }
type memCompletions struct{ db *memDB }
type memRevisions struct{ db *memDB }

func (m memSessions) Create(ctx context.Context, s *models.StudySession) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, existing := range m.db.sessions {
		if existing.UserID == s.UserID {
			existing.IsActive = false
		}
	}
	s.ID = uuid.New()
	s.IsActive = true
	stored := *s
	m.db.sessions[s.ID] = &stored
	return nil
}

func (m memSessions) GetByID(ctx context.Context, id uuid.UUID) (*models.StudySession, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	s, ok := m.db.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (m memSessions) GetActive(ctx context.Context, userID string) (*models.StudySession, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var newest *models.StudySession
	for _, s := range m.db.sessions {
		if s.UserID == userID && s.IsActive && (newest == nil || s.CreatedAt.After(newest.CreatedAt)) {
			newest = s
		}
	}
	if newest == nil {
		return nil, pgx.ErrNoRows
	}
	cp := *newest
	return &cp, nil
}

func (m memSessions) ListCompleted(ctx context.Context, userID string) ([]*models.StudySession, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []*models.StudySession
	for _, s := range m.db.sessions {
		if s.UserID == userID && s.CompletedAt != nil {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m memSessions) ListRecent(ctx context.Context, userID string, limit int) ([]*models.StudySession, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []*models.StudySession
	for _, s := range m.db.sessions {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m memSessions) ListMissingRevisions(ctx context.Context, limit int) ([]*models.StudySession, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []*models.StudySession
	for _, s := range m.db.sessions {
		if s.CompletedAt == nil {
			continue
		}
		n := 0
		for _, r := range m.db.revisions {
			if r.SessionID == s.ID {
				n++
			}
		}
		if n < 2 {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m memSessions) Finalize(ctx context.Context, sessionID uuid.UUID, completedAt time.Time, confidence int, quizScore *int, revisions []*models.RevisionEntry) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	s, ok := m.db.sessions[sessionID]
	if !ok {
		return pgx.ErrNoRows
	}
	if s.CompletedAt != nil {
		return repository.ErrAlreadyFinalized
	}
	s.IsActive = false
	s.CompletedAt = &completedAt
	s.ConfidenceScore = &confidence
	s.QuizScore = quizScore
	for _, r := range revisions {
		r.ID = uuid.New()
		m.db.revisions = append(m.db.revisions, r)
	}
	return nil
}

func (m memCompletions) Create(ctx context.Context, c *models.TaskCompletion) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	c.ID = uuid.New()
	m.db.completions = append(m.db.completions, *c)
	return nil
}

func (m memCompletions) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.TaskCompletion, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []models.TaskCompletion
	for _, c := range m.db.completions {
		if c.SessionID == sessionID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m memRevisions) InsertMissing(ctx context.Context, revisions []*models.RevisionEntry) (int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	inserted := 0
	for _, r := range revisions {
		exists := false
		for _, existing := range m.db.revisions {
			if existing.SessionID == r.SessionID && existing.Kind == r.Kind {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		r.ID = uuid.New()
		m.db.revisions = append(m.db.revisions, r)
		inserted++
	}
	return inserted, nil
}

func (m memRevisions) GetByID(ctx context.Context, id uuid.UUID) (*models.RevisionEntry, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, r := range m.db.revisions {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m memRevisions) ListPending(ctx context.Context, userID string) ([]*models.RevisionEntry, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := []*models.RevisionEntry{}
	for _, r := range m.db.revisions {
		if r.UserID == userID && !r.Completed {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledFor.Before(out[j].ScheduledFor) })
	return out, nil
}

func (m memRevisions) MarkCompleted(ctx context.Context, id uuid.UUID, userID string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, r := range m.db.revisions {
		if r.ID == id && r.UserID == userID {
			r.Completed = true
		}
	}
	return nil
}

func (m *memDB) revisionsOf(sessionID uuid.UUID) []*models.RevisionEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.RevisionEntry
	for _, r := range m.revisions {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	return out
}

func (m *memDB) activeCount(userID string) (int, uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	var id uuid.UUID
	for _, s := range m.sessions {
		if s.UserID == userID && s.IsActive {
			n++
			id = s.ID
		}
	}
	return n, id
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.WSMessage
}

func (p *recordingPublisher) Publish(ctx context.Context, owner string, msg models.WSMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, msg)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type memQuizCache struct {
	quizzes map[uuid.UUID]*models.Quiz
}

func (c *memQuizCache) Put(ctx context.Context, sessionID uuid.UUID, quiz *models.Quiz) error {
	if c.quizzes == nil {
		c.quizzes = make(map[uuid.UUID]*models.Quiz)
	}
	c.quizzes[sessionID] = quiz
	return nil
}

func (c *memQuizCache) Get(ctx context.Context, sessionID uuid.UUID) (*models.Quiz, error) {
	return c.quizzes[sessionID], nil
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type studyFixture struct {
	db      *memDB
	svc     *StudyService
	events  *recordingPublisher
	quizzes *memQuizCache
	clock   *fakeClock
}

func newStudyFixture() *studyFixture {
	db := newMemDB()
	events := &recordingPublisher{}
	quizzes := &memQuizCache{}
	clock := &fakeClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc := NewStudyService(memSessions{db}, memCompletions{db}, memRevisions{db}, events, quizzes, nil)
	svc.now = clock.now
	return &studyFixture{db: db, svc: svc, events: events, quizzes: quizzes, clock: clock}
}

func sampleTasks() []models.Task {
	return []models.Task{
		{Type: models.TaskRead, Task: "Read normalization concepts", Time: 15, Order: 1},
		{Type: models.TaskWatch, Task: "Watch BCNF video", Time: 10, Order: 2},
		{Type: models.TaskPractice, Task: "Solve 3 problems", Time: 25, Order: 3},
		{Type: models.TaskRecall, Task: "Write normal forms from memory", Time: 5, Order: 4},
		{Type: models.TaskInterview, Task: "Explain BCNF", Time: 5, Order: 5},
	}
}

func sampleSessionRequest() models.CreateSessionRequest {
	return models.CreateSessionRequest{
		Subject:       "DBMS",
		Topic:         "Normalization",
		Goal:          "Exam",
		TotalDuration: 60,
		Tasks:         sampleTasks(),
	}
}
