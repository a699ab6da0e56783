package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"studycoach-backend/internal/models"
)

const historyLimit = 20

type historyStore interface {
	ListCompleted(ctx context.Context, userID string) ([]*models.StudySession, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]*models.StudySession, error)
}

// StatsService derives user statistics from persisted session history on every call.
type StatsService struct {
	sessions historyStore
	loc      *time.Location
}

func NewStatsService(sessions historyStore, loc *time.Location) *StatsService {
	if loc == nil {
		loc = time.Local
	}
	return &StatsService{sessions: sessions, loc: loc}
}

// Location resolves the zone used for streak days. An empty name selects the default.
func (s *StatsService) Location(name string) (*time.Location, error) {
	if name == "" {
		return s.loc, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, &ValidationError{Fields: map[string]string{"tz": "Unknown time zone"}}
	}
	return loc, nil
}

// GetUserStats returns nil for an unauthenticated caller. A nil loc uses the default zone.
func (s *StatsService) GetUserStats(ctx context.Context, owner string, loc *time.Location) (*models.UserStats, error) {
	if owner == "" {
		return nil, nil
	}
	if loc == nil {
		loc = s.loc
	}

	sessions, err := s.sessions.ListCompleted(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to load completed sessions: %w", err)
	}
	stats := ComputeStats(sessions, loc)
	return &stats, nil
}

// GetSessionHistory returns at most 20 sessions, newest first.
func (s *StatsService) GetSessionHistory(ctx context.Context, owner string) ([]*models.StudySession, error) {
	if owner == "" {
		return []*models.StudySession{}, nil
	}
	sessions, err := s.sessions.ListRecent(ctx, owner, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load session history: %w", err)
	}
	if sessions == nil {
		sessions = []*models.StudySession{}
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	if len(sessions) > historyLimit {
		sessions = sessions[:historyLimit]
	}
	return sessions, nil
}

// ComputeStats aggregates the finalized sessions among sessions. Sessions
// without a confidence score count as zero towards the average.
func ComputeStats(sessions []*models.StudySession, loc *time.Location) models.UserStats {
	var stats models.UserStats
	var confidenceSum int
	completedAt := make([]time.Time, 0, len(sessions))

	for _, s := range sessions {
		if s.CompletedAt == nil {
			continue
		}
		stats.TotalSessions++
		stats.TotalMinutes += s.TotalDuration
		if s.ConfidenceScore != nil {
			confidenceSum += *s.ConfidenceScore
		}
		completedAt = append(completedAt, *s.CompletedAt)
	}

	if stats.TotalSessions > 0 {
		stats.AverageConfidence = float64(confidenceSum) / float64(stats.TotalSessions)
	}
	stats.Streak = ComputeStreak(completedAt, loc)
	return stats
}

// ComputeStreak counts consecutive calendar days in loc with at least one
// completion, walking back from the most recent. Same-day entries are skipped
// and the first gap of more than one day ends the walk.
func ComputeStreak(completions []time.Time, loc *time.Location) int {
	if len(completions) == 0 {
		return 0
	}
	if loc == nil {
		loc = time.Local
	}

	sorted := make([]time.Time, len(completions))
	copy(sorted, completions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].After(sorted[j]) })

	streak := 1
	last := calendarDay(sorted[0], loc)
	for _, t := range sorted[1:] {
		day := calendarDay(t, loc)
		diff := int(last.Sub(day).Hours() / 24)
		if diff == 1 {
			streak++
			last = day
		} else if diff > 1 {
			break
		}
	}
	return streak
}

// calendarDay maps t to midnight UTC of its date in loc, so day differences
// are whole multiples of 24h regardless of DST.
func calendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
