package attendance

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"rollbook/internal/metrics"
	"rollbook/internal/store"
	"rollbook/internal/student"
)

const listLimit = 100

// Store is the persistence surface the service needs. *Repository implements
// it; tests substitute an in-memory fake.
type Store interface {
	InsertForDay(ctx context.Context, studentID string, now time.Time) (bool, error)
	List(ctx context.Context, query string, limit int) ([]Entry, error)
	AllNewestFirst(ctx context.Context) ([]Entry, error)
	Delete(ctx context.Context, id string) (bool, error)
	DeleteAll(ctx context.Context) error
	CountForDay(ctx context.Context, now time.Time) (int, error)
	Count(ctx context.Context) (int, error)
}

// StudentDirectory is the slice of the student store check-in and the danger
// zone need.
type StudentDirectory interface {
	GetByMatric(ctx context.Context, matric string) (*student.Student, error)
	DeleteAll(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

// Cache invalidates and serves prerendered view data. May be nil.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) bool
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration)
	Invalidate(ctx context.Context, keys ...string)
}

// Service coordinates check-ins and the admin attendance views.
type Service struct {
	store    Store
	students StudentDirectory
	cache    Cache
	statsTTL time.Duration
	nowFunc  func() time.Time
}

// NewService creates a service. cache may be nil, in which case views are
// always rebuilt from the store.
func NewService(st Store, students StudentDirectory, cache Cache, statsTTL time.Duration) *Service {
	return &Service{store: st, students: students, cache: cache, statsTTL: statsTTL, nowFunc: time.Now}
}

// CheckInResult is what the public form renders after a check-in attempt.
type CheckInResult struct {
	Duplicate bool
	Student   student.Student
	Message   string
}

// CheckIn records presence for the student with the given matric number.
// The insert is a single atomic attempt; a same-day row already existing is
// reported as a friendly duplicate, not a failure.
func (s *Service) CheckIn(ctx context.Context, matricNumber string) (CheckInResult, error) {
	matricNumber = strings.TrimSpace(matricNumber)
	if matricNumber == "" {
		return CheckInResult{}, fmt.Errorf("%w: matric number is required", ErrStudentNotFound)
	}

	stu, err := s.students.GetByMatric(ctx, matricNumber)
	if err != nil {
		metrics.CheckIns.WithLabelValues("error").Inc()
		return CheckInResult{}, fmt.Errorf("lookup student: %w", err)
	}
	if stu == nil {
		metrics.CheckIns.WithLabelValues("not_found").Inc()
		return CheckInResult{}, fmt.Errorf("%w: %s", ErrStudentNotFound, matricNumber)
	}

	inserted, err := s.store.InsertForDay(ctx, stu.ID, s.nowFunc())
	if err != nil {
		metrics.CheckIns.WithLabelValues("error").Inc()
		return CheckInResult{}, fmt.Errorf("record check-in: %w", err)
	}
	if !inserted {
		metrics.CheckIns.WithLabelValues("duplicate").Inc()
		return CheckInResult{
			Duplicate: true,
			Student:   *stu,
			Message:   fmt.Sprintf("Welcome back, %s! You have already checked in today.", stu.FullName),
		}, nil
	}

	metrics.CheckIns.WithLabelValues("ok").Inc()
	s.invalidate(ctx, store.KeyDashboardStats, store.KeyAttendanceList)
	return CheckInResult{
		Student: *stu,
		Message: fmt.Sprintf("Check-in successful! Welcome, %s.", stu.FullName),
	}, nil
}

// List returns up to 100 check-ins newest first, optionally filtered by a
// substring of the student name or matric number.
func (s *Service) List(ctx context.Context, query string) ([]Entry, error) {
	return s.store.List(ctx, strings.TrimSpace(query), listLimit)
}

// Delete removes one attendance row.
func (s *Service) Delete(ctx context.Context, id string) error {
	ok, err := s.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	s.invalidate(ctx, store.KeyDashboardStats, store.KeyAttendanceList)
	return nil
}

// PurgeAll irreversibly deletes every attendance row and then every student.
// Attendance goes first so the foreign key is never violated mid-way.
func (s *Service) PurgeAll(ctx context.Context) error {
	if err := s.store.DeleteAll(ctx); err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	if err := s.students.DeleteAll(ctx); err != nil {
		return fmt.Errorf("delete students: %w", err)
	}
	s.invalidate(ctx, store.KeyDashboardStats, store.KeyAttendanceList, store.KeyStudentList)
	return nil
}

// ExportRows returns the full history flattened for the report, newest
// first. Store failures degrade to an empty export instead of an error.
func (s *Service) ExportRows(ctx context.Context) []Entry {
	rows, err := s.store.AllNewestFirst(ctx)
	if err != nil {
		log.Printf("export fetch failed: %v", err)
		return nil
	}
	return rows
}

// Stats returns the dashboard counters, served from the view cache when
// fresh.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if s.cache != nil && s.cache.GetJSON(ctx, store.KeyDashboardStats, &st) {
		return st, nil
	}
	total, err := s.students.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count students: %w", err)
	}
	today, err := s.store.CountForDay(ctx, s.nowFunc())
	if err != nil {
		return Stats{}, fmt.Errorf("count today: %w", err)
	}
	all, err := s.store.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count attendance: %w", err)
	}
	st = Stats{TotalStudents: total, CheckedInToday: today, TotalAttendance: all}
	if s.cache != nil {
		s.cache.SetJSON(ctx, store.KeyDashboardStats, st, s.statsTTL)
	}
	return st, nil
}

func (s *Service) invalidate(ctx context.Context, keys ...string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, keys...)
	}
}
