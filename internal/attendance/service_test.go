package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"rollbook/internal/student"
)

type fakeStore struct {
	days     map[string]struct{} // studentID + day
	entries  []Entry
	deleted  []string
	calls    []string
	failWith error
}

func newFakeStore() *fakeStore {
	return &fakeStore{days: make(map[string]struct{})}
}

func dayKey(studentID string, now time.Time) string {
	return studentID + "|" + dayOf(now).Format("2006-01-02")
}

func (f *fakeStore) InsertForDay(_ context.Context, studentID string, now time.Time) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	key := dayKey(studentID, now)
	if _, ok := f.days[key]; ok {
		return false, nil
	}
	f.days[key] = struct{}{}
	return true, nil
}

func (f *fakeStore) List(_ context.Context, query string, limit int) ([]Entry, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	res := f.entries
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (f *fakeStore) AllNewestFirst(context.Context) ([]Entry, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.entries, nil
}

func (f *fakeStore) Delete(_ context.Context, id string) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	for _, e := range f.entries {
		if e.ID == id {
			f.deleted = append(f.deleted, id)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) DeleteAll(context.Context) error {
	f.calls = append(f.calls, "attendance")
	f.days = make(map[string]struct{})
	f.entries = nil
	return nil
}

func (f *fakeStore) CountForDay(context.Context, time.Time) (int, error) {
	return len(f.days), nil
}

func (f *fakeStore) Count(context.Context) (int, error) { return len(f.days), nil }

type fakeDirectory struct {
	students map[string]student.Student
	store    *fakeStore
}

func (f *fakeDirectory) GetByMatric(_ context.Context, matric string) (*student.Student, error) {
	s, ok := f.students[matric]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (f *fakeDirectory) DeleteAll(context.Context) error {
	f.store.calls = append(f.store.calls, "students")
	f.students = make(map[string]student.Student)
	return nil
}

func (f *fakeDirectory) Count(context.Context) (int, error) { return len(f.students), nil }

func setup() (*Service, *fakeStore, *fakeDirectory) {
	fs := newFakeStore()
	dir := &fakeDirectory{
		store: fs,
		students: map[string]student.Student{
			"CSC/2024/001": {ID: "s1", MatricNumber: "CSC/2024/001", FullName: "John Doe", Department: "Computer Science", Level: "100"},
		},
	}
	return NewService(fs, dir, nil, 0), fs, dir
}

func TestCheckIn(t *testing.T) {
	ctx := context.Background()

	t.Run("first check-in of the day succeeds once", func(t *testing.T) {
		svc, fs, _ := setup()
		res, err := svc.CheckIn(ctx, " CSC/2024/001 ")
		assert.NoError(t, err)
		assert.False(t, res.Duplicate)
		assert.Equal(t, "Check-in successful! Welcome, John Doe.", res.Message)
		assert.Len(t, fs.days, 1)
	})

	t.Run("second check-in the same day is a friendly duplicate, no new row", func(t *testing.T) {
		svc, fs, _ := setup()
		_, err := svc.CheckIn(ctx, "CSC/2024/001")
		assert.NoError(t, err)

		res, err := svc.CheckIn(ctx, "CSC/2024/001")
		assert.NoError(t, err)
		assert.True(t, res.Duplicate)
		assert.Equal(t, "Welcome back, John Doe! You have already checked in today.", res.Message)
		assert.Len(t, fs.days, 1)
	})

	t.Run("unknown matric number creates nothing", func(t *testing.T) {
		svc, fs, _ := setup()
		_, err := svc.CheckIn(ctx, "NON-EXISTENT-ID")
		assert.ErrorIs(t, err, ErrStudentNotFound)
		assert.Contains(t, err.Error(), "NON-EXISTENT-ID")
		assert.Empty(t, fs.days)
	})

	t.Run("empty input is rejected", func(t *testing.T) {
		svc, _, _ := setup()
		_, err := svc.CheckIn(ctx, "   ")
		assert.ErrorIs(t, err, ErrStudentNotFound)
	})

	t.Run("check-ins either side of midnight count as different days", func(t *testing.T) {
		svc, fs, _ := setup()
		base := time.Date(2026, 3, 14, 23, 59, 59, 0, time.Local)

		svc.nowFunc = func() time.Time { return base }
		res, err := svc.CheckIn(ctx, "CSC/2024/001")
		assert.NoError(t, err)
		assert.False(t, res.Duplicate)

		svc.nowFunc = func() time.Time { return base.Add(2 * time.Second) }
		res, err = svc.CheckIn(ctx, "CSC/2024/001")
		assert.NoError(t, err)
		assert.False(t, res.Duplicate)
		assert.Len(t, fs.days, 2)
	})
}

func TestPurgeAll(t *testing.T) {
	svc, fs, dir := setup()
	ctx := context.Background()
	_, err := svc.CheckIn(ctx, "CSC/2024/001")
	assert.NoError(t, err)

	assert.NoError(t, svc.PurgeAll(ctx))
	assert.Empty(t, fs.days)
	assert.Empty(t, dir.students)
	// attendance rows go before their parent students
	assert.Equal(t, []string{"attendance", "students"}, fs.calls)
}

func TestExportRowsFailsClosed(t *testing.T) {
	svc, fs, _ := setup()
	fs.entries = []Entry{{ID: "a1", FullName: "John Doe"}}
	assert.Len(t, svc.ExportRows(context.Background()), 1)

	fs.failWith = errors.New("connection refused")
	assert.Empty(t, svc.ExportRows(context.Background()))
}

func TestDelete(t *testing.T) {
	svc, fs, _ := setup()
	fs.entries = []Entry{{ID: "a1"}}
	ctx := context.Background()

	assert.NoError(t, svc.Delete(ctx, "a1"))
	assert.ErrorIs(t, svc.Delete(ctx, "missing"), ErrNotFound)
}

func TestStats(t *testing.T) {
	svc, _, _ := setup()
	ctx := context.Background()
	_, err := svc.CheckIn(ctx, "CSC/2024/001")
	assert.NoError(t, err)

	stats, err := svc.Stats(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, stats.TotalStudents)
	assert.Equal(t, 1, stats.CheckedInToday)
}
